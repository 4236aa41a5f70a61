// Package apiclient calls a remote qrforge server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultPort = "8080"

type Request struct {
	Text       string `json:"text"`
	Size       int    `json:"size,omitempty"`
	Level      string `json:"level,omitempty"`
	Theme      string `json:"theme,omitempty"`
	Foreground string `json:"fg,omitempty"`
	Background string `json:"bg,omitempty"`
	LogoName   string `json:"logo_name,omitempty"`
	LogoBase64 string `json:"logo_base64,omitempty"`
}

type Response struct {
	Text       string `json:"text"`
	Size       int    `json:"size"`
	Level      string `json:"level"`
	Foreground string `json:"fg"`
	Background string `json:"bg"`
	Logo       string `json:"logo"`
	SVG        string `json:"svg"`
	PNGBase64  string `json:"png_base64"`
}

// PNG decodes the base64 payload.
func (r Response) PNG() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.PNGBase64)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(serverHost, apiToken string) (*Client, error) {
	base, err := BuildURL(serverHost, "")
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(apiToken),
		http:    &http.Client{Timeout: 12 * time.Second},
	}, nil
}

// Render asks the server to render req and returns both artifacts.
func (c *Client) Render(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Response{}, errors.New("text is empty")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/qr", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return Response{}, fmt.Errorf("api %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(parsed.SVG) == "" || strings.TrimSpace(parsed.PNGBase64) == "" {
		return Response{}, errors.New("API returned an empty document")
	}
	if _, err := DecodeBase64PNG(parsed.PNGBase64); err != nil {
		return Response{}, fmt.Errorf("API returned an invalid png: %w", err)
	}
	return parsed, nil
}

// BuildURL normalizes a server host into a base URL and appends path.
func BuildURL(serverHost, path string) (string, error) {
	host := strings.TrimSpace(serverHost)
	if host == "" {
		host = "127.0.0.1"
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", errors.New("invalid server host")
	}
	if parsed.Port() == "" {
		parsed.Host = net.JoinHostPort(parsed.Hostname(), defaultPort)
	}
	parsed.Path = path
	return parsed.String(), nil
}

func DecodeBase64PNG(encoded string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(raw))
}
