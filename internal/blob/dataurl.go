package blob

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedDataURL = errors.New("malformed data url")

// DataURL encodes b as a base64 data URL, the form a canvas hands out.
func DataURL(b Blob) string {
	return "data:" + b.Type + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

func ParseDataURL(raw string) (Blob, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return Blob{}, ErrMalformedDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Blob{}, ErrMalformedDataURL
	}

	params := strings.Split(meta, ";")
	mime := params[0]
	if mime == "" {
		mime = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}
	if !isBase64 {
		return Blob{}, fmt.Errorf("%w: only base64 payloads are supported", ErrMalformedDataURL)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Blob{}, fmt.Errorf("decode data url: %w", err)
	}
	return Blob{Data: data, Type: mime}, nil
}
