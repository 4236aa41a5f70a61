package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"qrforge/internal/blob"
	"qrforge/internal/config"
	"qrforge/internal/export"
	"qrforge/internal/metrics"
	"qrforge/internal/qr"
	"qrforge/internal/studio"
)

const maxBodyBytes = 8 << 20

// exportTimeout bounds how long POST /qr waits for the raster export.
var exportTimeout = 30 * time.Second

func NewHTTPHandler(cfg config.Config, logger zerolog.Logger) http.Handler {
	api := &apiServer{
		logger: logger,
		defaults: studio.Defaults{
			Theme: cfg.DefaultTheme,
			Size:  cfg.DefaultSize,
			Level: cfg.Level(),
		},
	}

	r := chi.NewRouter()
	r.Use(accessLogMiddleware(logger))
	r.Use(newExportGuard(cfg.APIToken, logger).Middleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})

	r.Get("/status", api.handleStatus)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(rateLimit(cfg.RateLimit, time.Minute))
		}
		r.Get("/qr.png", api.handlePNG)
		r.Get("/qr.svg", api.handleSVG)
		r.Post("/qr", api.handleCreate)
	})
	return r
}

type apiServer struct {
	logger   zerolog.Logger
	defaults studio.Defaults
}

func (a *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	themes := make([]string, 0, len(qr.Themes))
	for _, t := range qr.Themes {
		themes = append(themes, t.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"themes": themes,
		"levels": qr.Levels,
		"size": map[string]int{
			"min":     qr.MinSize,
			"max":     qr.MaxSize,
			"step":    qr.SizeStep,
			"default": a.defaults.Size,
		},
		"default_theme": a.defaults.Theme,
		"default_level": a.defaults.Level,
	})
}

func (a *apiServer) handlePNG(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.serveExport(w, req, func(p *export.Pipeline) export.Result {
		return p.ExportPNG(r.Context()).Await()
	})
}

func (a *apiServer) handleSVG(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.serveExport(w, req, func(p *export.Pipeline) export.Result {
		return p.ExportSVG()
	})
}

// serveExport streams the artifact as an attachment through the pipeline's
// download step.
func (a *apiServer) serveExport(w http.ResponseWriter, req qrRequest, run func(*export.Pipeline) export.Result) {
	state, store, err := req.build(a.defaults, a.logger)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	defer state.Close()

	dl := &responseDownloader{w: w, resolver: store}
	res := run(a.pipeline(state, store, dl))
	switch {
	case res.Skipped:
		writeError(w, http.StatusBadRequest, qr.ErrEmptyPayload)
	case res.Err != nil && !dl.written:
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%s: %w", res.Toast, res.Err))
	case res.Err != nil:
		a.logger.Warn().Err(res.Err).Str("kind", string(res.Kind)).Msg("response write failed")
	}
}

func (a *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req qrRequest
	if r.Body != nil {
		defer r.Body.Close()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read request body: %w", err))
			return
		}
		if strings.TrimSpace(string(body)) != "" {
			if err := json.Unmarshal(body, &req); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
				return
			}
		}
	}

	state, store, err := req.build(a.defaults, a.logger)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	defer state.Close()

	p := a.pipeline(state, store, resolvingDownloader{resolver: store})
	svg := p.ExportSVG()
	if svg.Skipped {
		writeError(w, http.StatusBadRequest, qr.ErrEmptyPayload)
		return
	}
	if svg.Err != nil {
		writeError(w, http.StatusInternalServerError, svg.Err)
		return
	}
	png, err := p.ExportPNG(r.Context()).AwaitWithTimeout(exportTimeout)
	if errors.Is(err, export.ErrTimeout) {
		writeError(w, http.StatusGatewayTimeout, err)
		return
	}
	if png.Err != nil {
		writeError(w, http.StatusInternalServerError, png.Err)
		return
	}

	cfg := state.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"text":       cfg.Payload(),
		"size":       cfg.Size,
		"level":      cfg.Level,
		"fg":         cfg.Foreground,
		"bg":         cfg.Background,
		"logo":       state.LogoName(),
		"svg":        string(svg.Artifact.Data),
		"png_base64": base64.StdEncoding.EncodeToString(png.Artifact.Data),
	})
}

func (a *apiServer) pipeline(state *studio.State, store *blob.Store, dl export.Downloader) *export.Pipeline {
	return export.New(state, store, export.Options{
		Downloader: dl,
		Recorder:   metrics.Exports{},
		Logger:     a.logger,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, qr.ErrEmptyPayload),
		errors.Is(err, qr.ErrSizeOutOfRange),
		errors.Is(err, qr.ErrInvalidLevel),
		errors.Is(err, qr.ErrInvalidColor),
		errors.Is(err, qr.ErrUnknownTheme),
		errors.Is(err, studio.ErrUnsupportedImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// responseDownloader answers the request with the downloaded file.
type responseDownloader struct {
	w        http.ResponseWriter
	resolver blob.Resolver
	written  bool
}

func (d *responseDownloader) Download(name, href string) error {
	b, err := d.resolver.Resolve(href)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	h := d.w.Header()
	h.Set("Content-Type", b.Type)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	h.Set("Content-Length", strconv.Itoa(b.Size()))
	d.w.WriteHeader(http.StatusOK)
	d.written = true
	_, err = d.w.Write(b.Data)
	return err
}

// resolvingDownloader only checks that href is live; the artifact travels in
// the export result.
type resolvingDownloader struct {
	resolver blob.Resolver
}

func (d resolvingDownloader) Download(name, href string) error {
	if _, err := d.resolver.Resolve(href); err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	return nil
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
		}),
	)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, err error) {
	writeJSON(w, statusCode, map[string]string{
		"error": err.Error(),
	})
}

type loggingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

func accessLogMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &loggingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(lw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			metrics.ObserveRequest(route, strconv.Itoa(lw.statusCode))
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", lw.statusCode).
				Dur("duration", time.Since(start).Truncate(time.Millisecond)).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}
