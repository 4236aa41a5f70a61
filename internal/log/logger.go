// Package log configures the process-wide zerolog logger.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	File    string    // optional file appended to alongside Output
	Output  io.Writer // defaults to os.Stdout
	Console bool      // human readable output instead of JSON
	Service string
}

var (
	mu         sync.Mutex
	base       = zerolog.New(os.Stdout).With().Timestamp().Str("service", "qrforge").Logger()
	configured bool
	file       *os.File
)

// Configure replaces the global logger. A log file that cannot be opened is
// reported but does not prevent logging to Output.
func Configure(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(cfg.Level); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	closeFile()
	writers := []io.Writer{out}
	var fileErr error
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := openLogFile(path)
		if err != nil {
			fileErr = err
		} else {
			file = f
			writers = append(writers, f)
		}
	}

	service := cfg.Service
	if service == "" {
		service = "qrforge"
	}
	base = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().
		Timestamp().
		Str("service", service).
		Logger()
	configured = true
	return fileErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Close flushes and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
}

func closeFile() {
	if file != nil {
		_ = file.Close()
		file = nil
	}
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

// Configured reports whether Configure has run.
func Configured() bool {
	mu.Lock()
	defer mu.Unlock()
	return configured
}
