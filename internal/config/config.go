// Package config loads qrforge settings from built-in defaults, an optional
// qrforge.toml, a .env file and QRFORGE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"qrforge/internal/qr"
)

const (
	FileName  = "qrforge.toml"
	EnvPrefix = "QRFORGE_"
)

type Config struct {
	DownloadDir string `toml:"download_dir" env:"DOWNLOAD_DIR"`
	LogLevel    string `toml:"log_level" env:"LOG_LEVEL"`
	LogFile     string `toml:"log_file" env:"LOG_FILE"`

	DefaultText  string `toml:"default_text" env:"DEFAULT_TEXT"`
	DefaultTheme string `toml:"default_theme" env:"DEFAULT_THEME"`
	DefaultSize  int    `toml:"default_size" env:"DEFAULT_SIZE"`
	DefaultLevel string `toml:"default_level" env:"DEFAULT_LEVEL"`

	APIBind   string `toml:"api_bind" env:"API_BIND"`
	APIToken  string `toml:"api_token" env:"API_TOKEN"`
	RateLimit int    `toml:"rate_limit" env:"RATE_LIMIT"`

	// Source is the settings file that was applied, empty when none was found.
	Source string `toml:"-"`
}

// Options controls where Load looks. Zero values mean the process defaults.
type Options struct {
	// Candidates are tried in order; the first readable file wins.
	Candidates []string
	// DotEnv files are loaded into the process environment without
	// overriding variables that are already set.
	DotEnv []string
	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

func Defaults() Config {
	return Config{
		DownloadDir:  defaultDownloadDir(),
		LogLevel:     "info",
		DefaultText:  "https://example.com",
		DefaultTheme: qr.DefaultTheme,
		DefaultSize:  qr.DefaultSize,
		DefaultLevel: string(qr.DefaultLevel),
		APIBind:      "127.0.0.1:8080",
		RateLimit:    60,
	}
}

// Load resolves the configuration for this process.
func Load() (Config, error) {
	return LoadWith(Options{
		Candidates: Candidates(localExecutableDir()),
		DotEnv:     []string{".env"},
	})
}

func LoadWith(opts Options) (Config, error) {
	cfg := Defaults()

	for _, candidate := range opts.Candidates {
		if _, err := toml.DecodeFile(candidate, &cfg); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("read %s: %w", candidate, err)
		}
		cfg.Source = candidate
		break
	}

	for _, path := range opts.DotEnv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	envOpts := env.Options{Prefix: EnvPrefix}
	if opts.Environ != nil {
		envOpts.Environment = opts.Environ
	}
	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.DownloadDir = strings.TrimSpace(c.DownloadDir)
	if c.DownloadDir == "" {
		c.DownloadDir = defaultDownloadDir()
	}
	c.APIToken = strings.TrimSpace(c.APIToken)

	if _, err := qr.LookupTheme(c.DefaultTheme); err != nil {
		return fmt.Errorf("default theme %q: %w", c.DefaultTheme, err)
	}
	c.DefaultTheme = strings.ToLower(strings.TrimSpace(c.DefaultTheme))

	level, err := qr.ParseLevel(c.DefaultLevel)
	if err != nil {
		return fmt.Errorf("default level %q: %w", c.DefaultLevel, err)
	}
	c.DefaultLevel = string(level)

	if err := qr.ValidateSize(c.DefaultSize); err != nil {
		return fmt.Errorf("default size: %w", err)
	}
	c.DefaultSize = qr.SnapSize(c.DefaultSize)

	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	return nil
}

// Level returns the parsed default level.
func (c Config) Level() qr.Level {
	return qr.Level(c.DefaultLevel)
}

// Candidates lists the settings files looked up next to the executable and in
// the working directory.
func Candidates(baseDir string) []string {
	if strings.TrimSpace(baseDir) == "" {
		return []string{FileName}
	}
	return []string{filepath.Join(baseDir, FileName), FileName}
}

func localExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "."
	}
	return filepath.Join(home, "Downloads")
}
