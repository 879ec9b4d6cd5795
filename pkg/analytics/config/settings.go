package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default settings values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultLogLevel    = "info"
	DefaultServiceName = "rudder-send"
)

// ErrMissingSetting is returned by Settings.Validate when a required value
// was not provided by either the file or the environment.
var ErrMissingSetting = errors.New("missing required setting")

// Settings holds what a binary needs to construct a client.
// File keys are snake_case; environment variables override them.
type Settings struct {
	WriteKey     string        `env:"RUDDER_WRITE_KEY"`
	DataPlaneURL string        `env:"RUDDER_DATA_PLANE_URL"`
	Timeout      time.Duration `env:"RUDDER_TIMEOUT"`
	LogLevel     string        `env:"RUDDER_LOG_LEVEL"`
	OTelEndpoint string        `env:"RUDDER_OTEL_ENDPOINT"`
	ServiceName  string        `env:"RUDDER_SERVICE_NAME"`
	Retries      int           `env:"RUDDER_RETRIES"`
}

// SettingsFrom reads Settings out of cfg, falling back to defaults.
func SettingsFrom(cfg Config) Settings {
	return Settings{
		WriteKey:     cfg.String("write_key", ""),
		DataPlaneURL: cfg.String("data_plane_url", ""),
		Timeout:      cfg.Duration("timeout", DefaultTimeout),
		LogLevel:     cfg.String("log_level", DefaultLogLevel),
		OTelEndpoint: cfg.String("otel_endpoint", ""),
		ServiceName:  cfg.String("service_name", DefaultServiceName),
		Retries:      cfg.Int("retries", 0),
	}
}

// Load builds Settings from an optional file and the environment.
// An empty path skips the file. String values in the file may reference
// environment variables as ${NAME}. Unset RUDDER_* variables leave the
// file (or default) value in place.
func Load(path string) (Settings, error) {
	cfg := New(nil)
	if path != "" {
		var err error
		if cfg, err = FromFile(path); err != nil {
			return Settings{}, err
		}
		if cfg, err = Expand(cfg, os.LookupEnv); err != nil {
			return Settings{}, fmt.Errorf("expand %s: %w", path, err)
		}
	}

	s := SettingsFrom(cfg)
	if err := ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ParseEnv overlays environment variables onto target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports missing or out-of-range values.
func (s Settings) Validate() error {
	if s.WriteKey == "" {
		return fmt.Errorf("%w: write_key (RUDDER_WRITE_KEY)", ErrMissingSetting)
	}
	if s.DataPlaneURL == "" {
		return fmt.Errorf("%w: data_plane_url (RUDDER_DATA_PLANE_URL)", ErrMissingSetting)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", s.Timeout)
	}
	if s.Retries < 0 {
		return fmt.Errorf("retries must not be negative: %d", s.Retries)
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name (debug, info, warn, error) to slog.Level.
// An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
