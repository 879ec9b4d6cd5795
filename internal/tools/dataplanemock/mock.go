// Package dataplanemock implements the dataplane-mock command: a local
// collector that accepts analytics requests and records them.
package dataplanemock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/randalmurphal/rudderanalytics/internal/dataplane"
	"github.com/randalmurphal/rudderanalytics/pkg/analytics/config"
)

const shutdownTimeout = 5 * time.Second

// Config holds dataplane-mock configuration.
type Config struct {
	Addr     string `env:"DATAPLANE_ADDR" envDefault:"127.0.0.1:8080"`
	WriteKey string `env:"DATAPLANE_WRITE_KEY"`
	// DBPath selects a SQLite store. Empty keeps records in memory.
	DBPath   string `env:"DATAPLANE_DB_PATH"`
	LogLevel string `env:"DATAPLANE_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := config.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OpenStore returns the store selected by cfg.
func OpenStore(cfg Config) (dataplane.Store, error) {
	if cfg.DBPath == "" {
		return dataplane.NewMemoryStore(), nil
	}
	store, err := dataplane.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// Run listens on cfg.Addr and serves until ctx is done.
func Run(ctx context.Context, cfg Config, logOut io.Writer) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	return Serve(ctx, cfg, ln, logOut)
}

// Serve runs the collector on ln until ctx is done, then shuts down
// gracefully. ln is closed on return.
func Serve(ctx context.Context, cfg Config, ln net.Listener, logOut io.Writer) error {
	if logOut == nil {
		logOut = io.Discard
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		ln.Close()
		return err
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	store, err := OpenStore(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Handler: dataplane.NewServer(store,
			dataplane.WithWriteKey(cfg.WriteKey),
			dataplane.WithLogger(logger),
		).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("data plane listening", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("data plane shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
