// Package send implements the rudder-send command: read one message as
// JSON and deliver it to a data plane.
package send

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/randalmurphal/rudderanalytics/pkg/analytics"
	"github.com/randalmurphal/rudderanalytics/pkg/analytics/config"
	"github.com/randalmurphal/rudderanalytics/pkg/analytics/observability"
	"github.com/randalmurphal/rudderanalytics/pkg/analytics/retry"
)

// Config holds rudder-send command configuration.
type Config struct {
	ConfigPath string
	Type       string
	File       string
	// Retries overrides the configured retry count when non-negative.
	Retries int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Retries: -1}
	fs.StringVar(&cfg.ConfigPath, "config", "", "path to a YAML or JSON settings file")
	fs.StringVar(&cfg.Type, "type", "", "message type (identify, track, page, screen, group, alias, batch); default: the document's \"type\"")
	fs.StringVar(&cfg.File, "file", "-", "message JSON file, or - for stdin")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "retries for transient failures (default: settings value)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads settings, reads the message and sends it. A one-line summary
// is written to out; logs go to errOut.
func Run(ctx context.Context, cfg Config, in io.Reader, out, errOut io.Writer) error {
	if out == nil || errOut == nil {
		return errors.New("output is required")
	}

	settings, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if cfg.Retries >= 0 {
		settings.Retries = cfg.Retries
	}

	level, err := config.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(errOut, &slog.HandlerOptions{Level: level}))

	shutdown, err := observability.Setup(ctx, settings.ServiceName, settings.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", slog.String("error", err.Error()))
		}
	}()

	data, err := readInput(cfg.File, in)
	if err != nil {
		return err
	}
	msg, err := Decode(cfg.Type, data)
	if err != nil {
		return err
	}

	client := analytics.Load(settings.WriteKey, settings.DataPlaneURL,
		analytics.WithTimeout(settings.Timeout),
		analytics.WithLogger(logger),
		analytics.WithTracing(settings.OTelEndpoint != ""),
	)

	retryCfg := retry.NewConfig(
		retry.WithMaxAttempts(settings.Retries+1),
		retry.WithOnRetry(func(attempt int, err error, backoff time.Duration) {
			logger.Info("retrying send",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)
		}),
	)

	result := retry.Send(ctx, retryCfg, client, msg)
	if result.Err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), result.Err)
	}

	path, _ := analytics.Validate(msg)
	_, err = fmt.Fprintf(out, "sent %s to %s%s (attempts: %d)\n", msg.Type(), settings.DataPlaneURL, path, result.Attempts)
	return err
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		if stdin == nil {
			return nil, errors.New("no input: stdin is not available")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message file: %w", err)
	}
	return data, nil
}
