// Command dataplane-mock runs a local data plane that records every
// analytics request it accepts.
//
//	DATAPLANE_ADDR=127.0.0.1:8080 DATAPLANE_WRITE_KEY=wk dataplane-mock
//	curl 'http://127.0.0.1:8080/messages?type=track'
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/randalmurphal/rudderanalytics/internal/cli"
	"github.com/randalmurphal/rudderanalytics/internal/tools/dataplanemock"
)

func main() {
	cfg, err := dataplanemock.LoadConfig()
	if err != nil {
		cli.Exitf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dataplanemock.Run(ctx, cfg, os.Stderr); err != nil {
		cli.Exitf("Error: %v", err)
	}
}
