// Command rudder-send delivers one analytics message to a data plane.
//
//	echo '{"type":"track","userId":"u1","event":"Signed Up"}' | rudder-send
//	rudder-send -config rudder.yaml -type identify -file user.json -retries 3
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/randalmurphal/rudderanalytics/internal/cli"
	"github.com/randalmurphal/rudderanalytics/internal/tools/send"
)

func main() {
	cfg, err := send.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		cli.Exitf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := send.Run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		cli.Exitf("Error: %v", err)
	}
}
