// Command runc-shim is installed in place of the real low-level runtime
// binary (the original is renamed aside during setup). It intercepts
// create/start/checkpoint/resume/delete for opted-in containers and passes
// everything else straight through.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/container-tools/runcshim"
)

func main() {
	fs := runcshim.NewDefaultFileOps()
	runcshim.InitLogging(runcshim.LoggingConfig(fs, "/var/log/runcshim/shim.log"))

	ctx := context.Background()
	shutdown, err := runcshim.InitTracing(ctx, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize tracing, continuing without it", "err", err)
		shutdown = func(context.Context) error { return nil }
	}

	flags, err := runcshim.NewFlagStore(runcshim.DefaultStateDir)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize flag store", "err", err)
		shutdown(ctx)
		os.Exit(1)
	}

	engine := runcshim.NewEngine(fs, flags)
	// os.Exit skips deferred calls, so flush buffered spans explicitly
	// before exiting. Pass-through paths never reach this line at all: the
	// process image has already been replaced.
	code := engine.Run(ctx, os.Args)
	shutdown(ctx)
	os.Exit(code)
}
