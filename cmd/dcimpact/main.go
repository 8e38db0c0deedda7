package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"

	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/storage"
)

func main() {
	// init packages
	loader := scenario.Configured()
	s := storage.Configured()

	dataDir := lflag.String("data-dir", "data", "Directory for the forecast CSV, summary CSV and workbook")
	chartsDir := lflag.String("charts-dir", "outputs/charts", "Directory for rendered charts")
	chartFormat := lflag.String("chart-format", "jpg", "Chart image format (jpg, png, svg, pdf)")
	storeRun := lflag.Bool("store-run", false, "Persist the run to the configured storage provider")

	// parse flags
	lflag.Configure()
	log.ConfigureFromFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	sc, err := loader.Load()
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid scenario", slog.Any("error", err))
		os.Exit(1)
	}

	opts := options{
		DataDir:     *dataDir,
		ChartsDir:   *chartsDir,
		ChartFormat: *chartFormat,
	}
	if *storeRun {
		opts.Store = s
	}
	out, err := run(ctx, sc, opts)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "forecast failed", slog.Any("error", err))
		os.Exit(1)
	}
	for _, p := range out.Files {
		log.Ctx(ctx).InfoContext(ctx, "generated", slog.String("path", p))
	}
	if out.RunID != "" {
		log.Ctx(ctx).InfoContext(ctx, "run stored", slog.String("runID", out.RunID))
	}
}
