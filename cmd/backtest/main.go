package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/levenlabs/go-lflag"

	"github.com/gridwatch/dcimpact/pkg/backtest"
	"github.com/gridwatch/dcimpact/pkg/log"
)

func main() {
	seed := lflag.String("seed", strconv.FormatUint(backtest.DefaultSynthetic.Seed, 10), "Seed for the synthetic history")
	months := lflag.String("months", strconv.Itoa(backtest.DefaultSynthetic.Months), "Length of the synthetic history in months")
	format := lflag.String("format", "text", "Report format (text or json)")
	output := lflag.String("output", "", "Write the report to this file instead of stdout")

	// parse flags
	lflag.Configure()
	log.ConfigureFromFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := backtest.DefaultConfig()
	var err error
	if cfg.Synthetic.Seed, err = strconv.ParseUint(*seed, 10, 64); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid seed", slog.String("seed", *seed), slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Synthetic.Months, err = strconv.Atoi(*months); err != nil || cfg.Synthetic.Months <= 0 {
		log.Ctx(ctx).ErrorContext(ctx, "invalid months", slog.String("months", *months))
		os.Exit(1)
	}

	rep, err := backtest.Run(ctx, cfg)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "backtest failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writeReport(*output, rep, *format); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to write report", slog.Any("error", err))
		os.Exit(1)
	}
}

// writeReport writes rep to path, or to stdout when path is empty.
func writeReport(path string, rep *backtest.Report, format string) error {
	if path == "" {
		return write(os.Stdout, rep, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f, rep, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func write(w io.Writer, rep *backtest.Report, format string) error {
	switch format {
	case "text":
		return rep.WriteText(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
