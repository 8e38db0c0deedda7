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
	"github.com/gridwatch/dcimpact/pkg/server"
	"github.com/gridwatch/dcimpact/pkg/storage"
)

func main() {
	// init packages
	loader := scenario.Configured()
	s := storage.Configured()

	// init server
	srv := server.Configured(s, loader)

	// parse flags
	lflag.Configure()
	log.ConfigureFromFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
