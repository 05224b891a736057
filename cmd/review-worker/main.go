package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"gmb_sync/internal/adapters/observability"
	"gmb_sync/internal/app"
	"gmb_sync/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config()
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	a, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer a.Close()

	w := app.NewReviewWorker(a.Store, a.Tokens, a.Reviews, a.Queue, cfg.ReviewsQueue, cfg.WorkerWait)
	if err := w.Run(ctx); err != nil {
		log.Error().Err(err).Msg("review worker stopped")
		return
	}
	log.Info().Msg("review worker stopped")
}
