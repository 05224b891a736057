package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"gmb_sync/internal/bootstrap"
)

// One sync pass over every registered location; prints the result as JSON.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config()
	log.Info().
		Str("reviews_mode", cfg.ReviewsMode).
		Int("rps", cfg.APIRPS).
		Msg("syncer starting")

	a, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer a.Close()

	res := a.Job.Run(ctx)
	if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
		log.Error().Err(err).Msg("write result")
	}
	if res.StatusCode != http.StatusOK {
		a.Close()
		os.Exit(1)
	}
	log.Info().Str("run_id", res.Summary.RunID).Msg("sync completed")
}
