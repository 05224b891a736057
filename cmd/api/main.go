package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "gmb_sync/internal/adapters/http_server"
	"gmb_sync/internal/adapters/observability"
	"gmb_sync/internal/app"
	"gmb_sync/internal/bootstrap"
	"gmb_sync/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	a, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer a.Close()
	runner := app.NewRunner(a.Job)

	sched := scheduler.New(cfg.SyncCron, runner)
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed")
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Runner: runner})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	<-sched.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
