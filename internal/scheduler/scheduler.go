package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"gmb_sync/internal/app"
)

// Trigger starts a sync run unless one is already in flight.
type Trigger interface {
	Trigger(ctx context.Context) bool
}

// Scheduler fires sync runs on a cron spec (standard five fields, UTC).
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	trigger Trigger
}

func New(spec string, t Trigger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger{}))),
		spec:    spec,
		trigger: t,
	}
}

// Start registers the sync job and starts the cron loop. An empty spec
// disables scheduling.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		log.Info().Msg("scheduler disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		if !s.trigger.Trigger(ctx) {
			log.Warn().Msg("scheduled sync skipped, previous run still in flight")
			return
		}
		log.Info().Msg("scheduled sync started")
	})
	if err != nil {
		return fmt.Errorf("cron spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Info().Str("cron", s.spec).Msg("scheduler started")
	return nil
}

// Stop stops the loop and returns a context done when no job is running.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

var _ Trigger = (*app.Runner)(nil)

// cronLogger adapts cron's logger to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	log.Debug().Fields(kv).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
