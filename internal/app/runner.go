package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Syncer is one full sync pass.
type Syncer interface {
	Run(ctx context.Context) Result
}

// Runner serializes sync triggers. A trigger arriving while a run is in
// flight joins that run instead of starting another.
type Runner struct {
	job     Syncer
	group   singleflight.Group
	running atomic.Bool

	mu   sync.Mutex
	last *Result
}

func NewRunner(job Syncer) *Runner {
	return &Runner{job: job}
}

// Run executes a sync, or waits for the one already running. shared reports
// whether the result came from a run started by another caller.
func (r *Runner) Run(ctx context.Context) (res Result, shared bool) {
	v, _, shared := r.group.Do("sync", func() (any, error) {
		r.running.Store(true)
		defer r.running.Store(false)

		res := r.job.Run(ctx)
		r.mu.Lock()
		r.last = &res
		r.mu.Unlock()
		return res, nil
	})
	return v.(Result), shared
}

// Trigger starts a run in the background and reports false when one was
// already in flight.
func (r *Runner) Trigger(ctx context.Context) bool {
	if r.running.Load() {
		return false
	}
	go func() {
		res, shared := r.Run(context.WithoutCancel(ctx))
		if !shared {
			log.Debug().Str("run_id", res.Summary.RunID).Msg("triggered run done")
		}
	}()
	return true
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool { return r.running.Load() }

// Last returns the result of the most recent finished run.
func (r *Runner) Last() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}
