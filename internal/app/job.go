package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gmb_sync/internal/adapters/observability"
	"gmb_sync/internal/domain"
)

const (
	DoneBody   = "Done pulling reviews and location data for all GMBs"
	FailedBody = "Failed to load GMB locations"
)

type ReviewsMode string

const (
	ReviewsInline ReviewsMode = "inline"
	ReviewsQueue  ReviewsMode = "queue"
)

// Summary counts what one run did.
type Summary struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationMS      int64     `json:"duration_ms"`
	Cancelled       bool      `json:"cancelled,omitempty"`
	Locations       int       `json:"locations"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	Inserted        int       `json:"locations_inserted"`
	Updated         int       `json:"locations_updated"`
	History         int       `json:"history_rows"`
	Notifications   int       `json:"notifications"`
	KeywordChecks   int       `json:"keyword_checks"`
	ReviewsInserted int       `json:"reviews_inserted"`
	ReviewsUpdated  int       `json:"reviews_updated"`
	ReviewsQueued   int       `json:"reviews_queued"`
	MediaQueued     int       `json:"media_queued"`
}

type Result struct {
	StatusCode int     `json:"status_code"`
	Body       string  `json:"body"`
	Summary    Summary `json:"summary"`
}

type JobConfig struct {
	Queues      Queues
	ReviewsMode ReviewsMode
}

// Job walks every registered location once, in order.
type Job struct {
	store     domain.Store
	tokens    domain.TokenRefresher
	locations *LocationSync
	reviews   *ReviewSync
	pub       domain.Publisher
	cfg       JobConfig
	now       func() time.Time
}

func NewJob(s domain.Store, tokens domain.TokenRefresher, locations *LocationSync, reviews *ReviewSync, pub domain.Publisher, cfg JobConfig) *Job {
	if cfg.ReviewsMode == "" {
		cfg.ReviewsMode = ReviewsInline
	}
	return &Job{store: s, tokens: tokens, locations: locations, reviews: reviews, pub: pub, cfg: cfg, now: time.Now}
}

// Run syncs every location. A failing location is logged and counted and the
// loop moves on; only failing to list the locations fails the run.
func (j *Job) Run(ctx context.Context) Result {
	start := j.now()
	sum := Summary{RunID: uuid.NewString(), StartedAt: start.UTC()}
	l := log.With().Str("run_id", sum.RunID).Logger()
	l.Info().Str("reviews_mode", string(j.cfg.ReviewsMode)).Msg("sync run started")

	bridges, err := j.store.ListLocationBridges(ctx)
	if err != nil {
		l.Error().Err(err).Msg("list location bridges")
		return j.finish(l, start, sum, http.StatusInternalServerError, FailedBody)
	}

	var media []any
	for _, b := range bridges {
		if ctx.Err() != nil {
			sum.Cancelled = true
			l.Warn().Int("remaining", len(bridges)-sum.Locations).Msg("sync run cancelled")
			break
		}
		sum.Locations++
		if m := j.syncOne(ctx, l, b, &sum); m != nil {
			media = append(media, *m)
		}
	}

	if len(media) > 0 {
		// ctx may be done by now; the batch is still owed to the media worker
		if err := j.pub.Publish(context.WithoutCancel(ctx), j.cfg.Queues.Media, media...); err != nil {
			l.Error().Err(err).Int("messages", len(media)).Msg("send media batch")
		} else {
			sum.MediaQueued = len(media)
		}
	}
	j.reportBacklog(context.WithoutCancel(ctx), l)

	return j.finish(l, start, sum, http.StatusOK, DoneBody)
}

// backlog is implemented by publishers that can report queue length.
type backlog interface {
	Len(ctx context.Context, queue string) (int64, error)
}

// reportBacklog records how many messages the downstream workers still owe.
func (j *Job) reportBacklog(ctx context.Context, l zerolog.Logger) {
	b, ok := j.pub.(backlog)
	if !ok {
		return
	}
	for _, q := range []string{j.cfg.Queues.KeywordStuffing, j.cfg.Queues.Reviews, j.cfg.Queues.Media} {
		n, err := b.Len(ctx, q)
		if err != nil {
			l.Warn().Err(err).Str("queue", q).Msg("queue length")
			continue
		}
		observability.ObserveQueueDepth(q, n)
	}
}

func (j *Job) finish(l zerolog.Logger, start time.Time, sum Summary, status int, body string) Result {
	d := j.now().Sub(start)
	sum.DurationMS = d.Milliseconds()
	observability.ObserveRun(status, d)
	l.Info().
		Int("status", status).
		Int("locations", sum.Locations).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Int("history", sum.History).
		Int("notifications", sum.Notifications).
		Dur("took", d).
		Msg("sync run finished")
	return Result{StatusCode: status, Body: body, Summary: sum}
}

// syncOne runs the per-location pipeline and returns the media message owed
// for it, nil when the location was skipped.
func (j *Job) syncOne(ctx context.Context, l zerolog.Logger, b domain.LocationBridge, sum *Summary) *domain.LocationMessage {
	l = l.With().Str("gmb_id", b.GMBID).Int64("org_id", b.OrganizationID).Logger()

	if b.AccountID == "" {
		l.Warn().Msg("location has no account id, skipped")
		sum.Skipped++
		observability.ObserveLocationSync("skipped")
		return nil
	}

	cred, err := j.store.GetCredential(ctx, b.OrganizationID, b.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			l.Warn().Str("account_id", b.AccountID).Msg("no credential for account, skipped")
			sum.Skipped++
			observability.ObserveLocationSync("skipped")
		} else {
			l.Error().Err(err).Msg("load credential")
			sum.Failed++
			observability.ObserveLocationSync("failed")
		}
		return nil
	}

	msg := domain.LocationMessage{OrganizationID: b.OrganizationID, GMBID: b.GMBID, AccountID: b.AccountID}

	token, err := j.tokens.AccessToken(ctx, cred.RefreshToken)
	if err != nil {
		l.Error().Err(err).Msg("refresh access token")
		if j.cfg.ReviewsMode == ReviewsQueue {
			j.queueReviews(ctx, l, msg, sum)
		}
		sum.Failed++
		observability.ObserveLocationSync("failed")
		return &msg
	}

	result := "unchanged"
	loc, err := j.locations.Fetch(ctx, token, b.GMBID)
	if err == nil {
		var out LocationOutcome
		out, err = j.locations.Apply(ctx, b.OrganizationID, loc)
		sum.History += out.History
		sum.Notifications += out.Notifications
		sum.KeywordChecks += out.KeywordChecks
		switch {
		case out.Inserted:
			sum.Inserted++
			result = "inserted"
		case out.Updated:
			sum.Updated++
			result = "updated"
		}
	}
	if err != nil {
		l.Error().Err(err).Msg("location sync")
		result = "failed"
	}

	if j.cfg.ReviewsMode == ReviewsQueue {
		j.queueReviews(ctx, l, msg, sum)
	} else {
		ro, err := j.reviews.Sync(ctx, token, b.AccountID, b.GMBID)
		sum.ReviewsInserted += ro.Inserted
		sum.ReviewsUpdated += ro.Updated
		if err != nil {
			l.Error().Err(err).Msg("review sync")
			result = "failed"
		}
	}

	if result == "failed" {
		sum.Failed++
	}
	observability.ObserveLocationSync(result)
	return &msg
}

func (j *Job) queueReviews(ctx context.Context, l zerolog.Logger, msg domain.LocationMessage, sum *Summary) {
	if err := j.pub.Publish(ctx, j.cfg.Queues.Reviews, msg); err != nil {
		l.Error().Err(err).Msg("send reviews message")
		return
	}
	sum.ReviewsQueued++
}
