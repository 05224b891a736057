package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"gmb_sync/internal/domain"
)

// ReviewWorker drains the reviews queue, one location at a time.
type ReviewWorker struct {
	store    domain.Store
	tokens   domain.TokenRefresher
	reviews  *ReviewSync
	consumer domain.Consumer
	queue    string
	wait     time.Duration
}

func NewReviewWorker(s domain.Store, tokens domain.TokenRefresher, reviews *ReviewSync, c domain.Consumer, queue string, wait time.Duration) *ReviewWorker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &ReviewWorker{store: s, tokens: tokens, reviews: reviews, consumer: c, queue: queue, wait: wait}
}

// Run pops until ctx is done. Bad messages are logged and dropped.
func (w *ReviewWorker) Run(ctx context.Context) error {
	log.Info().Str("queue", w.queue).Msg("review worker started")
	for {
		if ctx.Err() != nil {
			return nil
		}
		body, ok, err := w.consumer.Pop(ctx, w.queue, w.wait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Str("queue", w.queue).Msg("pop reviews message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.wait):
			}
			continue
		}
		if !ok {
			continue
		}
		if _, err := w.Handle(ctx, body); err != nil {
			log.Error().Err(err).Msg("reviews message")
		}
	}
}

// Handle syncs the reviews of the location named by one queue message.
func (w *ReviewWorker) Handle(ctx context.Context, body []byte) (ReviewOutcome, error) {
	var msg domain.LocationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return ReviewOutcome{}, fmt.Errorf("decode reviews message: %w", err)
	}
	if msg.GMBID == "" || msg.AccountID == "" {
		return ReviewOutcome{}, fmt.Errorf("reviews message missing gmb_id or account_id")
	}
	cred, err := w.store.GetCredential(ctx, msg.OrganizationID, msg.AccountID)
	if err != nil {
		return ReviewOutcome{}, fmt.Errorf("credential for %s: %w", msg.GMBID, err)
	}
	token, err := w.tokens.AccessToken(ctx, cred.RefreshToken)
	if err != nil {
		return ReviewOutcome{}, fmt.Errorf("refresh token for %s: %w", msg.GMBID, err)
	}
	out, err := w.reviews.Sync(ctx, token, msg.AccountID, msg.GMBID)
	if err != nil {
		return out, err
	}
	log.Info().
		Str("gmb_id", msg.GMBID).
		Int("inserted", out.Inserted).
		Int("updated", out.Updated).
		Msg("reviews synced")
	return out, nil
}
