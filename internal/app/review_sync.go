package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"gmb_sync/internal/adapters/observability"
	"gmb_sync/internal/diff"
	"gmb_sync/internal/domain"
)

type ReviewSync struct {
	store    domain.Store
	provider domain.ProfileProvider
	now      func() time.Time
}

func NewReviewSync(s domain.Store, p domain.ProfileProvider) *ReviewSync {
	return &ReviewSync{store: s, provider: p, now: time.Now}
}

type ReviewOutcome struct {
	Fetched   int
	Inserted  int
	Updated   int
	Unchanged int
}

// Sync fetches every review of a location and reconciles them with the store.
func (s *ReviewSync) Sync(ctx context.Context, token, accountID, gmbID string) (ReviewOutcome, error) {
	payloads, err := s.Fetch(ctx, token, accountID, gmbID)
	if err != nil {
		return ReviewOutcome{}, err
	}
	return s.Apply(ctx, gmbID, payloads)
}

// Fetch drains the paginated review listing. Nothing is returned on a
// mid-listing failure, so a partial listing is never applied.
func (s *ReviewSync) Fetch(ctx context.Context, token, accountID, gmbID string) ([]map[string]any, error) {
	var out []map[string]any
	for r, err := range s.provider.Reviews(ctx, token, accountID, gmbID) {
		if err != nil {
			return nil, fmt.Errorf("fetch reviews for %s: %w", gmbID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Apply inserts unseen reviews and overwrites changed ones. Stored reviews
// missing from payloads are left as they are.
func (s *ReviewSync) Apply(ctx context.Context, gmbID string, payloads []map[string]any) (ReviewOutcome, error) {
	out := ReviewOutcome{Fetched: len(payloads)}
	l := log.With().Str("gmb_id", gmbID).Logger()

	rows, err := s.store.ListReviews(ctx, gmbID)
	if err != nil {
		return out, fmt.Errorf("load reviews for %s: %w", gmbID, err)
	}
	existing := make(map[string]domain.Row, len(rows))
	for _, r := range rows {
		if id, ok := r["id"].(string); ok {
			existing[id] = r
		}
	}

	fields := domain.FieldNames(domain.ReviewFields())
	now := s.now()
	for _, p := range payloads {
		rv := mapReview(gmbID, p, now)
		if rv.ID == "" {
			l.Warn().Msg("review without reviewId skipped")
			continue
		}

		stored, ok := existing[rv.ID]
		if !ok {
			row := rv.Row()
			if err := s.store.InsertReview(ctx, row); err != nil {
				return out, fmt.Errorf("insert review %s: %w", rv.ID, err)
			}
			existing[rv.ID] = row
			out.Inserted++
			observability.ObserveReviewWrite("inserted")
			l.Info().Str("review_id", rv.ID).Msg("review inserted")
			continue
		}

		next := rv.UpdateRow()
		changes := diff.DiffFlat(stored, next, fields)
		if len(changes) == 0 {
			out.Unchanged++
			observability.ObserveReviewWrite("unchanged")
			continue
		}
		for _, c := range changes {
			l.Debug().Str("review_id", rv.ID).Str("field", c.Field).Msg("review field changed")
			observability.ObserveChange("review", c.Field)
		}
		if err := s.store.UpdateReview(ctx, rv.ID, next); err != nil {
			return out, fmt.Errorf("update review %s: %w", rv.ID, err)
		}
		existing[rv.ID] = next
		out.Updated++
		observability.ObserveReviewWrite("updated")
		l.Info().Str("review_id", rv.ID).Int("changes", len(changes)).Msg("review updated")
	}
	return out, nil
}
