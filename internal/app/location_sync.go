package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"gmb_sync/internal/adapters/observability"
	"gmb_sync/internal/diff"
	"gmb_sync/internal/domain"
)

// Queues names the outbound queues.
type Queues struct {
	KeywordStuffing string
	Reviews         string
	Media           string
}

type LocationSync struct {
	store    domain.Store
	provider domain.ProfileProvider
	router   *Router
	pub      domain.Publisher
	queues   Queues
}

func NewLocationSync(s domain.Store, p domain.ProfileProvider, r *Router, pub domain.Publisher, q Queues) *LocationSync {
	return &LocationSync{store: s, provider: p, router: r, pub: pub, queues: q}
}

type LocationOutcome struct {
	Inserted      bool
	Updated       bool
	Changes       int
	History       int
	Notifications int
	KeywordChecks int
}

// Fetch pulls the profile and verification status of one location and
// normalizes them into the stored shape.
func (s *LocationSync) Fetch(ctx context.Context, token, gmbID string) (domain.Location, error) {
	p, err := s.provider.GetLocation(ctx, token, gmbID)
	if err != nil {
		return domain.Location{}, fmt.Errorf("fetch location %s: %w", gmbID, err)
	}
	status, err := s.provider.GetVerificationStatus(ctx, token, gmbID)
	if err != nil {
		return domain.Location{}, fmt.Errorf("fetch verification status %s: %w", gmbID, err)
	}
	if p == nil {
		p = map[string]any{}
	}
	p["verificationStatus"] = string(status)
	return mapLocation(gmbID, p), nil
}

// Apply reconciles a fetched location with the store. A location seen for the
// first time is inserted without diffing; otherwise changed rows are
// overwritten whole and their history and notifications written.
func (s *LocationSync) Apply(ctx context.Context, organizationID int64, loc domain.Location) (LocationOutcome, error) {
	var out LocationOutcome
	l := log.With().Str("gmb_id", loc.ID).Int64("org_id", organizationID).Logger()

	existing, err := s.store.GetLocation(ctx, loc.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return out, fmt.Errorf("load location %s: %w", loc.ID, err)
	}

	if existing == nil {
		// a new location has never been checked; the request goes out even
		// if the insert below fails
		if err := s.sendKeywordChecks(ctx, []domain.KeywordStuffingMessage{keywordMessage(loc)}); err != nil {
			return out, err
		}
		out.KeywordChecks = 1

		if err := s.store.InsertLocation(ctx, loc.Row()); err != nil {
			return out, fmt.Errorf("insert location %s: %w", loc.ID, err)
		}
		out.Inserted = true
		l.Info().Msg("location inserted")
		return out, nil
	}

	loc.KeywordCheckedAt = domain.KeywordCheckedAt(existing)
	next := loc.Row()
	changes := diff.Diff(existing, next, domain.FieldNames(domain.LocationFields()))
	for _, c := range changes {
		l.Info().
			Str("field", c.Field).
			Str("old", diff.Serialize(c.Old)).
			Str("new", diff.Serialize(c.New)).
			Msg("location field changed")
		observability.ObserveChange("location", c.Field)
	}

	plan, err := s.router.Route(ctx, RouteInput{
		GMBID:               loc.ID,
		OrganizationID:      organizationID,
		DisplayName:         loc.BusinessName,
		Changes:             changes,
		KeywordCheckPending: loc.KeywordCheckedAt == nil,
		KeywordMessage:      keywordMessage(loc),
	})
	if err != nil {
		return out, err
	}

	// checks are requested before any write
	if err := s.sendKeywordChecks(ctx, plan.KeywordChecks); err != nil {
		return out, err
	}
	out.KeywordChecks = len(plan.KeywordChecks)

	if len(changes) > 0 {
		if err := s.store.UpdateLocation(ctx, loc.ID, next); err != nil {
			return out, fmt.Errorf("update location %s: %w", loc.ID, err)
		}
		if err := s.store.InsertHistory(ctx, plan.History); err != nil {
			return out, fmt.Errorf("insert history for %s: %w", loc.ID, err)
		}
		if len(plan.Notifications) > 0 {
			if err := s.store.InsertNotifications(ctx, plan.Notifications); err != nil {
				return out, fmt.Errorf("insert notifications for %s: %w", loc.ID, err)
			}
		}
		out.Updated = true
		out.Changes = len(changes)
		out.History = len(plan.History)
		out.Notifications = len(plan.Notifications)
		observability.ObserveHistory(out.History)
		observability.ObserveNotifications(out.Notifications)
		l.Info().
			Int("changes", out.Changes).
			Int("notifications", out.Notifications).
			Msg("location updated")
	} else {
		l.Debug().Msg("location already up to date")
	}
	return out, nil
}

// sendKeywordChecks publishes each request on its own; the checker is
// idempotent so repeats are harmless.
func (s *LocationSync) sendKeywordChecks(ctx context.Context, msgs []domain.KeywordStuffingMessage) error {
	for _, m := range msgs {
		if err := s.pub.Publish(ctx, s.queues.KeywordStuffing, m); err != nil {
			return fmt.Errorf("send keyword stuffing check for %s: %w", m.GMBID, err)
		}
	}
	return nil
}
