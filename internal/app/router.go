package app

import (
	"context"
	"encoding/json"
	"fmt"

	"gmb_sync/internal/diff"
	"gmb_sync/internal/domain"
)

// NotificationTypeResolver maps a notification type key to its id.
type NotificationTypeResolver interface {
	ID(ctx context.Context, key string) (int64, error)
}

// Router turns a location change list into the writes and messages it implies.
type Router struct {
	store domain.Store
	types NotificationTypeResolver
}

func NewRouter(s domain.Store, types NotificationTypeResolver) *Router {
	return &Router{store: s, types: types}
}

type RouteInput struct {
	GMBID          string
	OrganizationID int64
	DisplayName    *string
	Changes        []domain.ChangeEntry
	// KeywordCheckPending is true while the location has never been checked
	// for keyword stuffing.
	KeywordCheckPending bool
	KeywordMessage      domain.KeywordStuffingMessage
}

// Plan is what one routing pass decided; nothing has been written yet.
type Plan struct {
	History       []domain.HistoryEntry
	Notifications []domain.NotificationEntry
	KeywordChecks []domain.KeywordStuffingMessage
}

type statusNotification struct {
	GMBID     string  `json:"gmb_id"`
	GMBName   *string `json:"gmb_name,omitempty"`
	OldStatus any     `json:"old_status"`
	NewStatus any     `json:"new_status"`
}

type statusHistory struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type fieldHistory struct {
	FieldThatChanged string `json:"field_that_changed"`
	OldData          string `json:"old_data"`
	NewData          string `json:"new_data"`
}

// Route builds history rows for every change, notifications for a
// verification status change, and the keyword stuffing checks to send. The
// keyword check is requested once when pending and again for every name or
// description change; duplicates are intended.
func (r *Router) Route(ctx context.Context, in RouteInput) (Plan, error) {
	var plan Plan
	if in.KeywordCheckPending {
		plan.KeywordChecks = append(plan.KeywordChecks, in.KeywordMessage)
	}
	if len(in.Changes) == 0 {
		return plan, nil
	}

	reviewCount, err := r.store.CountLiveReviews(ctx, in.GMBID)
	if err != nil {
		return Plan{}, fmt.Errorf("count live reviews for %s: %w", in.GMBID, err)
	}

	for _, c := range in.Changes {
		if c.Field == domain.FieldBusinessName || c.Field == domain.FieldDescription {
			plan.KeywordChecks = append(plan.KeywordChecks, in.KeywordMessage)
		}

		oldData, newData := diff.Serialize(c.Old), diff.Serialize(c.New)

		if c.Field == domain.FieldVerificationStatus {
			ns, err := r.statusNotifications(ctx, in, c)
			if err != nil {
				return Plan{}, err
			}
			plan.Notifications = append(plan.Notifications, ns...)
			plan.History = append(plan.History, domain.HistoryEntry{
				GMBID:        in.GMBID,
				Type:         domain.HistoryVerificationStatus,
				ReviewAmount: reviewCount,
				Data:         encodeJSON(statusHistory{OldStatus: oldData, NewStatus: newData}),
			})
			continue
		}

		plan.History = append(plan.History, domain.HistoryEntry{
			GMBID:        in.GMBID,
			Type:         domain.HistoryFieldChanged,
			ReviewAmount: reviewCount,
			Data: encodeJSON(fieldHistory{
				FieldThatChanged: Humanize(c.Field),
				OldData:          oldData,
				NewData:          newData,
			}),
		})
	}
	return plan, nil
}

func (r *Router) statusNotifications(ctx context.Context, in RouteInput, c domain.ChangeEntry) ([]domain.NotificationEntry, error) {
	userIDs, err := r.store.UserIDsByOrganization(ctx, in.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("resolve users of organization %d: %w", in.OrganizationID, err)
	}
	if len(userIDs) == 0 {
		return nil, nil
	}
	typeID, err := r.types.ID(ctx, domain.NotificationVoiceOfMerchantUpdated)
	if err != nil {
		return nil, fmt.Errorf("notification type %s: %w", domain.NotificationVoiceOfMerchantUpdated, err)
	}
	data := encodeJSON(statusNotification{
		GMBID:     in.GMBID,
		GMBName:   in.DisplayName,
		OldStatus: c.Old,
		NewStatus: c.New,
	})
	out := make([]domain.NotificationEntry, 0, len(userIDs))
	for _, uid := range userIDs {
		out = append(out, domain.NotificationEntry{
			OrganizationID:     in.OrganizationID,
			UserID:             uid,
			NotificationTypeID: typeID,
			Data:               data,
		})
	}
	return out, nil
}

// encodeJSON marshals a payload struct; the serializer is the fallback.
func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return diff.Serialize(v)
	}
	return string(b)
}
