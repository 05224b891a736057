package domain

import (
	"context"
	"iter"
	"time"
)

type Store interface {
	// Job inputs
	ListLocationBridges(ctx context.Context) ([]LocationBridge, error)
	GetCredential(ctx context.Context, organizationID int64, sub string) (Credential, error)

	// Locations
	GetLocation(ctx context.Context, id string) (Row, error)
	InsertLocation(ctx context.Context, r Row) error
	UpdateLocation(ctx context.Context, id string, r Row) error

	// Reviews
	ListReviews(ctx context.Context, gmbID string) ([]Row, error)
	InsertReview(ctx context.Context, r Row) error
	UpdateReview(ctx context.Context, id string, r Row) error
	CountLiveReviews(ctx context.Context, gmbID string) (int, error)

	// History and notifications
	InsertHistory(ctx context.Context, hs []HistoryEntry) error
	InsertNotifications(ctx context.Context, ns []NotificationEntry) error
	UserIDsByOrganization(ctx context.Context, organizationID int64) ([]int64, error)
	NotificationTypeID(ctx context.Context, key string) (int64, error)
}

type ProfileProvider interface {
	GetLocation(ctx context.Context, token, locationID string) (map[string]any, error)
	GetVerificationStatus(ctx context.Context, token, locationID string) (VerificationStatus, error)
	// Reviews walks every page; a new call restarts from the first page.
	Reviews(ctx context.Context, token, accountID, locationID string) iter.Seq2[map[string]any, error]
}

type TokenRefresher interface {
	AccessToken(ctx context.Context, refreshToken string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, queue string, msgs ...any) error
}

// Consumer pops one message body; ok is false when wait elapsed without one.
type Consumer interface {
	Pop(ctx context.Context, queue string, wait time.Duration) (body []byte, ok bool, err error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
