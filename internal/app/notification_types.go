package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"gmb_sync/internal/domain"
)

// NotificationTypes resolves notification type ids with a cache-aside read.
type NotificationTypes struct {
	repo     domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewNotificationTypes(r domain.Store, c domain.Cache, ttl time.Duration) *NotificationTypes {
	return &NotificationTypes{repo: r, cache: c, cacheTTL: ttl}
}

func (s *NotificationTypes) ID(ctx context.Context, key string) (int64, error) {
	cacheKey := "notification_type:" + key
	var id int64
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, cacheKey, &id)
		switch {
		case ok && err == nil:
			return id, nil
		case ok:
			// undecodable entry, drop it and reload
			log.Warn().Err(err).Str("key", cacheKey).Msg("bad cached notification type")
			if err := s.cache.Del(ctx, cacheKey); err != nil {
				log.Warn().Err(err).Str("key", cacheKey).Msg("drop cached notification type")
			}
		}
	}
	id, err := s.repo.NotificationTypeID(ctx, key)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, id, int(s.cacheTTL.Seconds()))
	}
	return id, nil
}
