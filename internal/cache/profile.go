package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/soniclens/taste-profile-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces a fresh profile when the cache cannot serve one.
type ComputeFunc func(ctx context.Context) (*domain.UserProfile, error)

// ProfileCache guarantees at most one stored profile per user and serializes
// concurrent refreshes for the same user id: a second concurrent caller for
// the same key joins the in-flight computation instead of starting another.
type ProfileCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

func NewProfileCache(store Store, ttl time.Duration, logger zerolog.Logger) *ProfileCache {
	return &ProfileCache{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "profile_cache").Logger(),
	}
}

// GetOrCompute returns the cached profile when it is fresh and no refresh is
// forced; otherwise it runs compute under a per-key single-flight and replaces
// the stored entry atomically. The bool reports a cache hit.
func (c *ProfileCache) GetOrCompute(ctx context.Context, userID string, compute ComputeFunc, forceRefresh bool) (*domain.UserProfile, bool, error) {
	if !forceRefresh {
		cached, err := c.store.Get(ctx, userID)
		if err != nil {
			c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache get failed")
		}
		if cached != nil && time.Since(cached.ComputedAt) < c.ttl {
			return cached, true, nil
		}
	}

	v, err, _ := c.group.Do(userID, func() (interface{}, error) {
		profile, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if setErr := c.store.Set(ctx, profile); setErr != nil {
			c.logger.Warn().Err(setErr).Str("user_id", userID).Msg("cache set failed")
		}
		return profile, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*domain.UserProfile), false, nil
}

// Invalidate drops the stored profile so the next read recomputes.
func (c *ProfileCache) Invalidate(ctx context.Context, userID string) error {
	return c.store.Delete(ctx, userID)
}

// Age reports how stale the cached profile is, if one exists.
func (c *ProfileCache) Age(ctx context.Context, userID string) (time.Duration, bool) {
	cached, err := c.store.Get(ctx, userID)
	if err != nil || cached == nil {
		return 0, false
	}
	return time.Since(cached.ComputedAt), true
}
