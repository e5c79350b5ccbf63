package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soniclens/taste-profile-service/internal/domain"
)

// Store abstracts the profile persistence backend so the cache logic can be
// tested without a running Redis.
type Store interface {
	// Get returns the stored profile, or nil without error on a miss.
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Set(ctx context.Context, profile *domain.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func buildKey(userID string) string {
	return fmt.Sprintf("profile:user:%s", userID)
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	val, err := s.client.Get(ctx, buildKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile from cache: %w", err)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

func (s *RedisStore) Set(ctx context.Context, profile *domain.UserProfile) error {
	val, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.client.Set(ctx, buildKey(profile.UserID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set profile in cache: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, buildKey(userID)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", userID, err)
	}
	return nil
}

// Ping connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
