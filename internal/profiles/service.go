package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

type Service interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	GetMatchProfile(ctx context.Context, userID int64) (*MatchProfile, error)
}

type service struct {
	repo     Repository
	redis    *redis.Client // nil when Redis is not configured
	cacheTTL time.Duration
}

// NewService creates the profile service. redisClient may be nil; the service
// then reads straight from the database.
func NewService(repo Repository, redisClient *redis.Client, cacheTTL time.Duration) Service {
	return &service{
		repo:     repo,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

// GetProfile reads a profile through the Redis cache. Cache failures are
// logged and treated as misses; the database remains the source of truth.
func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	key := cacheKey(userID)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			var p Profile
			if jsonErr := json.Unmarshal([]byte(cached), &p); jsonErr == nil {
				return &p, nil
			}
		} else if err != redis.Nil {
			log.Printf("profiles: cache read failed for user %d: %v", userID, err)
		}
	}

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, jsonErr := json.Marshal(p); jsonErr == nil {
			if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
				log.Printf("profiles: cache write failed for user %d: %v", userID, err)
			}
		}
	}

	return p, nil
}

// GetMatchProfile bypasses the cache: embeddings are only needed once per
// selection run and are too large to be worth caching.
func (s *service) GetMatchProfile(ctx context.Context, userID int64) (*MatchProfile, error) {
	return s.repo.GetMatchProfile(ctx, userID)
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}
