package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"spystory-server/internal/interfaces"
)

const sessionGuardKeyPrefix = "session_transition:"

var _ interfaces.SessionGuard = (*redisSessionGuard)(nil)

// redisSessionGuard keeps at most one transition in flight per session using
// SETNX with a TTL. The TTL bounds how long a crashed worker can hold the
// guard; the DB row lock remains the source of truth for correctness.
type redisSessionGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionGuard creates the guard. ttl should exceed the generation
// timeout so a slow generation cannot lose its guard mid-transition.
func NewRedisSessionGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.SessionGuard {
	return &redisSessionGuard{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSessionGuard"),
	}
}

func (g *redisSessionGuard) Acquire(ctx context.Context, userID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, sessionGuardKeyPrefix+userID, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire session guard: %w", err)
	}
	if !ok {
		g.logger.Debug("Session guard already held", zap.String("userID", userID))
	}
	return ok, nil
}

func (g *redisSessionGuard) Release(ctx context.Context, userID string) error {
	if err := g.client.Del(ctx, sessionGuardKeyPrefix+userID).Err(); err != nil {
		g.logger.Warn("Failed to release session guard (will expire by TTL)",
			zap.String("userID", userID), zap.Error(err))
		return fmt.Errorf("failed to release session guard: %w", err)
	}
	return nil
}
