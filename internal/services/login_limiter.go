package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LoginLimiter counts failed logins per username in Redis and refuses further
// attempts once the limit is reached within the window. A nil client disables
// it. Redis errors let the attempt through.
type LoginLimiter struct {
	redis       *redis.Client
	maxFailures int
	window      time.Duration
	logger      *zap.Logger
}

func NewLoginLimiter(client *redis.Client, maxFailures int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{
		redis:       client,
		maxFailures: maxFailures,
		window:      window,
		logger:      logger.With(zap.String("component", "login_limiter")),
	}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.redis != nil && l.maxFailures > 0
}

func failureKey(username string) string {
	return fmt.Sprintf("login_failures:%s", username)
}

// Allow returns ErrTooManyAttempts when username has used up its failures.
func (l *LoginLimiter) Allow(ctx context.Context, username string) error {
	if !l.enabled() {
		return nil
	}

	count, err := l.redis.Get(ctx, failureKey(username)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to read login failures", zap.String("username", username), zap.Error(err))
		}
		return nil
	}
	if count >= l.maxFailures {
		return ErrTooManyAttempts
	}
	return nil
}

func (l *LoginLimiter) RecordFailure(ctx context.Context, username string) {
	if !l.enabled() {
		return
	}

	key := failureKey(username)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("Failed to record login failure", zap.String("username", username), zap.Error(err))
		return
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("Failed to set login failure expiry", zap.String("username", username), zap.Error(err))
		}
	}
}

func (l *LoginLimiter) Reset(ctx context.Context, username string) {
	if !l.enabled() {
		return
	}
	if err := l.redis.Del(ctx, failureKey(username)).Err(); err != nil {
		l.logger.Warn("Failed to reset login failures", zap.String("username", username), zap.Error(err))
	}
}
