// Package limiter throttles failed logins per account identifier.
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/authcore/internal/model"
)

const keyPrefix = "authcore:login:"

// Config holds the fixed-window throttling parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Redis counts failed logins in Redis. The counter starts its window on the
// first failure and is cleared by a successful login.
type Redis struct {
	client redis.UniversalClient
	config Config
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client redis.UniversalClient, cfg Config) *Redis {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &Redis{client: client, config: cfg}
}

// Check rejects with model.ErrTooManyAttempts once the identifier has used up
// its failures in the current window.
func (l *Redis) Check(ctx context.Context, identifier string) error {
	count, err := l.client.Get(ctx, key(identifier)).Int64()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: login limiter: %v", model.ErrUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return model.ErrTooManyAttempts
	}
	return nil
}

// Fail records a failed attempt. The counter and its window are written in
// one MULTI block; EXPIRE NX starts the window only on a counter without TTL.
func (l *Redis) Fail(ctx context.Context, identifier string) error {
	k := key(identifier)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.config.Window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: login limiter: %v", model.ErrUnavailable, err)
	}
	return nil
}

// Reset clears the failure counter.
func (l *Redis) Reset(ctx context.Context, identifier string) error {
	if err := l.client.Del(ctx, key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: login limiter: %v", model.ErrUnavailable, err)
	}
	return nil
}

func key(identifier string) string {
	return keyPrefix + identifier
}

// Noop never throttles. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Check(context.Context, string) error { return nil }
func (Noop) Fail(context.Context, string) error  { return nil }
func (Noop) Reset(context.Context, string) error { return nil }
