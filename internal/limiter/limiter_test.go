package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authcore/internal/model"
)

func newTestLimiter(t *testing.T, cfg Config) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, cfg), mr
}

func TestRedis_ThrottlesAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, "a@x.com"))
		require.NoError(t, l.Fail(ctx, "a@x.com"))
	}

	require.ErrorIs(t, l.Check(ctx, "a@x.com"), model.ErrTooManyAttempts)
	require.NoError(t, l.Check(ctx, "b@x.com"))
}

func TestRedis_WindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{MaxAttempts: 1, Window: time.Minute})

	require.NoError(t, l.Fail(ctx, "a@x.com"))
	require.ErrorIs(t, l.Check(ctx, "a@x.com"), model.ErrTooManyAttempts)
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"a@x.com"))

	mr.FastForward(time.Minute + time.Second)
	require.NoError(t, l.Check(ctx, "a@x.com"))
}

func TestRedis_FailKeepsWindowStart(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{MaxAttempts: 5, Window: time.Minute})

	require.NoError(t, l.Fail(ctx, "a@x.com"))
	mr.FastForward(20 * time.Second)
	require.NoError(t, l.Fail(ctx, "a@x.com"))

	assert.Equal(t, 40*time.Second, mr.TTL(keyPrefix+"a@x.com"))
}

func TestRedis_FailSetsMissingTTL(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{MaxAttempts: 5, Window: time.Minute})

	require.NoError(t, mr.Set(keyPrefix+"a@x.com", "4"))
	require.Zero(t, mr.TTL(keyPrefix+"a@x.com"))

	require.NoError(t, l.Fail(ctx, "a@x.com"))
	require.ErrorIs(t, l.Check(ctx, "a@x.com"), model.ErrTooManyAttempts)
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"a@x.com"))

	mr.FastForward(time.Minute + time.Second)
	require.NoError(t, l.Check(ctx, "a@x.com"))
}

func TestRedis_ResetClearsCounter(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{MaxAttempts: 2, Window: time.Minute})

	require.NoError(t, l.Fail(ctx, "a@x.com"))
	require.NoError(t, l.Fail(ctx, "a@x.com"))
	require.ErrorIs(t, l.Check(ctx, "a@x.com"), model.ErrTooManyAttempts)

	require.NoError(t, l.Reset(ctx, "a@x.com"))
	assert.False(t, mr.Exists(keyPrefix+"a@x.com"))
	require.NoError(t, l.Check(ctx, "a@x.com"))
}

func TestRedis_Unavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, Config{})
	mr.Close()

	require.ErrorIs(t, l.Check(ctx, "a@x.com"), model.ErrUnavailable)
	require.ErrorIs(t, l.Fail(ctx, "a@x.com"), model.ErrUnavailable)
	require.ErrorIs(t, l.Reset(ctx, "a@x.com"), model.ErrUnavailable)
}

func TestNewRedis_Defaults(t *testing.T) {
	l := NewRedis(nil, Config{})
	assert.Equal(t, 5, l.config.MaxAttempts)
	assert.Equal(t, 15*time.Minute, l.config.Window)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var l Noop
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Fail(ctx, "a@x.com"))
	}
	require.NoError(t, l.Check(ctx, "a@x.com"))
	require.NoError(t, l.Reset(ctx, "a@x.com"))
}
