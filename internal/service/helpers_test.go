package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authcore/internal/model"
	"github.com/dtroode/authcore/internal/password"
	"github.com/dtroode/authcore/internal/token"
)

const testSecret = "test-secret"

var (
	testNow    = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	testParams = password.Params{Time: 1, MemoryKiB: 1024, Threads: 1}
)

func newTestCodec(t *testing.T, now time.Time) *token.JWT {
	t.Helper()
	codec, err := token.NewJWT(testSecret, token.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return codec
}

// memLedger is an in-memory refresh token ledger with the same rotation
// guarantees as the postgres repository.
type memLedger struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]model.RefreshToken)}
}

func (l *memLedger) Record(_ context.Context, rt model.RefreshToken) (model.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insert(rt)
}

func (l *memLedger) insert(rt model.RefreshToken) (model.RefreshToken, error) {
	if _, ok := l.rows[rt.TokenHash]; ok {
		return model.RefreshToken{}, model.ErrAlreadyExists
	}
	rt.ID = uuid.New()
	rt.CreatedAt = testNow
	l.rows[rt.TokenHash] = rt
	return rt, nil
}

func (l *memLedger) FindByHash(_ context.Context, tokenHash string) (model.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rt, ok := l.rows[tokenHash]
	if !ok {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return rt, nil
}

func (l *memLedger) Revoke(_ context.Context, rt model.RefreshToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[rt.TokenHash]; ok {
		row.Revoked = true
		l.rows[rt.TokenHash] = row
	}
	return nil
}

func (l *memLedger) Rotate(_ context.Context, oldHash string, next model.RefreshToken) (model.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[oldHash]
	if !ok || row.Revoked {
		return model.RefreshToken{}, model.ErrTokenRevoked
	}
	row.Revoked = true
	l.rows[oldHash] = row
	return l.insert(next)
}

func (l *memLedger) RevokeAllByUser(_ context.Context, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for hash, row := range l.rows {
		if row.UserID == userID {
			row.Revoked = true
			l.rows[hash] = row
		}
	}
	return nil
}

func (l *memLedger) ListExpired(_ context.Context, before time.Time, limit int) ([]model.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.RefreshToken
	for _, row := range l.rows {
		if row.ExpiresAt.Before(before) && len(out) < limit {
			out = append(out, row)
		}
	}
	return out, nil
}

func (l *memLedger) DeleteByIDs(_ context.Context, ids []uuid.UUID) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var n int64
	for hash, row := range l.rows {
		if _, ok := want[row.ID]; ok {
			delete(l.rows, hash)
			n++
		}
	}
	return n, nil
}
