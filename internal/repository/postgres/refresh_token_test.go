package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authcore/internal/model"
)

var tokenColumns = []string{"id", "token_hash", "user_id", "revoked", "created_at", "expires_at"}

func TestRefreshTokenRepository_Record(t *testing.T) {
	ctx := context.Background()
	id, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	expires := now.Add(7 * 24 * time.Hour)

	conn, mock := newMockConnection(t)
	mock.ExpectQuery(`INSERT INTO refresh_tokens \(id, token_hash, user_id, revoked, created_at, expires_at\)`).
		WithArgs(id, "hash", userID, sqlmock.AnyArg(), expires).
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(id.String(), "hash", userID.String(), false, now, expires))

	rt, err := NewRefreshTokenRepository(conn).Record(ctx, model.RefreshToken{
		ID: id, TokenHash: "hash", UserID: userID, ExpiresAt: expires,
	})
	require.NoError(t, err)
	assert.Equal(t, id, rt.ID)
	assert.False(t, rt.Revoked)
	assert.Equal(t, expires, rt.ExpiresAt)
}

func TestRefreshTokenRepository_FindByHash(t *testing.T) {
	ctx := context.Background()
	id, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	conn, mock := newMockConnection(t)
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash = \$1`).
		WithArgs("hash").
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(id.String(), "hash", userID.String(), true, now, now))
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(tokenColumns))

	repo := NewRefreshTokenRepository(conn)

	rt, err := repo.FindByHash(ctx, "hash")
	require.NoError(t, err)
	assert.True(t, rt.Revoked)
	assert.Equal(t, userID, rt.UserID)

	_, err = repo.FindByHash(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestRefreshTokenRepository_Revoke_Idempotent(t *testing.T) {
	ctx := context.Background()
	conn, mock := newMockConnection(t)

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = \$1 AND revoked = FALSE`).
		WithArgs("hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = \$1 AND revoked = FALSE`).
		WithArgs("hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRefreshTokenRepository(conn)
	token := model.RefreshToken{TokenHash: "hash"}

	require.NoError(t, repo.Revoke(ctx, token))
	require.NoError(t, repo.Revoke(ctx, token))
}

func TestRefreshTokenRepository_Rotate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	oldID, newID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	next := model.RefreshToken{ID: newID, TokenHash: "new", UserID: userID, ExpiresAt: now.Add(time.Hour)}

	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "rotated",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(`UPDATE refresh_tokens SET revoked = TRUE\s+WHERE token_hash = \$1 AND user_id = \$2 AND revoked = FALSE\s+RETURNING id`).
					WithArgs("old", userID).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(oldID.String()))
				m.ExpectQuery(`INSERT INTO refresh_tokens`).
					WithArgs(newID, "new", userID, sqlmock.AnyArg(), next.ExpiresAt).
					WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(newID.String(), "new", userID.String(), false, now, next.ExpiresAt))
				m.ExpectCommit()
			},
		},
		{
			name: "already revoked or missing",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(`UPDATE refresh_tokens SET revoked = TRUE`).
					WithArgs("old", userID).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				m.ExpectRollback()
			},
			wantErr: model.ErrTokenRevoked,
		},
		{
			name: "insert fails rolls back revoke",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(`UPDATE refresh_tokens SET revoked = TRUE`).
					WithArgs("old", userID).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(oldID.String()))
				m.ExpectQuery(`INSERT INTO refresh_tokens`).
					WillReturnError(errors.New("disk full"))
				m.ExpectRollback()
			},
			wantErr: model.ErrUnavailable,
		},
		{
			name: "begin fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
			},
			wantErr: errors.New("failed to begin transaction"),
		},
		{
			name: "commit fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(`UPDATE refresh_tokens SET revoked = TRUE`).
					WithArgs("old", userID).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(oldID.String()))
				m.ExpectQuery(`INSERT INTO refresh_tokens`).
					WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(newID.String(), "new", userID.String(), false, now, next.ExpiresAt))
				m.ExpectCommit().WillReturnError(errors.New("connection lost"))
			},
			wantErr: errors.New("failed to commit transaction"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := newMockConnection(t)
			tt.setup(mock)

			saved, err := NewRefreshTokenRepository(conn).Rotate(ctx, "old", next)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, model.ErrTokenRevoked) || errors.Is(tt.wantErr, model.ErrUnavailable) {
					require.ErrorIs(t, err, tt.wantErr)
				} else {
					require.Contains(t, err.Error(), tt.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, newID, saved.ID)
			assert.Equal(t, "new", saved.TokenHash)
		})
	}
}

func TestRefreshTokenRepository_RevokeAllByUser(t *testing.T) {
	userID := uuid.New()
	conn, mock := newMockConnection(t)
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = \$1 AND revoked = FALSE`).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, NewRefreshTokenRepository(conn).RevokeAllByUser(context.Background(), userID))
}

func TestRefreshTokenRepository_ListExpired(t *testing.T) {
	before := time.Now().UTC()
	id, userID := uuid.New(), uuid.New()

	conn, mock := newMockConnection(t)
	mock.ExpectQuery(`FROM refresh_tokens\s+WHERE expires_at < \$1 ORDER BY expires_at, id LIMIT \$2`).
		WithArgs(before, 100).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(id.String(), "h1", userID.String(), true, before.Add(-48*time.Hour), before.Add(-time.Hour)))

	tokens, err := NewRefreshTokenRepository(conn).ListExpired(context.Background(), before, 100)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, id, tokens[0].ID)
}

func TestRefreshTokenRepository_DeleteByIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	conn, mock := newMockConnection(t)
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE id = ANY\(\$1::uuid\[\]\)`).
		WithArgs([]string{a.String(), b.String()}).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewRefreshTokenRepository(conn)

	n, err := repo.DeleteByIDs(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
