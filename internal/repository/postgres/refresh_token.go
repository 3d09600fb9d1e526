package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authcore/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

const refreshTokenColumns = `id, token_hash, user_id, revoked, created_at, expires_at`

// RefreshTokenRepository is the ledger of issued refresh tokens.
type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(row rowScanner) (model.RefreshToken, error) {
	var rt model.RefreshToken
	err := row.Scan(&rt.ID, &rt.TokenHash, &rt.UserID, &rt.Revoked, &rt.CreatedAt, &rt.ExpiresAt)
	return rt, err
}

func (r *RefreshTokenRepository) Record(ctx context.Context, token model.RefreshToken) (model.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rt, err := insertRefreshToken(ctx, r.db.DB, token)
	if err != nil {
		return model.RefreshToken{}, mapError(err, "record refresh token")
	}
	return rt, nil
}

func (r *RefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	rt, err := scanRefreshToken(r.db.DB.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		return model.RefreshToken{}, mapError(err, "find refresh token")
	}
	return rt, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token model.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	const query = `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1 AND revoked = FALSE`
	if _, err := r.db.DB.ExecContext(ctx, query, token.TokenHash); err != nil {
		return mapError(err, "revoke refresh token")
	}
	return nil
}

// Rotate revokes the live row for oldHash and inserts next in one
// transaction. The conditional UPDATE takes the row lock, so of two
// concurrent rotations of one token the second re-reads revoked = TRUE,
// matches nothing and gets ErrTokenRevoked.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldHash string, next model.RefreshToken) (model.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var saved model.RefreshToken
	err := r.db.inTx(ctx, func(tx *sql.Tx) error {
		const revoke = `
			UPDATE refresh_tokens SET revoked = TRUE
			WHERE token_hash = $1 AND user_id = $2 AND revoked = FALSE
			RETURNING id`

		var oldID uuid.UUID
		err := tx.QueryRowContext(ctx, revoke, oldHash, next.UserID).Scan(&oldID)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrTokenRevoked
		}
		if err != nil {
			return mapError(err, "revoke rotated refresh token")
		}

		saved, err = insertRefreshToken(ctx, tx, next)
		if err != nil {
			return mapError(err, "record rotated refresh token")
		}
		return nil
	})
	if err != nil {
		return model.RefreshToken{}, err
	}
	return saved, nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	const query = `UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.DB.ExecContext(ctx, query, userID); err != nil {
		return mapError(err, "revoke refresh tokens by user")
	}
	return nil
}

// ListExpired returns up to limit rows that expired before the given time,
// oldest first.
func (r *RefreshTokenRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]model.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens
		WHERE expires_at < $1 ORDER BY expires_at, id LIMIT $2`

	rows, err := r.db.DB.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, mapError(err, "list expired refresh tokens")
	}
	defer rows.Close()

	tokens := make([]model.RefreshToken, 0, limit)
	for rows.Next() {
		rt, err := scanRefreshToken(rows)
		if err != nil {
			return nil, mapError(err, "scan expired refresh token")
		}
		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list expired refresh tokens")
	}
	return tokens, nil
}

func (r *RefreshTokenRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	res, err := r.db.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = ANY($1::uuid[])`, strIDs)
	if err != nil {
		return 0, mapError(err, "delete refresh tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err, "count deleted refresh tokens")
	}
	return n, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertRefreshToken(ctx context.Context, q queryRower, token model.RefreshToken) (model.RefreshToken, error) {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO refresh_tokens (id, token_hash, user_id, revoked, created_at, expires_at)
		VALUES ($1, $2, $3, FALSE, $4, $5)
		RETURNING ` + refreshTokenColumns

	return scanRefreshToken(q.QueryRowContext(ctx, query,
		token.ID, token.TokenHash, token.UserID, token.CreatedAt, token.ExpiresAt,
	))
}
