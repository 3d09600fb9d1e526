package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dtroode/authcore/database"
	"github.com/dtroode/authcore/internal/model"
)

const (
	defaultQueryTimeout = 5 * time.Second

	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Connection is a pgx pool exposed through database/sql. Every statement runs
// under the configured query timeout.
type Connection struct {
	DB           *sql.DB
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// Options tune the pool and statement deadlines.
type Options struct {
	MaxConns     int32
	QueryTimeout time.Duration
}

// NewConnection opens a pool, verifies it and applies migrations.
func NewConnection(ctx context.Context, dsn string, opts Options) (*Connection, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		conf.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}

	conn := &Connection{
		DB:           stdlib.OpenDBFromPool(pool),
		pool:         pool,
		queryTimeout: opts.QueryTimeout,
	}
	if conn.queryTimeout <= 0 {
		conn.queryTimeout = defaultQueryTimeout
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := database.Migrate(ctx, conn.DB); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return conn, nil
}

// NewConnectionFromDB wraps an existing *sql.DB without migrating it.
func NewConnectionFromDB(db *sql.DB, queryTimeout time.Duration) *Connection {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Connection{DB: db, queryTimeout: queryTimeout}
}

func (c *Connection) Close() error {
	var err error
	if c.DB != nil {
		err = c.DB.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("connection is nil")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.DB.PingContext(ctx)
}

func (c *Connection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.queryTimeout)
}

// inTx runs fn in a transaction. The transaction is rolled back on every path
// that does not reach Commit.
func (c *Connection) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors into model errors. Unknown errors are
// marked unavailable so callers never mistake them for auth outcomes.
func mapError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s", model.ErrAlreadyExists, op)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: %s", model.ErrNotFound, op)
		}
	}

	return fmt.Errorf("%w: failed to %s: %v", model.ErrUnavailable, op, err)
}
