package cookies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

// DBPool abstracts the pgxpool.Pool so the store can be exercised against
// pgxmock in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists jars in a single table, one row per account.
// Intended for deployments where the process has no durable filesystem.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.CookieStore = (*PostgresStore)(nil)

const createJarsTable = `
CREATE TABLE IF NOT EXISTS session_jars (
    account_id TEXT PRIMARY KEY,
    jar        JSONB NOT NULL,
    saved_at   TIMESTAMPTZ NOT NULL
);`

// NewPostgresStore verifies the connection and ensures the jars table
// exists.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createJarsTable); err != nil {
		return nil, fmt.Errorf("failed to ensure session_jars table: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("cookies.postgres"),
	}, nil
}

// Load fetches the jar row for accountID. A missing row or an undecodable
// jar column reports ErrNotFound.
func (s *PostgresStore) Load(ctx context.Context, accountID string) (*schemas.CookieJar, error) {
	const query = `SELECT jar FROM session_jars WHERE account_id = $1;`

	var data []byte
	if err := s.pool.QueryRow(ctx, query, accountID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cookie jar: %w", err)
	}

	var jar schemas.CookieJar
	if err := json.Unmarshal(data, &jar); err != nil {
		s.log.Warn("Stored cookie jar corrupt, treating as absent.",
			zap.String("account", accountID), zap.Error(err))
		return nil, ErrNotFound
	}
	if jar.Empty() {
		return nil, ErrNotFound
	}
	return &jar, nil
}

// Save upserts the jar row for accountID. Row-level locking in postgres
// serializes concurrent writers on the same account.
func (s *PostgresStore) Save(ctx context.Context, accountID string, jar *schemas.CookieJar) error {
	if jar == nil {
		return fmt.Errorf("refusing to save a nil cookie jar for %q", accountID)
	}

	record := *jar
	record.Account = accountID
	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now().UTC()
	}

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to encode cookie jar: %w", err)
	}

	const query = `
INSERT INTO session_jars (account_id, jar, saved_at)
VALUES ($1, $2, $3)
ON CONFLICT (account_id) DO UPDATE SET
    jar = EXCLUDED.jar,
    saved_at = EXCLUDED.saved_at;`

	if _, err := s.pool.Exec(ctx, query, accountID, data, record.SavedAt); err != nil {
		return fmt.Errorf("failed to upsert cookie jar: %w", err)
	}

	s.log.Debug("Cookie jar saved.",
		zap.String("account", accountID),
		zap.Int("cookies", len(record.Cookies)),
	)
	return nil
}

// Delete drops the jar row, tolerating absence.
func (s *PostgresStore) Delete(ctx context.Context, accountID string) error {
	const query = `DELETE FROM session_jars WHERE account_id = $1;`
	if _, err := s.pool.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to delete cookie jar: %w", err)
	}
	return nil
}
