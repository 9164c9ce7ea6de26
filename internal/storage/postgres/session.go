package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/mercado-storefront/internal/session"
)

var _ session.Store = (*SessionStore)(nil)

// SessionStore implements session.Store backed by the session_values table.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore returns a SessionStore that uses the given pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	const q = `SELECT value FROM session_values WHERE session_id = $1 AND key = $2`

	var v string
	err := s.pool.QueryRow(ctx, q, sid, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %q", key)
	}
	return v, true, nil
}

func (s *SessionStore) Set(ctx context.Context, sid, key, value string) error {
	const q = `
INSERT INTO session_values (session_id, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (session_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, sid, key, value); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const q = `DELETE FROM session_values WHERE session_id = $1 AND key = ANY($2)`

	if _, err := s.pool.Exec(ctx, q, sid, keys); err != nil {
		return errors.Wrap(err, "delete keys")
	}
	return nil
}

// DeleteIdle removes sessions whose newest value was written before before
// and reports the number of values deleted. Reads do not extend a session.
func (s *SessionStore) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	const q = `
DELETE FROM session_values
WHERE session_id IN (
    SELECT session_id FROM session_values
    GROUP BY session_id
    HAVING max(updated_at) < $1
)`

	tag, err := s.pool.Exec(ctx, q, before)
	if err != nil {
		return 0, errors.Wrap(err, "delete idle sessions")
	}
	return tag.RowsAffected(), nil
}

// Ping checks database connectivity.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
