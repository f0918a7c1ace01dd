package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/bearerAuth/refresh"
)

// RefreshStore implements refresh.Store over the refresh_tokens table.
type RefreshStore struct {
	db  DBTX
	now func() time.Time
}

// NewRefreshStore binds a store to db. now defaults to time.Now.
func NewRefreshStore(db DBTX, now func() time.Time) *RefreshStore {
	if now == nil {
		now = time.Now
	}
	return &RefreshStore{db: db, now: now}
}

// Get returns the live record for key.
func (s *RefreshStore) Get(ctx context.Context, key string) (refresh.Record, error) {
	query := `
		SELECT token_value, expires_at
		FROM refresh_tokens
		WHERE principal_key = $1 AND expires_at > $2
	`
	rec := refresh.Record{PrincipalKey: key}
	if err := s.db.QueryRowContext(ctx, query, key, s.now()).Scan(&rec.TokenValue, &rec.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return refresh.Record{}, refresh.ErrNotFound
		}
		return refresh.Record{}, fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return rec, nil
}

// Put upserts the principal's value.
func (s *RefreshStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := refresh.CheckPut(key, value, ttl); err != nil {
		return err
	}
	query := `
		INSERT INTO refresh_tokens (principal_key, token_value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal_key) DO UPDATE
		SET token_value = EXCLUDED.token_value,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	now := s.now()
	if _, err := s.db.ExecContext(ctx, query, key, value, now.Add(ttl), now); err != nil {
		return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return nil
}

// CompareAndSwap replaces old with next in one conditional UPDATE. Row locking makes a
// concurrent swap of the same value re-evaluate the predicate and affect zero rows.
func (s *RefreshStore) CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) error {
	if err := refresh.CheckPut(key, next, ttl); err != nil {
		return err
	}
	query := `
		UPDATE refresh_tokens
		SET token_value = $3, expires_at = $4, updated_at = $5
		WHERE principal_key = $1 AND token_value = $2 AND expires_at > $5
	`
	now := s.now()
	res, err := s.db.ExecContext(ctx, query, key, old, next, now.Add(ttl), now)
	if err != nil {
		return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	if affected == 1 {
		return nil
	}

	exists, err := s.exists(ctx, key, now)
	if err != nil {
		return err
	}
	if exists {
		return refresh.ErrMismatch
	}
	return refresh.ErrNotFound
}

// Delete removes the principal's row.
func (s *RefreshStore) Delete(ctx context.Context, key string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE principal_key = $1
	`
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return nil
}

// PurgeExpired deletes rows past their expiry and returns how many were removed.
func (s *RefreshStore) PurgeExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1
	`
	res, err := s.db.ExecContext(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return n, nil
}

func (s *RefreshStore) exists(ctx context.Context, key string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM refresh_tokens
			WHERE principal_key = $1 AND expires_at > $2
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, key, now).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return exists, nil
}

var _ refresh.Store = (*RefreshStore)(nil)
