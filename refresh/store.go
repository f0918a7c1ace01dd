package refresh

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no live record exists for the principal key.
	ErrNotFound = errors.New("refresh record not found")
	// ErrMismatch is returned by CompareAndSwap when the stored value differs from the expected one.
	ErrMismatch = errors.New("refresh record mismatch")
	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("refresh store unavailable")
	// ErrInvalidRecord is returned for empty keys, empty values or non-positive lifetimes.
	ErrInvalidRecord = errors.New("invalid refresh record")
)

// Record is the persisted refresh token of one principal.
type Record struct {
	PrincipalKey string
	TokenValue   string
	ExpiresAt    time.Time
}

// Store persists one refresh token value per principal.
//
// Implementations must be safe for concurrent use and must make CompareAndSwap atomic.
type Store interface {
	// Get returns the live record or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)
	// Put upserts the value with the given lifetime.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// CompareAndSwap replaces old with next. It returns ErrNotFound when no live record
	// exists and ErrMismatch when the stored value is not old.
	CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) error
	// Delete removes the record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// CheckPut validates Put arguments for store implementations.
func CheckPut(key, value string, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return errors.Join(ErrInvalidRecord, errors.New("empty principal key"))
	}
	if value == "" {
		return errors.Join(ErrInvalidRecord, errors.New("empty token value"))
	}
	if ttl <= 0 {
		return errors.Join(ErrInvalidRecord, errors.New("non-positive ttl"))
	}
	return nil
}
