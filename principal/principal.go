// Package principal defines the authenticated-principal record and the lookup contract
// used to turn a verified token subject into a principal.
package principal

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/MrEthical07/bearerAuth/jwt"
)

// ErrNotFound is returned by lookups when no principal exists for the subject.
var ErrNotFound = errors.New("principal not found")

// AuthorityPrefix is prepended to the role to form the granted authority.
const AuthorityPrefix = "ROLE_"

// Record is a principal as known to the credential store.
type Record struct {
	Subject     string
	Role        jwt.Role
	Authorities []string
}

// Lookup resolves subjects to principals.
type Lookup interface {
	Lookup(ctx context.Context, subject string) (Record, error)
}

// LookupFunc adapts a function to [Lookup].
type LookupFunc func(ctx context.Context, subject string) (Record, error)

// Lookup implements [Lookup].
func (f LookupFunc) Lookup(ctx context.Context, subject string) (Record, error) {
	return f(ctx, subject)
}

// AuthoritiesFor returns the authorities granted by role.
func AuthoritiesFor(role jwt.Role) []string {
	if !role.Valid() {
		return nil
	}
	return []string{AuthorityPrefix + string(role)}
}

// StaticLookup is an in-memory [Lookup] safe for concurrent use.
type StaticLookup struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewStaticLookup returns a lookup seeded with records.
func NewStaticLookup(records ...Record) *StaticLookup {
	s := &StaticLookup{records: make(map[string]Record, len(records))}
	for _, rec := range records {
		s.Add(rec)
	}
	return s
}

// Add registers or replaces a principal. Missing authorities are derived from the role.
func (s *StaticLookup) Add(rec Record) {
	if len(rec.Authorities) == 0 {
		rec.Authorities = AuthoritiesFor(rec.Role)
	}
	s.mu.Lock()
	s.records[rec.Subject] = rec
	s.mu.Unlock()
}

// Remove forgets a principal.
func (s *StaticLookup) Remove(subject string) {
	s.mu.Lock()
	delete(s.records, subject)
	s.mu.Unlock()
}

// Lookup implements [Lookup].
func (s *StaticLookup) Lookup(ctx context.Context, subject string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(subject) == "" {
		return Record{}, ErrNotFound
	}
	s.mu.RLock()
	rec, ok := s.records[subject]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Authorities = append([]string(nil), rec.Authorities...)
	return rec, nil
}
