package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/principal"
)

// ErrUnknownRole is returned when a stored principal carries a role outside the closed set.
var ErrUnknownRole = errors.New("stored principal has unknown role")

// PrincipalLookup implements principal.Lookup over the principals table.
type PrincipalLookup struct {
	db DBTX
}

// NewPrincipalLookup binds a lookup to db.
func NewPrincipalLookup(db DBTX) *PrincipalLookup {
	return &PrincipalLookup{db: db}
}

// Lookup returns the principal for subject or principal.ErrNotFound.
func (l *PrincipalLookup) Lookup(ctx context.Context, subject string) (principal.Record, error) {
	query := `
		SELECT subject, role
		FROM principals
		WHERE subject = $1
	`
	var (
		rec  principal.Record
		role string
	)
	if err := l.db.QueryRowContext(ctx, query, subject).Scan(&rec.Subject, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return principal.Record{}, principal.ErrNotFound
		}
		return principal.Record{}, fmt.Errorf("db error: %w", err)
	}

	rec.Role = jwt.Role(role)
	if !rec.Role.Valid() {
		return principal.Record{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	rec.Authorities = principal.AuthoritiesFor(rec.Role)
	return rec, nil
}

// Upsert registers or updates a principal's role.
func (l *PrincipalLookup) Upsert(ctx context.Context, subject string, role jwt.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	query := `
		INSERT INTO principals (subject, role)
		VALUES ($1, $2)
		ON CONFLICT (subject) DO UPDATE
		SET role = EXCLUDED.role
	`
	if _, err := l.db.ExecContext(ctx, query, subject, string(role)); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

var _ principal.Lookup = (*PrincipalLookup)(nil)
