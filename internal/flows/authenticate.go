package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/principal"
)

// AuthFailureKind classifies authentication failures.
type AuthFailureKind int

const (
	AuthFailureNone AuthFailureKind = iota
	AuthFailureToken
	AuthFailureNotFound
	AuthFailureLookup
	AuthFailureNoLookup
)

// AuthenticateResult carries the resolved principal or failure metadata.
type AuthenticateResult struct {
	Failure   AuthFailureKind
	Err       error
	Outcome   jwt.Outcome
	Principal principal.Record
}

// AuthenticateDeps captures authentication flow dependencies.
type AuthenticateDeps struct {
	Validate func(string) jwt.Outcome
	Lookup   principal.Lookup
}

// RunAuthenticate validates an access token and resolves its subject.
func RunAuthenticate(ctx context.Context, rawAccess string, deps AuthenticateDeps) AuthenticateResult {
	outcome := deps.Validate(rawAccess)
	if !outcome.Valid() {
		return AuthenticateResult{
			Failure: AuthFailureToken,
			Err:     outcome.AsError(),
			Outcome: outcome,
		}
	}

	res := RunBuildPrincipal(ctx, outcome.Claims.Subject, deps)
	res.Outcome = outcome
	return res
}

// RunBuildPrincipal resolves subject through the principal lookup.
func RunBuildPrincipal(ctx context.Context, subject string, deps AuthenticateDeps) AuthenticateResult {
	if deps.Lookup == nil {
		return AuthenticateResult{Failure: AuthFailureNoLookup}
	}

	rec, err := deps.Lookup.Lookup(ctx, subject)
	if err != nil {
		if errors.Is(err, principal.ErrNotFound) {
			return AuthenticateResult{Failure: AuthFailureNotFound, Err: err}
		}
		return AuthenticateResult{Failure: AuthFailureLookup, Err: err}
	}
	if len(rec.Authorities) == 0 {
		rec.Authorities = principal.AuthoritiesFor(rec.Role)
	}
	return AuthenticateResult{Failure: AuthFailureNone, Principal: rec}
}
