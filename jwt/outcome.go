package jwt

import (
	"errors"
	"fmt"
)

// ErrTokenRejected is matched by every [OutcomeError].
var ErrTokenRejected = errors.New("token rejected")

// Status tags a validation result. The zero value is a rejection.
type Status uint8

const (
	// StatusEmpty means no token was presented.
	StatusEmpty Status = iota
	// StatusMalformed covers corrupt structure, signature mismatch and invalid claims.
	StatusMalformed
	// StatusUnsupported means the token declared an algorithm other than HS256.
	StatusUnsupported
	// StatusExpired means the signature verified but the token is past its exp.
	StatusExpired
	// StatusValid carries verified claims.
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusMalformed:
		return "invalid_signature"
	case StatusUnsupported:
		return "unsupported"
	case StatusExpired:
		return "expired"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of [Manager.Validate].
//
// Claims is non-nil only when Status is StatusValid. Err holds the parser error, if any,
// for diagnostics; it never contains the token.
type Outcome struct {
	Status Status
	Claims *Claims
	Err    error
}

// Valid reports whether the token verified and carries claims.
func (o Outcome) Valid() bool {
	return o.Status == StatusValid && o.Claims != nil
}

// AsError returns nil for valid outcomes and an *OutcomeError otherwise.
func (o Outcome) AsError() error {
	if o.Valid() {
		return nil
	}
	return &OutcomeError{Status: o.Status, Err: o.Err}
}

// OutcomeError reports a non-valid [Outcome] as an error.
type OutcomeError struct {
	Status Status
	Err    error
}

func (e *OutcomeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrTokenRejected, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", ErrTokenRejected, e.Status, e.Err)
}

func (e *OutcomeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTokenRejected}
	}
	return []error{ErrTokenRejected, e.Err}
}
