package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of principal roles carried in the "auth" claim.
type Role string

const (
	// RoleUser is the default role for regular principals.
	RoleUser Role = "USER"
	// RoleAdmin grants administrative authorities.
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Kind selects the token lifetime and the transport header.
type Kind uint8

const (
	// KindAccess is the short-lived token presented on protected calls.
	KindAccess Kind = iota
	// KindRefresh is the long-lived token exchanged for a new pair.
	KindRefresh

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k < kindCount
}

// Claims is the signed payload of every token.
type Claims struct {
	Role Role `json:"auth"`
	jwt.RegisteredClaims
}

// IssuedAtTime returns the iat claim or the zero time.
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns the exp claim or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Pair is an access and refresh token issued together for one principal.
type Pair struct {
	AccessToken  string
	RefreshToken string
}
