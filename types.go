package bearerAuth

import (
	"io"

	internalaudit "github.com/MrEthical07/bearerAuth/internal/audit"
	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/principal"
	"github.com/MrEthical07/bearerAuth/refresh"
)

// TokenPair is an access and refresh token issued together. Both values carry the
// configured scheme prefix.
type TokenPair = jwt.Pair

// RefreshStore persists one refresh token per principal.
//
//	Implementations: refresh.MemoryStore, redisstore.Store, postgres.RefreshStore.
type RefreshStore = refresh.Store

// PrincipalLookup resolves token subjects to principals.
type PrincipalLookup = principal.Lookup

// Principal is the authenticated identity attached to a request. It is never built
// for a token that did not validate.
type Principal struct {
	Subject     string
	Role        jwt.Role
	Authorities []string
	// ExpiresAt is the access token expiry, zero when built without a token.
	ExpiresAt int64
}

// HasAuthority reports whether the principal was granted authority.
func (p *Principal) HasAuthority(authority string) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
