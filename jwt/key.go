package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSecret is returned when the configured signing secret cannot produce a key.
var ErrInvalidSecret = errors.New("invalid signing secret")

// SigningKey is the HMAC-SHA256 key derived once from the configured secret.
//
// The zero value is not usable. Keys are immutable after construction and safe for
// concurrent reads.
type SigningKey struct {
	b []byte
}

// NewSigningKey decodes a base64 secret (padded or unpadded standard alphabet) into a
// signing key. Blank secrets, undecodable secrets and secrets that decode to zero bytes
// are rejected.
func NewSigningKey(secretBase64 string) (SigningKey, error) {
	secret := strings.TrimSpace(secretBase64)
	if secret == "" {
		return SigningKey{}, fmt.Errorf("%w: secret is empty", ErrInvalidSecret)
	}

	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		var rawErr error
		raw, rawErr = base64.RawStdEncoding.DecodeString(secret)
		if rawErr != nil {
			return SigningKey{}, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
		}
	}
	if len(raw) == 0 {
		return SigningKey{}, fmt.Errorf("%w: secret decodes to zero bytes", ErrInvalidSecret)
	}

	return SigningKey{b: raw}, nil
}

// Len returns the key size in bytes.
func (k SigningKey) Len() int {
	return len(k.b)
}

// IsZero reports whether the key was never initialized.
func (k SigningKey) IsZero() bool {
	return len(k.b) == 0
}
