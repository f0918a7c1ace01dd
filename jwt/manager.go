package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultScheme is the prefix carried by every issued token.
const DefaultScheme = "Bearer "

// expiryLeeway makes exp inclusive: the parser treats now == exp as expired, a token
// here stays valid through its exp second and expires once now is past it.
const expiryLeeway = time.Nanosecond

var (
	// ErrInvalidClaims is returned when a token would be issued with an empty subject or unknown role.
	ErrInvalidClaims = errors.New("invalid token claims")
	// ErrUnknownKind is returned for a token kind outside the closed set.
	ErrUnknownKind = errors.New("unknown token kind")
	// ErrInvalidTTL is returned by NewManager for non-positive lifetimes.
	ErrInvalidTTL = errors.New("invalid TTL configuration")
)

// Config defines the codec parameters.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Key        SigningKey
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	// Scheme is prepended on issue and stripped on validate. Defaults to DefaultScheme.
	Scheme string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager issues and validates HS256 tokens.
//
// Manager is safe for concurrent use once constructed.
type Manager struct {
	key    []byte
	ttl    [kindCount]time.Duration
	issuer string
	scheme string
	now    func() time.Time
	parser *jwt.Parser
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager returns an error when the key is missing or either lifetime is not positive.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Key.IsZero() {
		return nil, fmt.Errorf("%w: key is not initialized", ErrInvalidSecret)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidTTL
	}
	if cfg.Scheme == "" {
		cfg.Scheme = DefaultScheme
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{
		key:    cfg.Key.b,
		issuer: strings.TrimSpace(cfg.Issuer),
		scheme: cfg.Scheme,
		now:    cfg.Now,
	}
	m.ttl[KindAccess] = cfg.AccessTTL
	m.ttl[KindRefresh] = cfg.RefreshTTL

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(expiryLeeway),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}
	m.parser = jwt.NewParser(options...)

	return m, nil
}

// TTL returns the lifetime configured for kind, or zero for unknown kinds.
func (m *Manager) TTL(kind Kind) time.Duration {
	if !kind.Valid() {
		return 0
	}
	return m.ttl[kind]
}

// Scheme returns the prefix carried by issued tokens.
func (m *Manager) Scheme() string {
	return m.scheme
}

// Issue describes the issue operation and its observable behavior.
//
// Issue signs a token of the given kind whose exp is exactly TTL(kind) after its iat, and
// returns it with the scheme prefix. Empty subjects and unknown roles are refused.
func (m *Manager) Issue(subject string, role Role, kind Kind) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidClaims)
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, string(role))
	}
	if !kind.Valid() {
		return "", ErrUnknownKind
	}

	issuedAt := m.now().Truncate(time.Second)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl[kind])),
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", err
	}
	return m.scheme + signed, nil
}

// IssuePair issues an access token followed by a refresh token for the same principal.
func (m *Manager) IssuePair(subject string, role Role) (Pair, error) {
	access, err := m.Issue(subject, role, KindAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.Issue(subject, role, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate strips the scheme when present and classifies the token. A token is expired
// once now is after exp. iat is not checked against the clock, so a peer running slightly
// ahead does not produce rejections. Validate never panics on attacker-controlled input
// and never returns StatusValid without claims.
func (m *Manager) Validate(raw string) Outcome {
	if strings.TrimSpace(raw) == "" {
		return Outcome{Status: StatusEmpty}
	}
	token := strings.TrimPrefix(raw, m.scheme)
	if strings.TrimSpace(token) == "" {
		return Outcome{Status: StatusEmpty}
	}

	claims := &Claims{}
	parsed, err := m.parser.ParseWithClaims(token, claims, m.keyFunc)
	if err != nil {
		return Outcome{Status: classify(parsed, err), Err: err}
	}
	if parsed == nil || !parsed.Valid {
		return Outcome{Status: StatusMalformed, Err: jwt.ErrTokenInvalidClaims}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Outcome{Status: StatusMalformed, Err: fmt.Errorf("%w: empty subject", ErrInvalidClaims)}
	}
	if !claims.Role.Valid() {
		return Outcome{Status: StatusMalformed, Err: fmt.Errorf("%w: unknown role", ErrInvalidClaims)}
	}

	return Outcome{Status: StatusValid, Claims: claims}
}

// ExtractSubject returns the subject of a valid token. Any other outcome is
// returned as an *OutcomeError.
func (m *Manager) ExtractSubject(raw string) (string, error) {
	outcome := m.Validate(raw)
	if err := outcome.AsError(); err != nil {
		return "", err
	}
	return outcome.Claims.Subject, nil
}

func (m *Manager) keyFunc(*jwt.Token) (interface{}, error) {
	return m.key, nil
}

func classify(token *jwt.Token, err error) Status {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return StatusMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return StatusUnsupported
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// WithValidMethods reports a foreign alg as a signature error.
		if token != nil && token.Method != nil && token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return StatusUnsupported
		}
		return StatusMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return StatusExpired
	default:
		return StatusMalformed
	}
}
