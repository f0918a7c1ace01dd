package bearerAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/bearerAuth/jwt"
)

const (
	// DefaultAccessHeader carries access tokens on requests and responses.
	DefaultAccessHeader = "ACCESS_KEY"
	// DefaultRefreshHeader carries refresh tokens on requests and responses.
	DefaultRefreshHeader = "REFRESH_KEY"
	// DefaultAccessTTL is the access token lifetime.
	DefaultAccessTTL = time.Hour
	// DefaultRefreshTTL is the refresh token lifetime.
	DefaultRefreshTTL = 24 * time.Hour
	// RecommendedKeyBytes is the key size below which Lint warns.
	RecommendedKeyBytes = 32
)

// Config is the engine configuration. Build copies it; later mutation of the caller's
// value has no effect on a built Engine.
type Config struct {
	JWT     JWTConfig
	Headers HeaderConfig
	Store   StoreConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// JWTConfig configures the signing key and token lifetimes.
type JWTConfig struct {
	// SecretBase64 is the base64 (padded or raw) encoded HMAC secret.
	SecretBase64 string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	// Issuer is optional. When set it is written to iss and enforced on validate.
	Issuer string
}

// HeaderConfig names the transport headers.
type HeaderConfig struct {
	Access  string
	Refresh string
	// Scheme prefixes every token value, including the trailing space.
	Scheme string
}

// Name returns the header carrying tokens of kind.
func (h HeaderConfig) Name(kind jwt.Kind) string {
	switch kind {
	case jwt.KindAccess:
		return h.Access
	case jwt.KindRefresh:
		return h.Refresh
	default:
		return ""
	}
}

// StoreConfig configures the refresh store created by Builder.WithRedis.
type StoreConfig struct {
	RedisPrefix string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. The secret is left empty and must
// be provided.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  DefaultAccessTTL,
			RefreshTTL: DefaultRefreshTTL,
		},
		Headers: HeaderConfig{
			Access:  DefaultAccessHeader,
			Refresh: DefaultRefreshHeader,
			Scheme:  jwt.DefaultScheme,
		},
		Store: StoreConfig{
			RedisPrefix: "brt",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate checks the configuration. Every failure wraps ErrConfiguration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrConfiguration)
	}

	var errs []error
	if _, err := jwt.NewSigningKey(c.JWT.SecretBase64); err != nil {
		errs = append(errs, err)
	}
	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("access TTL must be positive"))
	}
	if c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("refresh TTL must be positive"))
	}
	if c.JWT.Issuer != "" && strings.TrimSpace(c.JWT.Issuer) == "" {
		errs = append(errs, errors.New("issuer must not be blank when set"))
	}
	if strings.TrimSpace(c.Headers.Access) == "" || strings.TrimSpace(c.Headers.Refresh) == "" {
		errs = append(errs, errors.New("header names must not be blank"))
	}
	if strings.EqualFold(c.Headers.Access, c.Headers.Refresh) {
		errs = append(errs, errors.New("access and refresh headers must differ"))
	}
	if strings.TrimSpace(c.Headers.Scheme) == "" {
		errs = append(errs, errors.New("token scheme must not be blank"))
	}
	if c.Audit.BufferSize < 0 {
		errs = append(errs, errors.New("audit buffer size must not be negative"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
}

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
)

func (s LintSeverity) String() string {
	if s == LintWarn {
		return "warn"
	}
	return "info"
}

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the finding codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// Lint reports settings that are valid but questionable. It assumes Validate passed.
func (c Config) Lint() LintResult {
	var out LintResult

	if key, err := jwt.NewSigningKey(c.JWT.SecretBase64); err == nil && key.Len() < RecommendedKeyBytes {
		out = append(out, LintWarning{
			Code:     "short_signing_key",
			Severity: LintWarn,
			Message:  fmt.Sprintf("signing key is %d bytes; HS256 keys of at least %d bytes are recommended", key.Len(), RecommendedKeyBytes),
		})
	}
	if c.JWT.RefreshTTL > 0 && c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		out = append(out, LintWarning{
			Code:     "refresh_not_longer_than_access",
			Severity: LintWarn,
			Message:  "refresh TTL does not exceed access TTL",
		})
	}
	if c.JWT.AccessTTL > 24*time.Hour {
		out = append(out, LintWarning{
			Code:     "access_ttl_long",
			Severity: LintWarn,
			Message:  "access TTL exceeds 24h",
		})
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		out = append(out, LintWarning{
			Code:     "refresh_ttl_long",
			Severity: LintInfo,
			Message:  "refresh TTL exceeds 30 days",
		})
	}
	if !c.Audit.Enabled {
		out = append(out, LintWarning{
			Code:     "audit_disabled",
			Severity: LintInfo,
			Message:  "audit events are disabled",
		})
	}
	return out
}
