package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/bearerAuth"
	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/principal"
	"github.com/joho/godotenv"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type daemonConfig struct {
	ServerAddr  string
	LogLevel    string
	Backend     string
	RedisURL    string
	DatabaseDSN string
	PurgeEvery  time.Duration
	Principals  []principal.Record
	Engine      bearerAuth.Config
}

func loadConfig() (daemonConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	engine := bearerAuth.DefaultConfig()
	engine.JWT.SecretBase64 = getEnv("BEARERAUTH_SECRET", "")
	engine.JWT.AccessTTL = getEnvDuration("ACCESS_TOKEN_TTL", bearerAuth.DefaultAccessTTL)
	engine.JWT.RefreshTTL = getEnvDuration("REFRESH_TOKEN_TTL", bearerAuth.DefaultRefreshTTL)
	engine.JWT.Issuer = getEnv("TOKEN_ISSUER", "")
	engine.Headers.Access = getEnv("ACCESS_HEADER", bearerAuth.DefaultAccessHeader)
	engine.Headers.Refresh = getEnv("REFRESH_HEADER", bearerAuth.DefaultRefreshHeader)
	engine.Store.RedisPrefix = getEnv("REDIS_PREFIX", engine.Store.RedisPrefix)
	engine.Audit.Enabled = getEnvBool("AUDIT_ENABLED", false)
	engine.Metrics.Enabled = getEnvBool("METRICS_ENABLED", true)
	engine.Metrics.EnableLatencyHistograms = getEnvBool("METRICS_LATENCY", true)

	principals, err := parsePrincipals(getEnv("BEARERAUTH_PRINCIPALS", ""))
	if err != nil {
		return daemonConfig{}, err
	}

	cfg := daemonConfig{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Backend:     strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseDSN: getEnv("DATABASE_DSN", ""),
		PurgeEvery:  getEnvDuration("PURGE_INTERVAL", 10*time.Minute),
		Principals:  principals,
		Engine:      engine,
	}

	switch cfg.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if cfg.DatabaseDSN == "" {
			return daemonConfig{}, fmt.Errorf("DATABASE_DSN is required for the %s backend", BackendPostgres)
		}
	default:
		return daemonConfig{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Backend)
	}

	if err := cfg.Engine.Validate(); err != nil {
		return daemonConfig{}, err
	}
	return cfg, nil
}

// parsePrincipals reads "subject:ROLE" pairs separated by commas.
func parsePrincipals(value string) ([]principal.Record, error) {
	var out []principal.Record
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		subject, role, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(subject) == "" {
			return nil, fmt.Errorf("invalid principal %q, want subject:ROLE", item)
		}
		r := jwt.Role(strings.ToUpper(strings.TrimSpace(role)))
		if !r.Valid() {
			return nil, fmt.Errorf("invalid role %q for principal %q", role, subject)
		}
		out = append(out, principal.Record{Subject: strings.TrimSpace(subject), Role: r})
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
