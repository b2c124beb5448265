package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Addr          string
	PostgresDSN   string
	JWTSigningKey string
	GeocoderURL   string

	Redis RedisConfig

	StoreTimeout   time.Duration
	LookupAttempts int
	CacheTTL       time.Duration
	AuditBuffer    int
}

// RedisConfig holds the optional projection cache settings. An empty URL
// disables caching.
type RedisConfig struct {
	URL string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Addr:           envOr("MEMBERFLOW_ADDR", ":8080"),
		PostgresDSN:    os.Getenv("MEMBERFLOW_POSTGRES_DSN"),
		JWTSigningKey:  jwtSigningKey,
		GeocoderURL:    os.Getenv("MEMBERFLOW_GEOCODER_URL"),
		Redis:          RedisConfig{URL: os.Getenv("MEMBERFLOW_REDIS_URL")},
		StoreTimeout:   envDuration("MEMBERFLOW_STORE_TIMEOUT", 5*time.Second),
		LookupAttempts: envInt("MEMBERFLOW_LOOKUP_ATTEMPTS", 2),
		CacheTTL:       envDuration("MEMBERFLOW_CACHE_TTL", 5*time.Minute),
		AuditBuffer:    envInt("MEMBERFLOW_AUDIT_BUFFER", 256),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
