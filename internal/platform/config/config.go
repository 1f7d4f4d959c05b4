package config

import (
	"os"
	"time"
)

// Config captures everything the core consumes from the environment: store
// connection parameters, the request timeout, and the base API URL.
type Config struct {
	Addr           string
	StoreDriver    string // "postgres" or "memory"
	DatabaseURL    string
	APIBaseURL     string
	RequestTimeout time.Duration
	JWTSigningKey  string
	AdminPassword  string
	RequireAuth    bool
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:           getenv("MEMBERDESK_ADDR", ":8080"),
		StoreDriver:    getenv("MEMBERDESK_STORE_DRIVER", "postgres"),
		DatabaseURL:    getenv("MEMBERDESK_DATABASE_URL", "postgres://localhost:5432/memberdesk?sslmode=disable"),
		APIBaseURL:     getenv("MEMBERDESK_API_BASE_URL", "http://localhost:8080"),
		RequestTimeout: 10 * time.Second,
		// Defaults are for development only and should be overridden in
		// any real deployment.
		JWTSigningKey: getenv("MEMBERDESK_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminPassword: getenv("MEMBERDESK_ADMIN_PASSWORD", "admin123"),
		RequireAuth:   os.Getenv("MEMBERDESK_REQUIRE_AUTH") == "true",
	}
	if raw := os.Getenv("MEMBERDESK_REQUEST_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.RequestTimeout = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
