package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// External services
	ProfileAPIURL string
	IntentAPIURL  string
	ChatAgentURL  string // LLM agent base URL (POST /v1/chat)

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL  time.Duration
	CacheSize int

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool

	// Service auth
	AuthEnabled bool
	JWTSecret   string
	JWTTTL      time.Duration

	// Continuity engine
	DefaultRequiredSlots []string
	ShortReplyRunes      int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ProfileAPIURL: getEnv("PROFILE_API_URL", "http://localhost:8081"),
		IntentAPIURL:  getEnv("INTENT_API_URL", "http://localhost:8082"),
		ChatAgentURL:  getEnv("CHAT_AGENT_URL", "http://localhost:8090"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 10000),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),

		AuthEnabled: getEnvBool("AUTH_ENABLED", false),
		JWTSecret:   getEnv("JWT_SECRET", "bfa-default-dev-secret-change-me"),
		JWTTTL:      getEnvDuration("JWT_TTL", time.Hour),

		DefaultRequiredSlots: getEnvList("DEFAULT_REQUIRED_SLOTS"),
		ShortReplyRunes:      getEnvInt("SHORT_REPLY_RUNES", 15),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
