package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultPort       = "8080"
	defaultRateLimit  = "30-M"
	defaultSQLitePath = "cvforge.db"
	defaultEndpoint   = "http://localhost:8080"
)

// loads server configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	cfg := &Config{
		Port:             getEnv("PORT", defaultPort),
		Environment:      getEnv("ENVIRONMENT", "development"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CounterStore:     StoreKind(getEnv("COUNTER_STORE", string(StorePostgres))),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", defaultSQLitePath),
		EnhancerProvider: getEnv("ENHANCER_PROVIDER", "stub"),
		AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
		EnhancerModel:    os.Getenv("ENHANCER_MODEL"),
		RateLimit:        getEnv("RATE_LIMIT", defaultRateLimit),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		OAuth:            loadOAuth(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checks that the settings required by the selected backends are present
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	switch c.CounterStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for the postgres counter store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL environment variable is required for the redis counter store")
		}
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown COUNTER_STORE %q", c.CounterStore)
	}

	switch c.EnhancerProvider {
	case "stub":
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required for the anthropic enhancer")
		}
	default:
		return fmt.Errorf("unknown ENHANCER_PROVIDER %q", c.EnhancerProvider)
	}

	return nil
}

// loads terminal client configuration
func LoadClientConfig() *ClientConfig {
	if err := godotenv.Load(); err != nil {
		_ = err
	}

	return &ClientConfig{
		Environment: getEnv("ENVIRONMENT", "development"),
		Endpoint:    strings.TrimRight(getEnv("CVFORGE_API_ENDPOINT", defaultEndpoint), "/"),
		Token:       os.Getenv("CVFORGE_TOKEN"),
		ExportDir:   getEnv("CVFORGE_EXPORT_DIR", "."),
		LogFile:     os.Getenv("CVFORGE_LOG_FILE"),
	}
}

func loadOAuth() OAuthConfig {
	o := OAuthConfig{
		BaseURL:            getEnv("BASE_URL", "http://localhost:"+getEnv("PORT", defaultPort)),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GithubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GithubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
	}

	hasGoogle := o.GoogleClientID != "" && o.GoogleClientSecret != ""
	hasGithub := o.GithubClientID != "" && o.GithubClientSecret != ""
	o.Enabled = o.SessionSecret != "" && (hasGoogle || hasGithub)

	return o
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
