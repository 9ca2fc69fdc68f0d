package config

// selects the counter store backend
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

// server configuration
type Config struct {
	Port        string
	Environment string
	JWTSecret   string

	CounterStore StoreKind
	DatabaseURL  string
	RedisURL     string
	SQLitePath   string

	EnhancerProvider string
	AnthropicKey     string
	EnhancerModel    string

	RateLimit   string
	CORSOrigins []string

	OAuth OAuthConfig
}

// OAuth is optional; routes are only registered when Enabled
type OAuthConfig struct {
	Enabled            bool
	BaseURL            string
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	GithubClientID     string
	GithubClientSecret string
}

// terminal client configuration
type ClientConfig struct {
	Environment string
	Endpoint    string
	Token       string
	ExportDir   string
	LogFile     string
}
