package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"taskquest/internal/errors"
)

// Backend kinds
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Backend  BackendConfig `validate:"required"`
	Server   ServerConfig  `validate:"required"`
	Redis    RedisConfig
	OAuth    OAuthConfig
	Logging  LoggingConfig
	Rules    RulesConfig
	Fetch    FetchConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

// BackendConfig selects where rows are read from and insights are written to
type BackendConfig struct {
	Kind        string `validate:"required"`
	SupabaseURL string
	SupabaseKey string
	Timeout     time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string `validate:"required"`
	GinMode         string
	ShutdownTimeout time.Duration
}

// RedisConfig holds settings for the insight feed
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	FeedLength int
	FeedTTL    time.Duration
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// OAuthClient holds the credentials registered with one provider
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfig holds per-provider OAuth clients keyed by provider name
type OAuthConfig struct {
	Providers map[string]OAuthClient
}

// LoggingConfig mirrors logging.Options
type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	JSON       bool
}

// RulesConfig locates the optional rules file
type RulesConfig struct {
	Path  string
	Watch bool
}

// FetchConfig bounds the metric fetcher
type FetchConfig struct {
	Concurrency int
	Timeout     time.Duration
	WindowDays  int
}

// oauthProviders are the providers read from <NAME>_CLIENT_ID / <NAME>_CLIENT_SECRET
var oauthProviders = []string{"google", "outlook", "slack", "notion", "github"}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	// Load backend configuration
	backendConfig, err := loadBackendConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load backend configuration")
	}
	config.Backend = *backendConfig

	// Load database configuration
	dbConfig, err := loadDatabaseConfig(config.Backend.Kind)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	config.Server = *loadServerConfig()
	config.Redis = *loadRedisConfig()
	config.OAuth = *loadOAuthConfig()
	config.Logging = *loadLoggingConfig()
	config.Rules = *loadRulesConfig()
	config.Fetch = *loadFetchConfig()

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadBackendConfig() (*BackendConfig, error) {
	kind := strings.ToLower(getEnvOrDefault("BACKEND", BackendPostgres))
	switch kind {
	case BackendPostgres, BackendSQLite, BackendSupabase:
	default:
		return nil, errors.ConfigInvalid("BACKEND must be one of postgres, sqlite, supabase")
	}

	cfg := &BackendConfig{
		Kind:        kind,
		SupabaseURL: strings.TrimRight(getEnvOrDefault("SUPABASE_URL", ""), "/"),
		SupabaseKey: getEnvOrDefault("SUPABASE_KEY", ""),
		Timeout:     getEnvDurationOrDefault("BACKEND_TIMEOUT", 15*time.Second),
	}
	if kind == BackendSupabase && (cfg.SupabaseURL == "" || cfg.SupabaseKey == "") {
		return nil, errors.ConfigInvalid("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend")
	}
	return cfg, nil
}

func loadDatabaseConfig(kind string) (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if kind == BackendPostgres && url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:          url,
		SQLitePath:   getEnvOrDefault("SQLITE_PATH", "taskquest.db"),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:       getEnvOrDefault("REDIS_ADDR", ""),
		Password:   getEnvOrDefault("REDIS_PASSWORD", ""),
		DB:         getEnvIntOrDefault("REDIS_DB", 0),
		FeedLength: getEnvIntOrDefault("INSIGHT_FEED_LENGTH", 50),
		FeedTTL:    getEnvDurationOrDefault("INSIGHT_FEED_TTL", 7*24*time.Hour),
	}
}

func loadOAuthConfig() *OAuthConfig {
	cfg := &OAuthConfig{Providers: make(map[string]OAuthClient)}
	for _, name := range oauthProviders {
		prefix := strings.ToUpper(name)
		id := os.Getenv(prefix + "_CLIENT_ID")
		if id == "" {
			continue
		}
		cfg.Providers[name] = OAuthClient{
			ClientID:     id,
			ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
			RedirectURL:  os.Getenv(prefix + "_REDIRECT_URL"),
		}
	}
	return cfg
}

func loadLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:      getEnvOrDefault("LOG_LEVEL", "INFO"),
		File:       getEnvOrDefault("LOG_FILE", ""),
		MaxSizeMB:  getEnvIntOrDefault("LOG_MAX_SIZE_MB", 10),
		MaxBackups: getEnvIntOrDefault("LOG_MAX_BACKUPS", 3),
		JSON:       getEnvBoolOrDefault("LOG_JSON", false),
	}
}

func loadRulesConfig() *RulesConfig {
	return &RulesConfig{
		Path:  getEnvOrDefault("RULES_FILE", ""),
		Watch: getEnvBoolOrDefault("RULES_WATCH", true),
	}
}

func loadFetchConfig() *FetchConfig {
	return &FetchConfig{
		Concurrency: getEnvIntOrDefault("FETCH_CONCURRENCY", 4),
		Timeout:     getEnvDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
		WindowDays:  getEnvIntOrDefault("INSIGHT_WINDOW_DAYS", 30),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Fetch.Concurrency < 1 {
		return errors.ConfigInvalid("FETCH_CONCURRENCY must be at least 1")
	}
	if config.Fetch.WindowDays < 1 {
		return errors.ConfigInvalid("INSIGHT_WINDOW_DAYS must be at least 1")
	}
	if config.Redis.Enabled() && config.Redis.FeedLength < 1 {
		return errors.ConfigInvalid("INSIGHT_FEED_LENGTH must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
