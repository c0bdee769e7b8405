package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"spinningrats/database"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Discord bot
	DiscordToken string
	GuildID      string

	// Discord OAuth
	DiscordClientID     string
	DiscordClientSecret string
	DiscordCallbackURL  string
	SessionSecret       string

	// Login announcements
	WebhookURL string

	// HTTP server
	HTTPAddr  string
	StaticDir string

	// Persistence
	StoreBackend string
	DataFile     string
	DatabaseURL  string
	DatabaseName string

	// NATS event mirror; empty disables it
	NATSServers string

	// Game
	AccountingInterval time.Duration
	LeaderboardSize    int
	MaxScore           int64
	Timezone           string

	// Logging
	LogLevel string

	// OpenTelemetry
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// Location resolves the timezone used for the daily reset
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BotEnabled reports whether the Discord bot should be started
func (c *Config) BotEnabled() bool {
	return c.DiscordToken != ""
}

// NATSEnabled reports whether events are mirrored to NATS
func (c *Config) NATSEnabled() bool {
	return c.NATSServers != ""
}

// IsProduction reports whether the process runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load reads configuration from the environment, after loading an optional .env file
func load() (*Config, error) {
	// A missing .env is the normal case in containers
	_ = godotenv.Load()
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	config := &Config{
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordCallbackURL:  getEnvWithDefault("DISCORD_CALLBACK_URL", "http://localhost:3000/auth/discord/callback"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),

		WebhookURL: os.Getenv("WEBHOOK_URL"),

		HTTPAddr:  getEnvWithDefault("HTTP_ADDR", ":3000"),
		StaticDir: getEnvWithDefault("STATIC_DIR", "public"),

		StoreBackend: getEnvWithDefault("STORE_BACKEND", StoreBackendFile),
		DataFile:     getEnvWithDefault("DATA_FILE", "data.json"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		NATSServers: os.Getenv("NATS_SERVERS"),

		AccountingInterval: time.Minute,
		LeaderboardSize:    10,
		MaxScore:           1_000_000,
		Timezone:           os.Getenv("TIMEZONE"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "spinningrats"),
		OTelExportIntervalMillis: 30000,

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if interval := os.Getenv("ACCOUNTING_INTERVAL"); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid ACCOUNTING_INTERVAL %q", interval)
		}
		config.AccountingInterval = parsed
	}
	if size := os.Getenv("LEADERBOARD_SIZE"); size != "" {
		parsed, err := strconv.Atoi(size)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid LEADERBOARD_SIZE %q", size)
		}
		config.LeaderboardSize = parsed
	}
	if maxScore := os.Getenv("MAX_SCORE"); maxScore != "" {
		parsed, err := strconv.ParseInt(maxScore, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid MAX_SCORE %q", maxScore)
		}
		config.MaxScore = parsed
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	switch config.StoreBackend {
	case StoreBackendFile, StoreBackendPostgres:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}

	if _, err := config.Location(); err != nil {
		return nil, err
	}

	if config.Environment != "test" {
		if config.DiscordClientID == "" {
			return nil, fmt.Errorf("DISCORD_CLIENT_ID is required")
		}
		if config.DiscordClientSecret == "" {
			return nil, fmt.Errorf("DISCORD_CLIENT_SECRET is required")
		}
		if config.SessionSecret == "" {
			return nil, fmt.Errorf("SESSION_SECRET is required")
		}
		if config.StoreBackend == StoreBackendPostgres && config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		SessionSecret:            "test-session-secret-0123456789abcdef",
		DiscordCallbackURL:       "http://localhost:3000/auth/discord/callback",
		HTTPAddr:                 ":0",
		StaticDir:                "public",
		StoreBackend:             StoreBackendFile,
		DataFile:                 "data.json",
		AccountingInterval:       time.Minute,
		LeaderboardSize:          10,
		MaxScore:                 1_000_000,
		LogLevel:                 "info",
		OTelExporterType:         "none",
		OTelServiceName:          "spinningrats",
		OTelExportIntervalMillis: 30000,
		Environment:              "test",
	}
}
