package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"economy/database"
)

// SettlementMode selects how the sweeper groups expired auctions into transactions
type SettlementMode string

const (
	// SettlementModeBatch settles every expired auction in one transaction
	SettlementModeBatch SettlementMode = "batch"
	// SettlementModePerAuction settles each expired auction in its own transaction
	SettlementModePerAuction SettlementMode = "per_auction"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL       string
	DatabaseName      string
	DatabaseIsolation string

	// Redis backs the catalog cache and the settlement lock
	RedisURL string

	// NATS configuration
	NATSServers string

	// Settlement configuration
	SettlementInterval time.Duration
	SettlementMode     SettlementMode
	SettlementLockTTL  time.Duration

	// Economy rules
	StartingTokens    int64
	MaxAuctionMinutes int
	RewardResetHour   int // Hour in UTC when the periodic reward resets (0-23)

	LogLevel string

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
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL combines the server URL and the database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DatabaseName:      os.Getenv("DATABASE_NAME"),
		DatabaseIsolation: getEnvWithDefault("DATABASE_ISOLATION", "read_committed"),
		RedisURL:          os.Getenv("REDIS_URL"),
		NATSServers:       os.Getenv("NATS_SERVERS"),
		SettlementMode:    SettlementMode(getEnvWithDefault("SETTLEMENT_MODE", string(SettlementModeBatch))),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:       getEnvWithDefault("ENVIRONMENT", "development"),
	}

	var err error
	if config.SettlementInterval, err = getDurationSeconds("SETTLEMENT_INTERVAL_SECONDS", 60); err != nil {
		return nil, err
	}
	if config.SettlementLockTTL, err = getDurationSeconds("SETTLEMENT_LOCK_TTL_SECONDS", 120); err != nil {
		return nil, err
	}
	if config.StartingTokens, err = getInt64("STARTING_TOKENS", 100); err != nil {
		return nil, err
	}
	maxMinutes, err := getInt64("MAX_AUCTION_MINUTES", 1440)
	if err != nil {
		return nil, err
	}
	config.MaxAuctionMinutes = int(maxMinutes)
	resetHour, err := getInt64("REWARD_RESET_HOUR", 0)
	if err != nil {
		return nil, err
	}
	config.RewardResetHour = int(resetHour)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the ranges and required values of the configuration
func (c *Config) Validate() error {
	switch c.SettlementMode {
	case SettlementModeBatch, SettlementModePerAuction:
	default:
		return fmt.Errorf("SETTLEMENT_MODE must be %q or %q, got %q", SettlementModeBatch, SettlementModePerAuction, c.SettlementMode)
	}
	if c.RewardResetHour < 0 || c.RewardResetHour > 23 {
		return fmt.Errorf("REWARD_RESET_HOUR must be between 0 and 23, got %d", c.RewardResetHour)
	}
	if c.MaxAuctionMinutes < 1 {
		return fmt.Errorf("MAX_AUCTION_MINUTES must be positive, got %d", c.MaxAuctionMinutes)
	}
	if c.SettlementInterval <= 0 {
		return fmt.Errorf("SETTLEMENT_INTERVAL_SECONDS must be positive")
	}
	if c.StartingTokens < 0 {
		return fmt.Errorf("STARTING_TOKENS cannot be negative")
	}
	if _, err := database.ParseIsolation(c.DatabaseIsolation); err != nil {
		return fmt.Errorf("DATABASE_ISOLATION: %w", err)
	}

	if c.Environment != "test" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getDurationSeconds(key string, defaultSeconds int64) (time.Duration, error) {
	seconds, err := getInt64(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
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
		DatabaseIsolation:  "read_committed",
		SettlementInterval: time.Minute,
		SettlementMode:     SettlementModeBatch,
		SettlementLockTTL:  2 * time.Minute,
		StartingTokens:     100,
		MaxAuctionMinutes:  1440,
		RewardResetHour:    0,
		LogLevel:           "debug",
		Environment:        "test",
	}
}
