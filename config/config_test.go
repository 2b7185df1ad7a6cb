package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("SETTLEMENT_MODE", "")
	t.Setenv("SETTLEMENT_INTERVAL_SECONDS", "")
	t.Setenv("REWARD_RESET_HOUR", "")
	t.Setenv("MAX_AUCTION_MINUTES", "")
	t.Setenv("DATABASE_ISOLATION", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, SettlementModeBatch, cfg.SettlementMode)
	assert.Equal(t, time.Minute, cfg.SettlementInterval)
	assert.Equal(t, 0, cfg.RewardResetHour)
	assert.Equal(t, 1440, cfg.MaxAuctionMinutes)
	assert.Equal(t, "read_committed", cfg.DatabaseIsolation)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("SETTLEMENT_MODE", "per_auction")
	t.Setenv("SETTLEMENT_INTERVAL_SECONDS", "15")
	t.Setenv("REWARD_RESET_HOUR", "12")
	t.Setenv("MAX_AUCTION_MINUTES", "60")
	t.Setenv("STARTING_TOKENS", "250")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, SettlementModePerAuction, cfg.SettlementMode)
	assert.Equal(t, 15*time.Second, cfg.SettlementInterval)
	assert.Equal(t, 12, cfg.RewardResetHour)
	assert.Equal(t, 60, cfg.MaxAuctionMinutes)
	assert.Equal(t, int64(250), cfg.StartingTokens)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown settlement mode", "SETTLEMENT_MODE", "whenever"},
		{"reset hour out of range", "REWARD_RESET_HOUR", "24"},
		{"non numeric interval", "SETTLEMENT_INTERVAL_SECONDS", "soon"},
		{"zero max duration", "MAX_AUCTION_MINUTES", "0"},
		{"unknown isolation", "DATABASE_ISOLATION", "snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "test")
			t.Setenv(tt.key, tt.value)

			_, err := load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RequiresDatabaseOutsideTests(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestSetTestConfig(t *testing.T) {
	t.Cleanup(ResetConfig)

	cfg := NewTestConfig()
	cfg.StartingTokens = 7
	SetTestConfig(cfg)

	assert.Equal(t, int64(7), Get().StartingTokens)
}
