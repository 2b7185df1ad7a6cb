package cmd

import (
	"context"
	"testing"

	"economy/config"
	"economy/service"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	cfg := config.NewTestConfig()
	cfg.LogLevel = "warn"
	ConfigureLogging(cfg)
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	cfg.LogLevel = "chatty"
	ConfigureLogging(cfg)
	assert.Equal(t, log.InfoLevel, log.GetLevel())

	cfg.Environment = "production"
	ConfigureLogging(cfg)
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)
}

func TestNewServices(t *testing.T) {
	t.Parallel()

	services := NewServices(config.NewTestConfig(), new(service.MockUnitOfWorkFactory), emptyCatalog{}, new(service.MockEntitlementChecker))
	require.NotNil(t, services)
	assert.NotNil(t, services.Accounts)
	assert.NotNil(t, services.Auctions)
	assert.NotNil(t, services.Settlement)
	assert.NotNil(t, services.Packs)
	assert.NotNil(t, services.Rewards)
}

func TestEmptyCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	pack, err := emptyCatalog{}.GetPackDefinition(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, pack)

	pool, err := emptyCatalog{}.GetAssetsForPack(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestLoadCatalogRequiresRedis(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	defer config.ResetConfig()

	err := LoadCatalog(context.Background(), "catalog.json")
	assert.ErrorContains(t, err, "REDIS_URL")
}
