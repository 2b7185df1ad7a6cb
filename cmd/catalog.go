package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"economy/config"
	"economy/infrastructure"
	"economy/models"
)

// emptyCatalog answers every lookup with "not found"
type emptyCatalog struct{}

func (emptyCatalog) GetPackDefinition(ctx context.Context, packID int64) (*models.PackDefinition, error) {
	return nil, nil
}

func (emptyCatalog) GetAssetDefinition(ctx context.Context, kind models.AssetKind, assetID int64) (*models.AssetDefinition, error) {
	return nil, nil
}

func (emptyCatalog) GetAssetsForPack(ctx context.Context, packID int64) ([]*models.PackAsset, error) {
	return nil, nil
}

// LoadCatalog reads a JSON catalog snapshot from path and stores it in Redis
func LoadCatalog(ctx context.Context, path string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required to load the catalog")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var snapshot infrastructure.CatalogSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	client, err := infrastructure.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer client.Close()

	return infrastructure.NewRedisCatalog(client).Load(ctx, snapshot)
}
