package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"economy/models"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const catalogKeyPrefix = "catalog:"

// CatalogSnapshot is the full content catalog as loaded into Redis
type CatalogSnapshot struct {
	Packs  []CatalogPack             `json:"packs"`
	Assets []*models.AssetDefinition `json:"assets"`
}

// CatalogPack is a pack definition with its weighted pool
type CatalogPack struct {
	models.PackDefinition
	Pool []*models.PackAsset `json:"pool"`
}

// RedisCatalog reads pack and asset definitions stored as JSON in Redis.
// It implements service.CatalogReader.
type RedisCatalog struct {
	client *redis.Client
}

// NewRedisClient parses a redis:// URL and verifies the server responds
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.WithField("addr", opts.Addr).Info("Connected to Redis")
	return client, nil
}

func NewRedisCatalog(client *redis.Client) *RedisCatalog {
	return &RedisCatalog{client: client}
}

func packKey(packID int64) string {
	return fmt.Sprintf("%spack:%d", catalogKeyPrefix, packID)
}

func packPoolKey(packID int64) string {
	return fmt.Sprintf("%spack:%d:assets", catalogKeyPrefix, packID)
}

func assetKey(kind models.AssetKind, assetID int64) string {
	return fmt.Sprintf("%s%s:%d", catalogKeyPrefix, strings.ToLower(string(kind)), assetID)
}

// getJSON decodes the value at key into dest, reporting false when the key is absent
func (c *RedisCatalog) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// GetPackDefinition returns nil when the pack is not in the catalog
func (c *RedisCatalog) GetPackDefinition(ctx context.Context, packID int64) (*models.PackDefinition, error) {
	var pack models.PackDefinition
	found, err := c.getJSON(ctx, packKey(packID), &pack)
	if err != nil || !found {
		return nil, err
	}
	return &pack, nil
}

// GetAssetDefinition returns nil when the asset is not in the catalog
func (c *RedisCatalog) GetAssetDefinition(ctx context.Context, kind models.AssetKind, assetID int64) (*models.AssetDefinition, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	var def models.AssetDefinition
	found, err := c.getJSON(ctx, assetKey(kind, assetID), &def)
	if err != nil || !found {
		return nil, err
	}
	return &def, nil
}

// GetAssetsForPack returns the pool in stored order, empty when the pack has none
func (c *RedisCatalog) GetAssetsForPack(ctx context.Context, packID int64) ([]*models.PackAsset, error) {
	var pool []*models.PackAsset
	if _, err := c.getJSON(ctx, packPoolKey(packID), &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// Load writes the snapshot in one MULTI/EXEC so readers never see a pack without its pool
func (c *RedisCatalog) Load(ctx context.Context, snapshot CatalogSnapshot) error {
	values := make(map[string][]byte, len(snapshot.Packs)*2+len(snapshot.Assets))

	for _, asset := range snapshot.Assets {
		if err := asset.Kind.Validate(); err != nil {
			return fmt.Errorf("asset %d: %w", asset.ID, err)
		}
		data, err := json.Marshal(asset)
		if err != nil {
			return fmt.Errorf("failed to encode asset %d: %w", asset.ID, err)
		}
		values[assetKey(asset.Kind, asset.ID)] = data
	}

	for _, pack := range snapshot.Packs {
		packData, err := json.Marshal(pack.PackDefinition)
		if err != nil {
			return fmt.Errorf("failed to encode pack %d: %w", pack.ID, err)
		}
		for _, entry := range pack.Pool {
			entry.PackID = pack.ID
		}
		pool := pack.Pool
		if pool == nil {
			pool = []*models.PackAsset{}
		}
		poolData, err := json.Marshal(pool)
		if err != nil {
			return fmt.Errorf("failed to encode pool of pack %d: %w", pack.ID, err)
		}
		values[packKey(pack.ID)] = packData
		values[packPoolKey(pack.ID)] = poolData
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range values {
			pipe.Set(ctx, key, data, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store catalog: %w", err)
	}

	log.WithFields(log.Fields{
		"packs":  len(snapshot.Packs),
		"assets": len(snapshot.Assets),
	}).Info("Loaded catalog into Redis")
	return nil
}
