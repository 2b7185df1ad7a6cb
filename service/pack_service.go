package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy/events"
	"economy/models"

	log "github.com/sirupsen/logrus"
)

type packService struct {
	uowFactory UnitOfWorkFactory
	catalog    CatalogReader
	rng        RandomSource
	now        func() time.Time
}

// NewPackService creates a new pack service
func NewPackService(uowFactory UnitOfWorkFactory, catalog CatalogReader, rng RandomSource) PackService {
	if rng == nil {
		rng = DefaultRandomSource
	}
	return &packService{
		uowFactory: uowFactory,
		catalog:    catalog,
		rng:        rng,
		now:        time.Now,
	}
}

// OpenPack charges the pack price and grants one weighted-random asset from its pool
func (s *packService) OpenPack(ctx context.Context, accountID, packID int64) (*models.PackOpenResult, error) {
	pack, err := s.catalog.GetPackDefinition(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack: %w", err)
	}
	if pack == nil || !pack.Enabled {
		return nil, notFound("pack %d not found", packID)
	}

	balance, err := s.checkBalance(ctx, accountID, pack.Price)
	if err != nil {
		return nil, err
	}

	drawn, err := s.drawAsset(ctx, pack)
	if err != nil {
		return nil, err
	}

	def, err := s.catalog.GetAssetDefinition(ctx, drawn.Kind, drawn.AssetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset definition: %w", err)
	}
	if def == nil {
		return nil, notFound("%s %d in pack %d not found", drawn.Kind, drawn.AssetID, packID)
	}

	// Only the economic writes happen inside the transaction
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ledger := NewLedger(uow)
	result := &models.PackOpenResult{PackID: packID, Definition: def, NewBalance: balance}

	if pack.Price > 0 {
		relatedType := models.RelatedTypePack
		result.NewBalance, err = ledger.Debit(ctx, accountID, pack.Price, Posting{
			Type:        models.TransactionTypePackPurchase,
			Metadata:    map[string]any{"pack_name": pack.Name},
			RelatedID:   &pack.ID,
			RelatedType: &relatedType,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := uow.AccountRepository().IncrementPacksOpened(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to count pack: %w", err)
	}

	result.Asset, err = ledger.GrantAsset(ctx, accountID, def.ID, def.Kind, AssetMetadata{UsesLeft: def.MaxUses})
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.PackOpenedEvent{
		AccountID:    accountID,
		PackID:       packID,
		Kind:         result.Asset.Kind,
		DefinitionID: result.Asset.DefinitionID,
		InstanceID:   result.Asset.InstanceID,
		Price:        pack.Price,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":  accountID,
		"packID":     packID,
		"kind":       def.Kind,
		"assetID":    def.ID,
		"instanceID": result.Asset.InstanceID,
	}).Debug("Pack opened")

	return result, nil
}

// checkBalance fails early with ErrInsufficientFunds so a poor account never reaches the draw
func (s *packService) checkBalance(ctx context.Context, accountID, price int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, notFound("account %d not found", accountID)
	}
	if !account.CanAfford(price) {
		return 0, fmt.Errorf("pack costs %d, balance is %d: %w", price, account.Tokens, ErrInsufficientFunds)
	}
	return account.Tokens, nil
}

func (s *packService) drawAsset(ctx context.Context, pack *models.PackDefinition) (*models.PackAsset, error) {
	assets, err := s.catalog.GetAssetsForPack(ctx, pack.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack pool: %w", err)
	}

	now := s.now()
	pool := make([]WeightedEntry[*models.PackAsset], 0, len(assets))
	for _, asset := range assets {
		if asset.AvailableOn(now) {
			pool = append(pool, WeightedEntry[*models.PackAsset]{Weight: asset.Chance, Value: asset})
		}
	}

	drawn, err := Draw(s.rng, pool)
	if errors.Is(err, ErrNoEligibleCandidates) {
		return nil, notFound("pack %d has no eligible assets", pack.ID)
	}
	if err != nil {
		return nil, err
	}
	return drawn, nil
}
