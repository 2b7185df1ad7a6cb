package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"economy/config"
	"economy/events"
	"economy/models"
	"economy/repository/testutil"
	"economy/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testBlookID = int64(7)

type economyHarness struct {
	db         *testutil.TestDatabase
	accounts   *AccountRepository
	blooks     *BlookRepository
	items      *ItemRepository
	auctions   *AuctionRepository
	uowFactory service.UnitOfWorkFactory
	auctionSvc service.AuctionService
}

func newEconomyHarness(t *testing.T) *economyHarness {
	testDB := testutil.SetupTestDatabase(t)

	catalog := new(service.MockCatalogReader)
	catalog.On("GetAssetDefinition", mock.Anything, models.AssetKindBlook, testBlookID).
		Return(&models.AssetDefinition{ID: testBlookID, Kind: models.AssetKindBlook, Name: "Dragon", Rarity: "Legendary"}, nil)

	accounts := NewAccountRepository(testDB.DB)
	uowFactory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())

	return &economyHarness{
		db:         testDB,
		accounts:   accounts,
		blooks:     NewBlookRepository(testDB.DB),
		items:      NewItemRepository(testDB.DB),
		auctions:   NewAuctionRepository(testDB.DB),
		uowFactory: uowFactory,
		auctionSvc: service.NewAuctionService(uowFactory, catalog, accounts, 1440),
	}
}

func (h *economyHarness) account(t *testing.T, id, tokens int64) {
	_, err := h.accounts.Create(context.Background(), id, "account", tokens)
	require.NoError(t, err)
}

func (h *economyHarness) tokens(t *testing.T, id int64) int64 {
	account, err := h.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account.Tokens
}

func (h *economyHarness) expire(t *testing.T, auctionID int64) {
	_, err := h.db.DB.Exec(context.Background(),
		`UPDATE auctions SET expires_at = NOW() - INTERVAL '1 minute' WHERE id = $1`, auctionID)
	require.NoError(t, err)
}

func (h *economyHarness) debit(ctx context.Context, accountID, amount int64) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if _, err := service.NewLedger(uow).Debit(ctx, accountID, amount, service.Posting{Type: models.TransactionTypePackPurchase}); err != nil {
		return err
	}
	return uow.Commit()
}

func TestEconomy_ListingTaxThenConcurrentDebits(t *testing.T) {
	h := newEconomyHarness(t)
	ctx := context.Background()
	h.account(t, 1, 100)

	_, err := h.blooks.Create(ctx, 1, testBlookID)
	require.NoError(t, err)

	auction, err := h.auctionSvc.CreateAuction(ctx, service.CreateAuctionRequest{
		SellerID:        1,
		BlookID:         int64Ptr(testBlookID),
		Price:           100,
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(85), h.tokens(t, 1))

	history, err := NewBalanceHistoryRepository(h.db.DB).GetByAccount(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TransactionTypeAuctionTax, history[0].TransactionType)
	assert.Equal(t, &auction.ID, history[0].RelatedID)

	t.Run("overdraw is refused and balance is untouched", func(t *testing.T) {
		err := h.debit(ctx, 1, 90)
		assert.ErrorIs(t, err, service.ErrInsufficientFunds)
		assert.Equal(t, int64(85), h.tokens(t, 1))
	})

	t.Run("only one of two concurrent debits fits", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = h.debit(ctx, 1, 50)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, service.ErrInsufficientFunds)
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, int64(35), h.tokens(t, 1))
	})
}

func TestEconomy_SettlementTransfersToHighestBidder(t *testing.T) {
	h := newEconomyHarness(t)
	ctx := context.Background()
	h.account(t, 1, 1000)
	h.account(t, 2, 500)
	h.account(t, 3, 500)

	blook, err := h.blooks.Create(ctx, 1, testBlookID)
	require.NoError(t, err)

	auction, err := h.auctionSvc.CreateAuction(ctx, service.CreateAuctionRequest{
		SellerID:        1,
		BlookID:         int64Ptr(testBlookID),
		Price:           100,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	sellerAfterTax := h.tokens(t, 1)
	assert.Equal(t, int64(1000-10-10), sellerAfterTax)

	_, err = h.auctionSvc.PlaceBid(ctx, auction.ID, 2, 200)
	require.NoError(t, err)
	_, err = h.auctionSvc.PlaceBid(ctx, auction.ID, 3, 150)
	require.NoError(t, err)

	listings, err := h.auctionSvc.ListActiveAuctions(ctx, models.AuctionFilter{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.NotNil(t, listings[0].HighestBid)
	assert.Equal(t, int64(200), *listings[0].HighestBid)
	assert.Equal(t, 2, listings[0].BidCount)

	h.expire(t, auction.ID)

	sweeper := service.NewSettlementService(h.uowFactory, config.SettlementModeBatch)
	report, err := sweeper.RunSettlementSweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Sold())
	assert.Equal(t, int64(200), report.Outcomes[0].Amount)

	assert.Equal(t, int64(300), h.tokens(t, 2))
	assert.Equal(t, int64(500), h.tokens(t, 3))
	assert.Equal(t, sellerAfterTax+200, h.tokens(t, 1))

	owned, err := h.blooks.GetByID(ctx, blook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), owned.OwnerID)
	assert.Equal(t, int64(1), owned.InitialObtainerID)

	settled, err := h.auctions.GetByID(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStateSold, settled.StateAt(time.Now()))

	t.Run("second sweep is a no-op", func(t *testing.T) {
		report, err := sweeper.RunSettlementSweep(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Outcomes)
		assert.Equal(t, int64(300), h.tokens(t, 2))
		assert.Equal(t, sellerAfterTax+200, h.tokens(t, 1))
	})

	t.Run("bids on a settled auction are refused", func(t *testing.T) {
		_, err := h.auctionSvc.PlaceBid(ctx, auction.ID, 3, 500)
		assert.ErrorIs(t, err, service.ErrForbidden)
	})
}

func TestEconomy_SettlementSkipsInsolventBidder(t *testing.T) {
	h := newEconomyHarness(t)
	ctx := context.Background()
	h.account(t, 1, 1000)
	h.account(t, 2, 500)
	h.account(t, 3, 500)

	_, err := h.blooks.Create(ctx, 1, testBlookID)
	require.NoError(t, err)

	auction, err := h.auctionSvc.CreateAuction(ctx, service.CreateAuctionRequest{
		SellerID:        1,
		BlookID:         int64Ptr(testBlookID),
		Price:           100,
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	_, err = h.auctionSvc.PlaceBid(ctx, auction.ID, 2, 400)
	require.NoError(t, err)
	_, err = h.auctionSvc.PlaceBid(ctx, auction.ID, 3, 150)
	require.NoError(t, err)

	// bidder 2 spends down below their bid before expiry
	require.NoError(t, h.debit(ctx, 2, 200))
	h.expire(t, auction.ID)

	report, err := service.NewSettlementService(h.uowFactory, config.SettlementModePerAuction).RunSettlementSweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	require.NotNil(t, report.Outcomes[0].BuyerID)
	assert.Equal(t, int64(3), *report.Outcomes[0].BuyerID)

	assert.Equal(t, int64(300), h.tokens(t, 2))
	assert.Equal(t, int64(350), h.tokens(t, 3))
}

func TestEconomy_BuyItNowExpiresUnsold(t *testing.T) {
	h := newEconomyHarness(t)
	ctx := context.Background()
	h.account(t, 1, 1000)
	h.account(t, 2, 1000)

	item, err := h.items.Create(ctx, 1, 40, 2)
	require.NoError(t, err)

	auction, err := h.auctionSvc.CreateAuction(ctx, service.CreateAuctionRequest{
		SellerID:        1,
		ItemID:          int64Ptr(item.ID),
		Price:           100,
		BuyItNow:        true,
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000-5-10), h.tokens(t, 1))

	_, err = h.auctionSvc.PlaceBid(ctx, auction.ID, 2, 100)
	assert.ErrorIs(t, err, service.ErrBadRequest)

	h.expire(t, auction.ID)

	report, err := service.NewSettlementService(h.uowFactory, config.SettlementModeBatch).RunSettlementSweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].Sold())

	owned, err := h.items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owned.OwnerID)
	assert.Equal(t, int64(1000), h.tokens(t, 2))

	settled, err := h.auctions.GetByID(ctx, auction.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionStateUnsold, settled.StateAt(time.Now()))

	t.Run("unsold item can be listed again", func(t *testing.T) {
		_, err := h.auctionSvc.CreateAuction(ctx, service.CreateAuctionRequest{
			SellerID:        1,
			ItemID:          int64Ptr(item.ID),
			Price:           50,
			DurationMinutes: 10,
		})
		require.NoError(t, err)
	})
}

func TestEconomy_ConcurrentListingsOfOneInstance(t *testing.T) {
	h := newEconomyHarness(t)
	ctx := context.Background()
	h.account(t, 1, 1000)

	item, err := h.items.Create(ctx, 1, 40, 1)
	require.NoError(t, err)
	_, err = h.blooks.Create(ctx, 1, testBlookID)
	require.NoError(t, err)

	run := func(req service.CreateAuctionRequest) []error {
		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = h.auctionSvc.CreateAuction(ctx, req)
			}(i)
		}
		wg.Wait()
		return results
	}

	t.Run("item instance", func(t *testing.T) {
		results := run(service.CreateAuctionRequest{SellerID: 1, ItemID: int64Ptr(item.ID), Price: 100, DurationMinutes: 30})

		var failures []error
		for _, err := range results {
			if err != nil {
				failures = append(failures, err)
			}
		}
		require.Len(t, failures, 1)
		assert.ErrorIs(t, failures[0], service.ErrConflict)
	})

	t.Run("only copy of a blook", func(t *testing.T) {
		results := run(service.CreateAuctionRequest{SellerID: 1, BlookID: int64Ptr(testBlookID), Price: 100, DurationMinutes: 30})

		var failures []error
		for _, err := range results {
			if err != nil {
				failures = append(failures, err)
			}
		}
		require.Len(t, failures, 1)
		// the loser either finds no unlisted copy or loses the race on the instance itself
		kind := service.KindOf(failures[0])
		assert.Contains(t, []service.Kind{service.KindForbidden, service.KindConflict}, kind)
	})

	// two successful listings, each taxed 10 + 5
	assert.Equal(t, int64(1000-30), h.tokens(t, 1))
}

type firstPick struct{}

func (firstPick) Float64() float64     { return 0 }
func (firstPick) Int63n(n int64) int64 { return 0 }

func TestEconomy_OpenPackGrantsAndCharges(t *testing.T) {
	h := newEconomyHarness(t)
	ctx := context.Background()
	h.account(t, 1, 30)

	catalog := new(service.MockCatalogReader)
	catalog.On("GetPackDefinition", mock.Anything, int64(3)).
		Return(&models.PackDefinition{ID: 3, Name: "Medieval", Price: 25, Enabled: true}, nil)
	catalog.On("GetAssetsForPack", mock.Anything, int64(3)).
		Return([]*models.PackAsset{
			{PackID: 3, AssetID: 20, Kind: models.AssetKindItem, Chance: 60},
			{PackID: 3, AssetID: 8, Kind: models.AssetKindBlook, Chance: 40},
		}, nil)
	catalog.On("GetAssetDefinition", mock.Anything, models.AssetKindItem, int64(20)).
		Return(&models.AssetDefinition{ID: 20, Kind: models.AssetKindItem, Name: "Booster", MaxUses: 3}, nil)

	bus := events.NewBus()
	published := make(chan events.Event, 8)
	bus.Subscribe(events.EventTypePackOpened, func(ctx context.Context, event events.Event) { published <- event })

	packs := service.NewPackService(NewUnitOfWorkFactory(h.db.DB, bus), catalog, firstPick{})

	result, err := packs.OpenPack(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.NewBalance)
	assert.Equal(t, models.AssetKindItem, result.Asset.Kind)
	assert.Equal(t, int64(5), h.tokens(t, 1))

	item, err := h.items.GetByID(ctx, result.Asset.InstanceID)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(1), item.OwnerID)
	assert.Equal(t, 3, item.UsesLeft)

	account, err := h.accounts.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.PacksOpened)

	select {
	case event := <-published:
		opened := event.(events.PackOpenedEvent)
		assert.Equal(t, result.Asset.InstanceID, opened.InstanceID)
	case <-time.After(time.Second):
		t.Fatal("pack_opened was not emitted after commit")
	}

	t.Run("second pack is unaffordable and changes nothing", func(t *testing.T) {
		_, err := packs.OpenPack(ctx, 1, 3)
		assert.ErrorIs(t, err, service.ErrInsufficientFunds)
		assert.Equal(t, int64(5), h.tokens(t, 1))

		account, err := h.accounts.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), account.PacksOpened)
	})
}

func TestEconomy_PeriodicRewardOncePerPeriod(t *testing.T) {
	h := newEconomyHarness(t)
	ctx := context.Background()
	h.account(t, 1, 0)

	rewards := service.NewRewardService(h.uowFactory, service.DefaultRewardTable, 0, firstPick{})

	var wg sync.WaitGroup
	results := make([]error, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = rewards.ClaimPeriodicReward(ctx, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, service.ErrForbidden)
	}
	assert.Equal(t, 1, succeeded)

	// the first tier of the table is drawn
	assert.Equal(t, int64(500), h.tokens(t, 1))

	_, err := rewards.ClaimPeriodicReward(ctx, 404)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func int64Ptr(v int64) *int64 { return &v }
