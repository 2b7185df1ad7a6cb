package service

import (
	"context"
	"testing"
	"time"

	"economy/config"
	"economy/events"
	"economy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSettlementService(factory UnitOfWorkFactory, mode config.SettlementMode) *settlementService {
	svc := NewSettlementService(factory, mode).(*settlementService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func buyerIs(id int64) any {
	return mock.MatchedBy(func(b *int64) bool { return b != nil && *b == id })
}

func expiredBlookAuction(id, instanceID, sellerID int64, buyItNow bool) *models.Auction {
	return &models.Auction{
		ID:        id,
		Kind:      models.AssetKindBlook,
		BlookID:   int64Ptr(instanceID),
		SellerID:  sellerID,
		Price:     100,
		BuyItNow:  buyItNow,
		ExpiresAt: testNow.Add(-time.Minute),
	}
}

func TestSettlementService_SolvencyRecheckPicksAffordableBid(t *testing.T) {
	ctx := context.Background()
	factory := new(MockUnitOfWorkFactory)
	uow := NewMockUnitOfWork()
	expectUnitOfWork(factory, uow, ctx, true)

	auction := expiredBlookAuction(1, 77, 10, false)
	uow.Auctions().On("GetExpiredUnsettled", ctx, testNow).Return([]*models.Auction{auction}, nil)
	uow.Bids().On("GetByAuctions", ctx, []int64{1}).Return(map[int64][]*models.Bid{
		1: {
			{ID: 1, AuctionID: 1, BidderID: 20, Amount: 200},
			{ID: 2, AuctionID: 1, BidderID: 30, Amount: 150},
		},
	}, nil)
	uow.Accounts().On("GetByIDsForUpdate", ctx, []int64{20, 30}).Return(map[int64]*models.Account{
		20: {ID: 20, Tokens: 50},
		30: {ID: 30, Tokens: 300},
	}, nil)
	uow.Accounts().On("AdjustTokens", ctx, int64(30), int64(-150)).Return(int64(150), nil)
	uow.Accounts().On("AdjustTokens", ctx, int64(10), int64(150)).Return(int64(250), nil)
	uow.History().On("Record", ctx, mock.Anything).Return(nil)
	uow.Blooks().On("UpdateOwner", ctx, int64(77), int64(30)).Return(true, nil)
	uow.Auctions().On("MarkDelisted", ctx, int64(1), buyerIs(30), testNow).Return(nil)

	report, err := newTestSettlementService(factory, config.SettlementModeBatch).RunSettlementSweep(ctx)

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Sold())
	assert.Equal(t, int64(150), report.Outcomes[0].Amount)

	settled := uow.Published().OfType(events.EventTypeAuctionSettled)
	require.Len(t, settled, 1)
	assert.Equal(t, int64(30), *settled[0].(events.AuctionSettledEvent).BuyerID)

	uow.Accounts().AssertNotCalled(t, "AdjustTokens", ctx, int64(20), mock.Anything)
	uow.Accounts().AssertExpectations(t)
	uow.Blooks().AssertExpectations(t)
	uow.Auctions().AssertExpectations(t)
	uow.AssertExpectations(t)
}

func TestSettlementService_BuyItNowExpiresUnsold(t *testing.T) {
	ctx := context.Background()
	factory := new(MockUnitOfWorkFactory)
	uow := NewMockUnitOfWork()
	expectUnitOfWork(factory, uow, ctx, true)

	auction := expiredBlookAuction(4, 77, 10, true)
	uow.Auctions().On("GetExpiredUnsettled", ctx, testNow).Return([]*models.Auction{auction}, nil)
	uow.Bids().On("GetByAuctions", ctx, []int64{4}).Return(map[int64][]*models.Bid{}, nil)
	uow.Auctions().On("MarkDelisted", ctx, int64(4), (*int64)(nil), testNow).Return(nil)

	report, err := newTestSettlementService(factory, config.SettlementModeBatch).RunSettlementSweep(ctx)

	require.NoError(t, err)
	sold, unsold, failed := report.Counts()
	assert.Equal(t, 0, sold)
	assert.Equal(t, 1, unsold)
	assert.Equal(t, 0, failed)

	settled := uow.Published().OfType(events.EventTypeAuctionSettled)
	require.Len(t, settled, 1)
	assert.Nil(t, settled[0].(events.AuctionSettledEvent).BuyerID)

	uow.Blooks().AssertNotCalled(t, "UpdateOwner", mock.Anything, mock.Anything, mock.Anything)
	uow.Accounts().AssertNotCalled(t, "AdjustTokens", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_NoQualifiedBidsIsUnsold(t *testing.T) {
	ctx := context.Background()
	factory := new(MockUnitOfWorkFactory)
	uow := NewMockUnitOfWork()
	expectUnitOfWork(factory, uow, ctx, true)

	auction := expiredBlookAuction(5, 77, 10, false)
	uow.Auctions().On("GetExpiredUnsettled", ctx, testNow).Return([]*models.Auction{auction}, nil)
	uow.Bids().On("GetByAuctions", ctx, []int64{5}).Return(map[int64][]*models.Bid{
		5: {{ID: 1, AuctionID: 5, BidderID: 20, Amount: 200}},
	}, nil)
	uow.Accounts().On("GetByIDsForUpdate", ctx, []int64{20}).Return(map[int64]*models.Account{
		20: {ID: 20, Tokens: 199},
	}, nil)
	uow.Auctions().On("MarkDelisted", ctx, int64(5), (*int64)(nil), testNow).Return(nil)

	report, err := newTestSettlementService(factory, config.SettlementModeBatch).RunSettlementSweep(ctx)

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].Sold())
	uow.Accounts().AssertNotCalled(t, "AdjustTokens", mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService_TieGoesToEarliestBid(t *testing.T) {
	ctx := context.Background()
	factory := new(MockUnitOfWorkFactory)
	uow := NewMockUnitOfWork()
	expectUnitOfWork(factory, uow, ctx, true)

	auction := expiredBlookAuction(6, 77, 10, false)
	uow.Auctions().On("GetExpiredUnsettled", ctx, testNow).Return([]*models.Auction{auction}, nil)
	uow.Bids().On("GetByAuctions", ctx, []int64{6}).Return(map[int64][]*models.Bid{
		6: {
			{ID: 4, AuctionID: 6, BidderID: 40, Amount: 150},
			{ID: 5, AuctionID: 6, BidderID: 30, Amount: 150},
		},
	}, nil)
	uow.Accounts().On("GetByIDsForUpdate", ctx, []int64{30, 40}).Return(map[int64]*models.Account{
		30: {ID: 30, Tokens: 1000},
		40: {ID: 40, Tokens: 1000},
	}, nil)
	uow.Accounts().On("AdjustTokens", ctx, int64(40), int64(-150)).Return(int64(850), nil)
	uow.Accounts().On("AdjustTokens", ctx, int64(10), int64(150)).Return(int64(150), nil)
	uow.History().On("Record", ctx, mock.Anything).Return(nil)
	uow.Blooks().On("UpdateOwner", ctx, int64(77), int64(40)).Return(true, nil)
	uow.Auctions().On("MarkDelisted", ctx, int64(6), buyerIs(40), testNow).Return(nil)

	report, err := newTestSettlementService(factory, config.SettlementModeBatch).RunSettlementSweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(40), *report.Outcomes[0].BuyerID)
}

func TestSettlementService_BatchAbortsOnLiquidatedAsset(t *testing.T) {
	ctx := context.Background()
	factory := new(MockUnitOfWorkFactory)
	uow := NewMockUnitOfWork()
	expectUnitOfWork(factory, uow, ctx, false)

	good := expiredBlookAuction(1, 70, 10, true)
	bad := expiredBlookAuction(2, 71, 10, false)
	uow.Auctions().On("GetExpiredUnsettled", ctx, testNow).Return([]*models.Auction{good, bad}, nil)
	uow.Bids().On("GetByAuctions", ctx, []int64{1, 2}).Return(map[int64][]*models.Bid{
		2: {{ID: 9, AuctionID: 2, BidderID: 30, Amount: 120}},
	}, nil)
	uow.Auctions().On("MarkDelisted", ctx, int64(1), (*int64)(nil), testNow).Return(nil)
	uow.Accounts().On("GetByIDsForUpdate", ctx, []int64{30}).Return(map[int64]*models.Account{30: {ID: 30, Tokens: 500}}, nil)
	uow.Accounts().On("AdjustTokens", ctx, int64(30), int64(-120)).Return(int64(380), nil)
	uow.Accounts().On("AdjustTokens", ctx, int64(10), int64(120)).Return(int64(120), nil)
	uow.History().On("Record", ctx, mock.Anything).Return(nil)
	uow.Blooks().On("UpdateOwner", ctx, int64(71), int64(30)).Return(false, nil)

	_, err := newTestSettlementService(factory, config.SettlementModeBatch).RunSettlementSweep(ctx)

	assert.ErrorIs(t, err, ErrUnknownAsset)
	uow.AssertNotCalled(t, "Commit")
	uow.AssertCalled(t, "Rollback")
}

func TestSettlementService_NothingExpired(t *testing.T) {
	ctx := context.Background()
	factory := new(MockUnitOfWorkFactory)
	uow := NewMockUnitOfWork()
	expectUnitOfWork(factory, uow, ctx, false)

	uow.Auctions().On("GetExpiredUnsettled", ctx, testNow).Return([]*models.Auction{}, nil)

	report, err := newTestSettlementService(factory, config.SettlementModeBatch).RunSettlementSweep(ctx)

	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	uow.Bids().AssertNotCalled(t, "GetByAuctions", mock.Anything, mock.Anything)
}

func TestSettlementService_SkipsWhileRunning(t *testing.T) {
	factory := new(MockUnitOfWorkFactory)
	svc := newTestSettlementService(factory, config.SettlementModeBatch)
	svc.running.Store(true)

	report, err := svc.RunSettlementSweep(context.Background())

	require.NoError(t, err)
	assert.True(t, report.Skipped)
	factory.AssertNotCalled(t, "Create")
}

func TestSettlementService_PerAuctionIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	factory := new(MockUnitOfWorkFactory)

	listUoW := NewMockUnitOfWork()
	expectUnitOfWork(factory, listUoW, ctx, false)
	listUoW.Auctions().On("GetExpiredUnsettledIDs", ctx, testNow).Return([]int64{1, 2, 3}, nil)

	// Auction 1 was settled by someone else in the meantime
	firstUoW := NewMockUnitOfWork()
	expectUnitOfWork(factory, firstUoW, ctx, false)
	firstUoW.Auctions().On("LockExpiredUnsettled", ctx, int64(1), testNow).Return(nil, nil)

	// Auction 2 references a liquidated asset
	secondUoW := NewMockUnitOfWork()
	expectUnitOfWork(factory, secondUoW, ctx, false)
	secondUoW.Auctions().On("LockExpiredUnsettled", ctx, int64(2), testNow).Return(expiredBlookAuction(2, 71, 10, false), nil)
	secondUoW.Bids().On("GetByAuction", ctx, int64(2)).Return([]*models.Bid{{ID: 9, AuctionID: 2, BidderID: 30, Amount: 120}}, nil)
	secondUoW.Accounts().On("GetByIDsForUpdate", ctx, []int64{30}).Return(map[int64]*models.Account{30: {ID: 30, Tokens: 500}}, nil)
	secondUoW.Accounts().On("AdjustTokens", ctx, mock.Anything, mock.Anything).Return(int64(100), nil)
	secondUoW.History().On("Record", ctx, mock.Anything).Return(nil)
	secondUoW.Blooks().On("UpdateOwner", ctx, int64(71), int64(30)).Return(false, nil)

	// Auction 3 settles unsold
	thirdUoW := NewMockUnitOfWork()
	expectUnitOfWork(factory, thirdUoW, ctx, true)
	thirdUoW.Auctions().On("LockExpiredUnsettled", ctx, int64(3), testNow).Return(expiredBlookAuction(3, 72, 10, true), nil)
	thirdUoW.Bids().On("GetByAuction", ctx, int64(3)).Return([]*models.Bid{}, nil)
	thirdUoW.Auctions().On("MarkDelisted", ctx, int64(3), (*int64)(nil), testNow).Return(nil)

	report, err := newTestSettlementService(factory, config.SettlementModePerAuction).RunSettlementSweep(ctx)

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, int64(2), report.Outcomes[0].AuctionID)
	assert.ErrorIs(t, report.Outcomes[0].Err, ErrUnknownAsset)
	assert.Equal(t, int64(3), report.Outcomes[1].AuctionID)
	assert.NoError(t, report.Outcomes[1].Err)

	secondUoW.AssertNotCalled(t, "Commit")
	thirdUoW.AssertCalled(t, "Commit")
	factory.AssertNumberOfCalls(t, "Create", 4)
}
