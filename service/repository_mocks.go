package service

import (
	"context"
	"sync"
	"time"

	"economy/events"
	"economy/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, id int64, username string, initialTokens int64) (*models.Account, error) {
	args := m.Called(ctx, id, username, initialTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AdjustTokens(ctx context.Context, id int64, delta int64) (int64, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) IncrementPacksOpened(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) MarkClaimed(ctx context.Context, id int64, periodStart, claimedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, periodStart, claimedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) HasFeeReduction(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockBlookRepository is a mock implementation of BlookRepository
type MockBlookRepository struct {
	mock.Mock
}

func (m *MockBlookRepository) Create(ctx context.Context, ownerID, blookID int64) (*models.BlookInstance, error) {
	args := m.Called(ctx, ownerID, blookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlookInstance), args.Error(1)
}

func (m *MockBlookRepository) GetByID(ctx context.Context, id int64) (*models.BlookInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlookInstance), args.Error(1)
}

func (m *MockBlookRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.BlookInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlookInstance), args.Error(1)
}

func (m *MockBlookRepository) FindOldestEligible(ctx context.Context, ownerID, blookID int64) (*models.BlookInstance, error) {
	args := m.Called(ctx, ownerID, blookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlookInstance), args.Error(1)
}

func (m *MockBlookRepository) UpdateOwner(ctx context.Context, id, newOwnerID int64) (bool, error) {
	args := m.Called(ctx, id, newOwnerID)
	return args.Bool(0), args.Error(1)
}

// MockItemRepository is a mock implementation of ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, ownerID, itemID int64, usesLeft int) (*models.ItemInstance, error) {
	args := m.Called(ctx, ownerID, itemID, usesLeft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemInstance), args.Error(1)
}

func (m *MockItemRepository) GetByID(ctx context.Context, id int64) (*models.ItemInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemInstance), args.Error(1)
}

func (m *MockItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ItemInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemInstance), args.Error(1)
}

func (m *MockItemRepository) UpdateOwner(ctx context.Context, id, newOwnerID int64) (bool, error) {
	args := m.Called(ctx, id, newOwnerID)
	return args.Bool(0), args.Error(1)
}

// MockAuctionRepository is a mock implementation of AuctionRepository
type MockAuctionRepository struct {
	mock.Mock
}

func (m *MockAuctionRepository) Create(ctx context.Context, auction *models.Auction) error {
	args := m.Called(ctx, auction)
	return args.Error(0)
}

func (m *MockAuctionRepository) GetByID(ctx context.Context, id int64) (*models.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetByIDForShare(ctx context.Context, id int64) (*models.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Auction), args.Error(1)
}

func (m *MockAuctionRepository) HasActiveForInstance(ctx context.Context, kind models.AssetKind, instanceID int64) (bool, error) {
	args := m.Called(ctx, kind, instanceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuctionRepository) ListActive(ctx context.Context, now time.Time, filter models.AuctionFilter) ([]*models.Auction, error) {
	args := m.Called(ctx, now, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetExpiredUnsettled(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Auction), args.Error(1)
}

func (m *MockAuctionRepository) GetExpiredUnsettledIDs(ctx context.Context, now time.Time) ([]int64, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAuctionRepository) LockExpiredUnsettled(ctx context.Context, id int64, now time.Time) (*models.Auction, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Auction), args.Error(1)
}

func (m *MockAuctionRepository) MarkDelisted(ctx context.Context, id int64, buyerID *int64, at time.Time) error {
	args := m.Called(ctx, id, buyerID, at)
	return args.Error(0)
}

// MockBidRepository is a mock implementation of BidRepository
type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) Create(ctx context.Context, bid *models.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *MockBidRepository) GetByAuction(ctx context.Context, auctionID int64) ([]*models.Bid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bid), args.Error(1)
}

func (m *MockBidRepository) GetByAuctions(ctx context.Context, auctionIDs []int64) (map[int64][]*models.Bid, error) {
	args := m.Called(ctx, auctionIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]*models.Bid), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockCatalogReader is a mock implementation of CatalogReader
type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) GetPackDefinition(ctx context.Context, packID int64) (*models.PackDefinition, error) {
	args := m.Called(ctx, packID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PackDefinition), args.Error(1)
}

func (m *MockCatalogReader) GetAssetDefinition(ctx context.Context, kind models.AssetKind, assetID int64) (*models.AssetDefinition, error) {
	args := m.Called(ctx, kind, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssetDefinition), args.Error(1)
}

func (m *MockCatalogReader) GetAssetsForPack(ctx context.Context, packID int64) ([]*models.PackAsset, error) {
	args := m.Called(ctx, packID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PackAsset), args.Error(1)
}

// MockEntitlementChecker is a mock implementation of EntitlementChecker
type MockEntitlementChecker struct {
	mock.Mock
}

func (m *MockEntitlementChecker) HasFeeReduction(ctx context.Context, accountID int64) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

// CapturingEventPublisher records published events for assertions
type CapturingEventPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *CapturingEventPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// OfType returns the captured events of one type in publish order
func (p *CapturingEventPublisher) OfType(eventType events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.Events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	accountRepo        AccountRepository
	blookRepo          BlookRepository
	itemRepo           ItemRepository
	auctionRepo        AuctionRepository
	bidRepo            BidRepository
	balanceHistoryRepo BalanceHistoryRepository
	eventBus           *CapturingEventPublisher
}

// NewMockUnitOfWork creates a unit of work wired to fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		accountRepo:        new(MockAccountRepository),
		blookRepo:          new(MockBlookRepository),
		itemRepo:           new(MockItemRepository),
		auctionRepo:        new(MockAuctionRepository),
		bidRepo:            new(MockBidRepository),
		balanceHistoryRepo: new(MockBalanceHistoryRepository),
		eventBus:           &CapturingEventPublisher{},
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository { return m.accountRepo }
func (m *MockUnitOfWork) BlookRepository() BlookRepository { return m.blookRepo }
func (m *MockUnitOfWork) ItemRepository() ItemRepository { return m.itemRepo }
func (m *MockUnitOfWork) AuctionRepository() AuctionRepository { return m.auctionRepo }
func (m *MockUnitOfWork) BidRepository() BidRepository { return m.bidRepo }
func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository { return m.balanceHistoryRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher { return m.eventBus }

// Typed accessors for setting expectations
func (m *MockUnitOfWork) Accounts() *MockAccountRepository { return m.accountRepo.(*MockAccountRepository) }
func (m *MockUnitOfWork) Blooks() *MockBlookRepository { return m.blookRepo.(*MockBlookRepository) }
func (m *MockUnitOfWork) Items() *MockItemRepository { return m.itemRepo.(*MockItemRepository) }
func (m *MockUnitOfWork) Auctions() *MockAuctionRepository { return m.auctionRepo.(*MockAuctionRepository) }
func (m *MockUnitOfWork) Bids() *MockBidRepository { return m.bidRepo.(*MockBidRepository) }
func (m *MockUnitOfWork) History() *MockBalanceHistoryRepository {
	return m.balanceHistoryRepo.(*MockBalanceHistoryRepository)
}
func (m *MockUnitOfWork) Published() *CapturingEventPublisher { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
