package service

import (
	"context"
	"time"

	"economy/events"
	"economy/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByIDsForUpdate row-locks the given accounts in id order and returns them keyed by id
	GetByIDsForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Account, error)

	// Create creates a new account with the initial balance
	Create(ctx context.Context, id int64, username string, initialTokens int64) (*models.Account, error)

	// AdjustTokens adds delta to the balance in a single statement and returns the new balance
	AdjustTokens(ctx context.Context, id int64, delta int64) (int64, error)

	// IncrementPacksOpened bumps the packs opened counter
	IncrementPacksOpened(ctx context.Context, id int64) error

	// MarkClaimed stamps last_claimed if it is unset or earlier than periodStart.
	// It reports false when the account already claimed in this period.
	MarkClaimed(ctx context.Context, id int64, periodStart, claimedAt time.Time) (bool, error)

	// HasFeeReduction reads the fee reduction entitlement flag
	HasFeeReduction(ctx context.Context, id int64) (bool, error)
}

// BlookRepository defines the interface for blook instance data access
type BlookRepository interface {
	Create(ctx context.Context, ownerID, blookID int64) (*models.BlookInstance, error)

	GetByID(ctx context.Context, id int64) (*models.BlookInstance, error)

	// GetByIDForUpdate retrieves and row-locks an instance
	GetByIDForUpdate(ctx context.Context, id int64) (*models.BlookInstance, error)

	// FindOldestEligible locks the oldest unsold instance of blookID owned by ownerID
	// that no active auction references
	FindOldestEligible(ctx context.Context, ownerID, blookID int64) (*models.BlookInstance, error)

	// UpdateOwner re-parents an unsold instance, reporting false if no row matched
	UpdateOwner(ctx context.Context, id, newOwnerID int64) (bool, error)
}

// ItemRepository defines the interface for item instance data access
type ItemRepository interface {
	Create(ctx context.Context, ownerID, itemID int64, usesLeft int) (*models.ItemInstance, error)

	GetByID(ctx context.Context, id int64) (*models.ItemInstance, error)

	// GetByIDForUpdate retrieves and row-locks an instance
	GetByIDForUpdate(ctx context.Context, id int64) (*models.ItemInstance, error)

	// UpdateOwner re-parents an instance with uses left, reporting false if no row matched
	UpdateOwner(ctx context.Context, id, newOwnerID int64) (bool, error)
}

// AuctionRepository defines the interface for auction data access
type AuctionRepository interface {
	// Create inserts the auction. A second active auction on the same instance fails with Conflict.
	Create(ctx context.Context, auction *models.Auction) error

	GetByID(ctx context.Context, id int64) (*models.Auction, error)

	// GetByIDForShare retrieves an auction and holds a share lock until the transaction ends
	GetByIDForShare(ctx context.Context, id int64) (*models.Auction, error)

	// HasActiveForInstance reports whether an undelisted auction references the instance
	HasActiveForInstance(ctx context.Context, kind models.AssetKind, instanceID int64) (bool, error)

	// ListActive returns undelisted auctions expiring after now, newest first
	ListActive(ctx context.Context, now time.Time, filter models.AuctionFilter) ([]*models.Auction, error)

	// GetExpiredUnsettled locks and returns auctions with expires_at <= now that are not delisted
	GetExpiredUnsettled(ctx context.Context, now time.Time) ([]*models.Auction, error)

	// GetExpiredUnsettledIDs returns ids of expired auctions without locking them
	GetExpiredUnsettledIDs(ctx context.Context, now time.Time) ([]int64, error)

	// LockExpiredUnsettled locks one auction if it is still expired and undelisted, returning nil otherwise
	LockExpiredUnsettled(ctx context.Context, id int64, now time.Time) (*models.Auction, error)

	// MarkDelisted closes an undelisted auction, with buyerID nil for unsold
	MarkDelisted(ctx context.Context, id int64, buyerID *int64, at time.Time) error
}

// BidRepository defines the interface for bid data access
type BidRepository interface {
	Create(ctx context.Context, bid *models.Bid) error

	// GetByAuction returns bids in id order
	GetByAuction(ctx context.Context, auctionID int64) ([]*models.Bid, error)

	// GetByAuctions returns bids for all given auctions keyed by auction id, each in id order
	GetByAuctions(ctx context.Context, auctionIDs []int64) (map[int64][]*models.Bid, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByAccount returns the most recent entries for an account
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error)
}

// CatalogReader is the read-only view of game content
type CatalogReader interface {
	GetPackDefinition(ctx context.Context, packID int64) (*models.PackDefinition, error)
	GetAssetDefinition(ctx context.Context, kind models.AssetKind, assetID int64) (*models.AssetDefinition, error)
	// GetAssetsForPack returns the pool in catalog order
	GetAssetsForPack(ctx context.Context, packID int64) ([]*models.PackAsset, error)
}

// EntitlementChecker answers entitlement questions owned outside the economy
type EntitlementChecker interface {
	HasFeeReduction(ctx context.Context, accountID int64) (bool, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// EventSink delivers named payloads to connected clients
type EventSink interface {
	Publish(ctx context.Context, eventName string, payload any) error
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	BlookRepository() BlookRepository
	ItemRepository() ItemRepository
	AuctionRepository() AuctionRepository
	BidRepository() BidRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// AccountService defines the interface for account operations
type AccountService interface {
	// GetOrCreateAccount retrieves an account or creates it with the starting balance
	GetOrCreateAccount(ctx context.Context, accountID int64, username string) (*models.Account, error)

	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)

	GetBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error)
}

// AuctionService defines the interface for marketplace operations
type AuctionService interface {
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error)

	ListActiveAuctions(ctx context.Context, filter models.AuctionFilter) ([]*models.AuctionListing, error)

	PlaceBid(ctx context.Context, auctionID, bidderID, amount int64) (*models.Bid, error)
}

// SettlementService defines the interface for the expired auction sweep
type SettlementService interface {
	RunSettlementSweep(ctx context.Context) (*models.SettlementReport, error)
}

// PackService defines the interface for pack purchases
type PackService interface {
	OpenPack(ctx context.Context, accountID, packID int64) (*models.PackOpenResult, error)
}

// RewardService defines the interface for the periodic token reward
type RewardService interface {
	ClaimPeriodicReward(ctx context.Context, accountID int64) (*models.RewardClaimResult, error)
}
