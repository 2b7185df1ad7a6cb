package events

import (
	"time"

	"economy/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeAuctionCreated EventType = "auction_created"
	EventTypeBidPlaced      EventType = "bid_placed"
	EventTypeAuctionSettled EventType = "auction_settled"
	EventTypePackOpened     EventType = "pack_opened"
	EventTypeRewardClaimed  EventType = "reward_claimed"
)

// AllEventTypes lists every event the economy emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeBalanceChange,
		EventTypeAuctionCreated,
		EventTypeBidPlaced,
		EventTypeAuctionSettled,
		EventTypePackOpened,
		EventTypeRewardClaimed,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a committed token balance change
type BalanceChangeEvent struct {
	AccountID       int64                  `json:"account_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	TransactionType models.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                  `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AuctionCreatedEvent is emitted after a listing and its tax commit
type AuctionCreatedEvent struct {
	AuctionID  int64            `json:"auction_id"`
	SellerID   int64            `json:"seller_id"`
	Kind       models.AssetKind `json:"kind"`
	InstanceID int64            `json:"instance_id"`
	Price      int64            `json:"price"`
	BuyItNow   bool             `json:"buy_it_now"`
	Tax        int64            `json:"tax"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

func (e AuctionCreatedEvent) Type() EventType {
	return EventTypeAuctionCreated
}

// BidPlacedEvent is emitted after a bid row is stored
type BidPlacedEvent struct {
	BidID     int64 `json:"bid_id"`
	AuctionID int64 `json:"auction_id"`
	BidderID  int64 `json:"bidder_id"`
	Amount    int64 `json:"amount"`
}

func (e BidPlacedEvent) Type() EventType {
	return EventTypeBidPlaced
}

// AuctionSettledEvent is emitted for every auction a sweep delists.
// BuyerID is nil when the auction ended unsold.
type AuctionSettledEvent struct {
	AuctionID  int64            `json:"auction_id"`
	SellerID   int64            `json:"seller_id"`
	Kind       models.AssetKind `json:"kind"`
	InstanceID int64            `json:"instance_id"`
	BuyerID    *int64           `json:"buyer_id"`
	Amount     int64            `json:"amount"`
}

func (e AuctionSettledEvent) Type() EventType {
	return EventTypeAuctionSettled
}

// PackOpenedEvent is emitted after a pack purchase commits
type PackOpenedEvent struct {
	AccountID    int64            `json:"account_id"`
	PackID       int64            `json:"pack_id"`
	Kind         models.AssetKind `json:"kind"`
	DefinitionID int64            `json:"definition_id"`
	InstanceID   int64            `json:"instance_id"`
	Price        int64            `json:"price"`
}

func (e PackOpenedEvent) Type() EventType {
	return EventTypePackOpened
}

// RewardClaimedEvent is emitted after a periodic reward claim commits
type RewardClaimedEvent struct {
	AccountID int64 `json:"account_id"`
	Tokens    int64 `json:"tokens"`
}

func (e RewardClaimedEvent) Type() EventType {
	return EventTypeRewardClaimed
}
