package models

import (
	"time"
)

// AuctionState is derived from an auction's timestamps and buyer
type AuctionState string

const (
	AuctionStateActive           AuctionState = "active"
	AuctionStateExpiredUnsettled AuctionState = "expired_unsettled"
	AuctionStateSold             AuctionState = "sold"
	AuctionStateUnsold           AuctionState = "unsold"
)

// Auction represents a marketplace listing of a single asset instance
type Auction struct {
	ID         int64      `db:"id"`
	Kind       AssetKind  `db:"kind"`
	BlookID    *int64     `db:"blook_instance_id"`
	ItemID     *int64     `db:"item_instance_id"`
	SellerID   int64      `db:"seller_id"`
	Price      int64      `db:"price"`
	BuyItNow   bool       `db:"buy_it_now"`
	CreatedAt  time.Time  `db:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	BuyerID    *int64     `db:"buyer_id"`
	DelistedAt *time.Time `db:"delisted_at"`
}

// InstanceID returns the id of the referenced asset instance
func (a *Auction) InstanceID() int64 {
	if a.Kind == AssetKindItem && a.ItemID != nil {
		return *a.ItemID
	}
	if a.BlookID != nil {
		return *a.BlookID
	}
	return 0
}

// StateAt derives the lifecycle state at the given time
func (a *Auction) StateAt(now time.Time) AuctionState {
	if a.DelistedAt != nil {
		if a.BuyerID != nil {
			return AuctionStateSold
		}
		return AuctionStateUnsold
	}
	if !a.ExpiresAt.After(now) {
		return AuctionStateExpiredUnsettled
	}
	return AuctionStateActive
}

// IsActiveAt reports whether the auction accepts bids at the given time
func (a *Auction) IsActiveAt(now time.Time) bool {
	return a.StateAt(now) == AuctionStateActive
}

// AuctionFilter narrows listActiveAuctions results
type AuctionFilter struct {
	SellerID *int64
	Kind     *AssetKind
	Limit    int
}

// AuctionListing is an active auction with its current bidding summary
type AuctionListing struct {
	Auction    *Auction
	HighestBid *int64
	BidCount   int
}

// SettlementOutcome records what a sweep did with one auction
type SettlementOutcome struct {
	AuctionID  int64
	Kind       AssetKind
	InstanceID int64
	SellerID   int64
	BuyerID    *int64
	Amount     int64
	Err        error
}

// Sold reports whether the auction ended with a buyer
func (o SettlementOutcome) Sold() bool {
	return o.Err == nil && o.BuyerID != nil
}

// SettlementReport summarizes one sweep run
type SettlementReport struct {
	StartedAt time.Time
	Skipped   bool
	Outcomes  []SettlementOutcome
}

// Counts returns the number of sold, unsold and failed auctions
func (r *SettlementReport) Counts() (sold, unsold, failed int) {
	for _, o := range r.Outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.BuyerID != nil:
			sold++
		default:
			unsold++
		}
	}
	return sold, unsold, failed
}
