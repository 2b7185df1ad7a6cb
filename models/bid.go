package models

import (
	"time"
)

// Bid is a standing offer against a non buy-it-now auction
type Bid struct {
	ID        int64     `db:"id"`
	AuctionID int64     `db:"auction_id"`
	BidderID  int64     `db:"bidder_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}
