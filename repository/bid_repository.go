package repository

import (
	"context"
	"fmt"

	"economy/database"
	"economy/models"

	"github.com/jackc/pgx/v5"
)

const bidColumns = `id, auction_id, bidder_id, amount, created_at`

// BidRepository implements the BidRepository interface
type BidRepository struct {
	q queryable
}

// NewBidRepository creates a new bid repository
func NewBidRepository(db *database.DB) *BidRepository {
	return &BidRepository{q: db.Pool}
}

func newBidRepositoryWithTx(tx queryable) *BidRepository {
	return &BidRepository{q: tx}
}

func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (auction_id, bidder_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, bid.AuctionID, bid.BidderID, bid.Amount).Scan(&bid.ID, &bid.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bid on auction %d: %w", bid.AuctionID, err)
	}
	return nil
}

// GetByAuction returns an auction's bids in id order
func (r *BidRepository) GetByAuction(ctx context.Context, auctionID int64) ([]*models.Bid, error) {
	rows, err := r.q.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY id`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids for auction %d: %w", auctionID, err)
	}
	return scanBids(rows)
}

// GetByAuctions groups bids for several auctions by auction id
func (r *BidRepository) GetByAuctions(ctx context.Context, auctionIDs []int64) (map[int64][]*models.Bid, error) {
	grouped := make(map[int64][]*models.Bid, len(auctionIDs))
	if len(auctionIDs) == 0 {
		return grouped, nil
	}

	rows, err := r.q.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = ANY($1) ORDER BY id`, auctionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids for %d auctions: %w", len(auctionIDs), err)
	}

	bids, err := scanBids(rows)
	if err != nil {
		return nil, err
	}
	for _, bid := range bids {
		grouped[bid.AuctionID] = append(grouped[bid.AuctionID], bid)
	}
	return grouped, nil
}

func scanBids(rows pgx.Rows) ([]*models.Bid, error) {
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		var bid models.Bid
		if err := rows.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.Amount, &bid.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bids: %w", err)
	}
	return bids, nil
}
