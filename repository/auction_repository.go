package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"economy/database"
	"economy/models"
	"economy/service"

	"github.com/jackc/pgx/v5"
)

const auctionColumns = `id, kind, blook_instance_id, item_instance_id, seller_id, price, buy_it_now, created_at, expires_at, buyer_id, delisted_at`

// AuctionRepository implements the AuctionRepository interface
type AuctionRepository struct {
	q queryable
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(db *database.DB) *AuctionRepository {
	return &AuctionRepository{q: db.Pool}
}

func newAuctionRepositoryWithTx(tx queryable) *AuctionRepository {
	return &AuctionRepository{q: tx}
}

func scanAuction(row pgx.Row) (*models.Auction, error) {
	var auction models.Auction
	err := row.Scan(
		&auction.ID,
		&auction.Kind,
		&auction.BlookID,
		&auction.ItemID,
		&auction.SellerID,
		&auction.Price,
		&auction.BuyItNow,
		&auction.CreatedAt,
		&auction.ExpiresAt,
		&auction.BuyerID,
		&auction.DelistedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func scanAuctions(rows pgx.Rows) ([]*models.Auction, error) {
	defer rows.Close()

	var auctions []*models.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auctions: %w", err)
	}
	return auctions, nil
}

// Create inserts the auction and fills in its id and created_at
func (r *AuctionRepository) Create(ctx context.Context, auction *models.Auction) error {
	query := `
		INSERT INTO auctions (kind, blook_instance_id, item_instance_id, seller_id, price, buy_it_now, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		auction.Kind,
		auction.BlookID,
		auction.ItemID,
		auction.SellerID,
		auction.Price,
		auction.BuyItNow,
		auction.ExpiresAt,
	).Scan(&auction.ID, &auction.CreatedAt)

	if constraintViolated(err, pgUniqueViolation, "auctions_active_blook_idx") ||
		constraintViolated(err, pgUniqueViolation, "auctions_active_item_idx") {
		return fmt.Errorf("%s instance %d is already listed: %w", auction.Kind, auction.InstanceID(), service.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create auction for seller %d: %w", auction.SellerID, err)
	}
	return nil
}

// GetByID retrieves an auction by id
func (r *AuctionRepository) GetByID(ctx context.Context, id int64) (*models.Auction, error) {
	return r.get(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
}

// GetByIDForShare retrieves an auction under a share lock so settlement waits for in-flight bids
func (r *AuctionRepository) GetByIDForShare(ctx context.Context, id int64) (*models.Auction, error) {
	return r.get(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR SHARE`, id)
}

func (r *AuctionRepository) get(ctx context.Context, query string, args ...any) (*models.Auction, error) {
	auction, err := scanAuction(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

// HasActiveForInstance reports whether an undelisted auction references the instance
func (r *AuctionRepository) HasActiveForInstance(ctx context.Context, kind models.AssetKind, instanceID int64) (bool, error) {
	column := "blook_instance_id"
	if kind == models.AssetKindItem {
		column = "item_instance_id"
	}

	query := `SELECT EXISTS (SELECT 1 FROM auctions WHERE ` + column + ` = $1 AND delisted_at IS NULL)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, instanceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active auctions for %s instance %d: %w", kind, instanceID, err)
	}
	return exists, nil
}

// ListActive returns undelisted auctions expiring after now, newest first
func (r *AuctionRepository) ListActive(ctx context.Context, now time.Time, filter models.AuctionFilter) ([]*models.Auction, error) {
	conditions := []string{"delisted_at IS NULL", "expires_at > $1"}
	args := []any{now}

	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}

	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active auctions: %w", err)
	}
	return scanAuctions(rows)
}

// GetExpiredUnsettled locks every expired, undelisted auction in id order
func (r *AuctionRepository) GetExpiredUnsettled(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE expires_at <= $1 AND delisted_at IS NULL
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired auctions: %w", err)
	}
	return scanAuctions(rows)
}

// GetExpiredUnsettledIDs returns ids of expired auctions without locking them
func (r *AuctionRepository) GetExpiredUnsettledIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM auctions WHERE expires_at <= $1 AND delisted_at IS NULL ORDER BY id`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired auction ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auction ids: %w", err)
	}
	return ids, nil
}

// LockExpiredUnsettled locks one auction if another sweep has not already closed it
func (r *AuctionRepository) LockExpiredUnsettled(ctx context.Context, id int64, now time.Time) (*models.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE id = $1 AND expires_at <= $2 AND delisted_at IS NULL
		FOR UPDATE
	`
	return r.get(ctx, query, id, now)
}

// MarkDelisted closes an auction, recording the buyer when it sold
func (r *AuctionRepository) MarkDelisted(ctx context.Context, id int64, buyerID *int64, at time.Time) error {
	result, err := r.q.Exec(ctx,
		`UPDATE auctions SET delisted_at = $1, buyer_id = $2 WHERE id = $3 AND delisted_at IS NULL`,
		at, buyerID, id)
	if err != nil {
		return fmt.Errorf("failed to delist auction %d: %w", id, err)
	}
	if result.RowsAffected() != 1 {
		return fmt.Errorf("auction %d is already delisted", id)
	}
	return nil
}
