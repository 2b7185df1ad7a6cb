package repository

import (
	"context"
	"errors"
	"fmt"

	"economy/database"
	"economy/models"

	"github.com/jackc/pgx/v5"
)

const itemColumns = `id, owner_id, item_id, uses_left, created_at`

// ItemRepository implements the ItemRepository interface
type ItemRepository struct {
	q queryable
}

// NewItemRepository creates a new item instance repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{q: db.Pool}
}

func newItemRepositoryWithTx(tx queryable) *ItemRepository {
	return &ItemRepository{q: tx}
}

func scanItem(row pgx.Row) (*models.ItemInstance, error) {
	var item models.ItemInstance
	if err := row.Scan(&item.ID, &item.OwnerID, &item.ItemID, &item.UsesLeft, &item.CreatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, ownerID, itemID int64, usesLeft int) (*models.ItemInstance, error) {
	query := `
		INSERT INTO item_instances (owner_id, item_id, uses_left)
		VALUES ($1, $2, $3)
		RETURNING ` + itemColumns

	item, err := scanItem(r.q.QueryRow(ctx, query, ownerID, itemID, usesLeft))
	if err != nil {
		return nil, fmt.Errorf("failed to create item %d for account %d: %w", itemID, ownerID, err)
	}
	return item, nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.ItemInstance, error) {
	return r.get(ctx, `SELECT `+itemColumns+` FROM item_instances WHERE id = $1`, id)
}

func (r *ItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.ItemInstance, error) {
	return r.get(ctx, `SELECT `+itemColumns+` FROM item_instances WHERE id = $1 FOR UPDATE`, id)
}

func (r *ItemRepository) get(ctx context.Context, query string, id int64) (*models.ItemInstance, error) {
	item, err := scanItem(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item instance %d: %w", id, err)
	}
	return item, nil
}

// UpdateOwner re-parents an instance that still has uses left
func (r *ItemRepository) UpdateOwner(ctx context.Context, id, newOwnerID int64) (bool, error) {
	result, err := r.q.Exec(ctx, `UPDATE item_instances SET owner_id = $1 WHERE id = $2 AND uses_left > 0`, newOwnerID, id)
	if err != nil {
		return false, fmt.Errorf("failed to update owner of item instance %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}
