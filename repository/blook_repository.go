package repository

import (
	"context"
	"errors"
	"fmt"

	"economy/database"
	"economy/models"

	"github.com/jackc/pgx/v5"
)

const blookColumns = `id, owner_id, blook_id, initial_obtainer_id, sold, created_at`

// BlookRepository implements the BlookRepository interface
type BlookRepository struct {
	q queryable
}

// NewBlookRepository creates a new blook instance repository
func NewBlookRepository(db *database.DB) *BlookRepository {
	return &BlookRepository{q: db.Pool}
}

func newBlookRepositoryWithTx(tx queryable) *BlookRepository {
	return &BlookRepository{q: tx}
}

func scanBlook(row pgx.Row) (*models.BlookInstance, error) {
	var blook models.BlookInstance
	err := row.Scan(
		&blook.ID,
		&blook.OwnerID,
		&blook.BlookID,
		&blook.InitialObtainerID,
		&blook.Sold,
		&blook.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &blook, nil
}

// Create creates an instance whose first owner is also its initial obtainer
func (r *BlookRepository) Create(ctx context.Context, ownerID, blookID int64) (*models.BlookInstance, error) {
	query := `
		INSERT INTO blook_instances (owner_id, blook_id, initial_obtainer_id)
		VALUES ($1, $2, $1)
		RETURNING ` + blookColumns

	blook, err := scanBlook(r.q.QueryRow(ctx, query, ownerID, blookID))
	if err != nil {
		return nil, fmt.Errorf("failed to create blook %d for account %d: %w", blookID, ownerID, err)
	}
	return blook, nil
}

// GetByID retrieves an instance by id
func (r *BlookRepository) GetByID(ctx context.Context, id int64) (*models.BlookInstance, error) {
	return r.get(ctx, `SELECT `+blookColumns+` FROM blook_instances WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves and locks an instance
func (r *BlookRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.BlookInstance, error) {
	return r.get(ctx, `SELECT `+blookColumns+` FROM blook_instances WHERE id = $1 FOR UPDATE`, id)
}

func (r *BlookRepository) get(ctx context.Context, query string, id int64) (*models.BlookInstance, error) {
	blook, err := scanBlook(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blook instance %d: %w", id, err)
	}
	return blook, nil
}

// FindOldestEligible locks the oldest listable copy. Rows locked by a concurrent
// listing are skipped so two sellers of the same blook do not queue on one row.
func (r *BlookRepository) FindOldestEligible(ctx context.Context, ownerID, blookID int64) (*models.BlookInstance, error) {
	query := `
		SELECT ` + blookColumns + `
		FROM blook_instances b
		WHERE b.owner_id = $1
		  AND b.blook_id = $2
		  AND b.sold = FALSE
		  AND NOT EXISTS (
			  SELECT 1 FROM auctions a
			  WHERE a.blook_instance_id = b.id AND a.delisted_at IS NULL
		  )
		ORDER BY b.created_at, b.id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	blook, err := scanBlook(r.q.QueryRow(ctx, query, ownerID, blookID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find listable blook %d for account %d: %w", blookID, ownerID, err)
	}
	return blook, nil
}

// UpdateOwner re-parents an unsold instance
func (r *BlookRepository) UpdateOwner(ctx context.Context, id, newOwnerID int64) (bool, error) {
	result, err := r.q.Exec(ctx, `UPDATE blook_instances SET owner_id = $1 WHERE id = $2 AND sold = FALSE`, newOwnerID, id)
	if err != nil {
		return false, fmt.Errorf("failed to update owner of blook instance %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}
