package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy/database"
	"economy/models"
	"economy/service"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, username, tokens, diamonds, packs_opened, fee_reduction, last_claimed, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Tokens,
		&account.Diamonds,
		&account.PacksOpened,
		&account.FeeReduction,
		&account.LastClaimed,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByID retrieves an account by id
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByIDsForUpdate locks the given accounts in id order
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[int64]*models.Account, len(ids))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts[account.ID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Create inserts a new account. It returns nil when the id is already taken.
func (r *AccountRepository) Create(ctx context.Context, id int64, username string, initialTokens int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, username, tokens)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, id, username, initialTokens))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", id, err)
	}
	return account, nil
}

// AdjustTokens applies delta in one statement, so concurrent adjustments on the
// same row serialize on its lock and each sees the previous result
func (r *AccountRepository) AdjustTokens(ctx context.Context, id int64, delta int64) (int64, error) {
	query := `
		UPDATE accounts
		SET tokens = tokens + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING tokens
	`

	var tokens int64
	err := r.q.QueryRow(ctx, query, delta, id).Scan(&tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("account %d: %w", id, service.ErrNotFound)
	}
	if constraintViolated(err, pgCheckViolation, "accounts_tokens_non_negative") {
		return 0, fmt.Errorf("account %d cannot cover %d: %w", id, -delta, service.ErrInsufficientFunds)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust tokens for account %d: %w", id, err)
	}
	return tokens, nil
}

// IncrementPacksOpened bumps the packs opened counter
func (r *AccountRepository) IncrementPacksOpened(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `UPDATE accounts SET packs_opened = packs_opened + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment packs opened for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, service.ErrNotFound)
	}
	return nil
}

// MarkClaimed stamps last_claimed unless the account already claimed in this period
func (r *AccountRepository) MarkClaimed(ctx context.Context, id int64, periodStart, claimedAt time.Time) (bool, error) {
	query := `
		UPDATE accounts
		SET last_claimed = $1, updated_at = NOW()
		WHERE id = $2 AND (last_claimed IS NULL OR last_claimed < $3)
	`

	result, err := r.q.Exec(ctx, query, claimedAt, id, periodStart)
	if err != nil {
		return false, fmt.Errorf("failed to mark reward claimed for account %d: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

// HasFeeReduction reads the fee reduction flag. Unknown accounts have no entitlement.
func (r *AccountRepository) HasFeeReduction(ctx context.Context, id int64) (bool, error) {
	var feeReduction bool
	err := r.q.QueryRow(ctx, `SELECT fee_reduction FROM accounts WHERE id = $1`, id).Scan(&feeReduction)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read fee reduction for account %d: %w", id, err)
	}
	return feeReduction, nil
}
