package service

import (
	"context"
	"fmt"

	"economy/models"
)

type accountService struct {
	uowFactory     UnitOfWorkFactory
	startingTokens int64
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, startingTokens int64) AccountService {
	return &accountService{
		uowFactory:     uowFactory,
		startingTokens: startingTokens,
	}
}

// GetOrCreateAccount retrieves an existing account or creates a new one with the starting balance
func (s *accountService) GetOrCreateAccount(ctx context.Context, accountID int64, username string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = uow.AccountRepository().Create(ctx, accountID, username, s.startingTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if account == nil {
		// Lost a race with a concurrent create; the row exists now
		account, err = uow.AccountRepository().GetByID(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload account: %w", err)
		}
		if account == nil {
			return nil, fmt.Errorf("account %d vanished after concurrent create", accountID)
		}
		return account, uow.Commit()
	}

	if s.startingTokens > 0 {
		err = RecordBalanceChange(ctx, uow, &models.BalanceHistory{
			AccountID:       accountID,
			BalanceBefore:   0,
			BalanceAfter:    s.startingTokens,
			ChangeAmount:    s.startingTokens,
			TransactionType: models.TransactionTypeInitial,
			TransactionMetadata: map[string]any{
				"username": username,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record initial balance: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// GetAccount returns an existing account or NotFound
func (s *accountService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, notFound("account %d not found", accountID)
	}
	return account, nil
}

// GetBalanceHistory returns the most recent balance changes of an account
func (s *accountService) GetBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.BalanceHistoryRepository().GetByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return history, nil
}
