package repository

import (
	"context"
	"errors"
	"fmt"

	"economy/database"
	"economy/events"
	"economy/service"

	"github.com/jackc/pgx/v5"
)

const notStarted = "unit of work not started - call Begin() first"

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus

	accountRepo        service.AccountRepository
	blookRepo          service.BlookRepository
	itemRepo           service.ItemRepository
	auctionRepo        service.AuctionRepository
	bidRepo            service.BidRepository
	balanceHistoryRepo service.BalanceHistoryRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction at the pool's configured isolation level
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.blookRepo = newBlookRepositoryWithTx(tx)
	u.itemRepo = newItemRepositoryWithTx(tx)
	u.auctionRepo = newAuctionRepositoryWithTx(tx)
	u.bidRepo = newBidRepositoryWithTx(tx)
	u.balanceHistoryRepo = newBalanceHistoryRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.tx = nil
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	u.transactionalBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction and drops pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic(notStarted)
	}
	return u.accountRepo
}

func (u *unitOfWork) BlookRepository() service.BlookRepository {
	if u.blookRepo == nil {
		panic(notStarted)
	}
	return u.blookRepo
}

func (u *unitOfWork) ItemRepository() service.ItemRepository {
	if u.itemRepo == nil {
		panic(notStarted)
	}
	return u.itemRepo
}

func (u *unitOfWork) AuctionRepository() service.AuctionRepository {
	if u.auctionRepo == nil {
		panic(notStarted)
	}
	return u.auctionRepo
}

func (u *unitOfWork) BidRepository() service.BidRepository {
	if u.bidRepo == nil {
		panic(notStarted)
	}
	return u.bidRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic(notStarted)
	}
	return u.balanceHistoryRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic(notStarted)
	}
	return u.transactionalBus
}
