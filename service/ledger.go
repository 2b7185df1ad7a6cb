package service

import (
	"context"
	"fmt"

	"economy/models"
)

// Posting describes why a balance changed, for the balance history
type Posting struct {
	Type        models.TransactionType
	Metadata    map[string]any
	RelatedID   *int64
	RelatedType *models.RelatedType
}

// AssetMetadata carries the per-instance attributes of a granted asset
type AssetMetadata struct {
	// UsesLeft is the starting charge count for items; values below one mean a single use
	UsesLeft int
}

// Ledger applies balance and ownership mutations inside a started unit of work.
// It never commits; the caller owns the transaction boundary.
type Ledger struct {
	uow UnitOfWork
}

// NewLedger creates a ledger bound to uow
func NewLedger(uow UnitOfWork) *Ledger {
	return &Ledger{uow: uow}
}

// Debit removes amount tokens and returns the new balance. A negative result
// fails with ErrInsufficientFunds and the caller must roll back.
func (l *Ledger) Debit(ctx context.Context, accountID, amount int64, posting Posting) (int64, error) {
	if amount <= 0 {
		return 0, badRequest("debit amount must be positive, got %d", amount)
	}

	newBalance, err := l.uow.AccountRepository().AdjustTokens(ctx, accountID, -amount)
	if err != nil {
		return 0, fmt.Errorf("failed to debit account %d: %w", accountID, err)
	}
	if newBalance < 0 {
		return 0, fmt.Errorf("account %d short by %d: %w", accountID, -newBalance, ErrInsufficientFunds)
	}

	if err := l.record(ctx, accountID, newBalance+amount, newBalance, posting); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Credit adds amount tokens and returns the new balance
func (l *Ledger) Credit(ctx context.Context, accountID, amount int64, posting Posting) (int64, error) {
	if amount <= 0 {
		return 0, badRequest("credit amount must be positive, got %d", amount)
	}

	newBalance, err := l.uow.AccountRepository().AdjustTokens(ctx, accountID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to credit account %d: %w", accountID, err)
	}

	if err := l.record(ctx, accountID, newBalance-amount, newBalance, posting); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (l *Ledger) record(ctx context.Context, accountID, before, after int64, posting Posting) error {
	return RecordBalanceChange(ctx, l.uow, &models.BalanceHistory{
		AccountID:           accountID,
		BalanceBefore:       before,
		BalanceAfter:        after,
		ChangeAmount:        after - before,
		TransactionType:     posting.Type,
		TransactionMetadata: posting.Metadata,
		RelatedID:           posting.RelatedID,
		RelatedType:         posting.RelatedType,
	})
}

// GrantAsset creates a new instance of definitionID owned by ownerID
func (l *Ledger) GrantAsset(ctx context.Context, ownerID, definitionID int64, kind models.AssetKind, meta AssetMetadata) (*models.GrantedAsset, error) {
	granted := &models.GrantedAsset{Kind: kind, DefinitionID: definitionID, OwnerID: ownerID}

	switch kind {
	case models.AssetKindBlook:
		blook, err := l.uow.BlookRepository().Create(ctx, ownerID, definitionID)
		if err != nil {
			return nil, fmt.Errorf("failed to grant blook %d: %w", definitionID, err)
		}
		granted.InstanceID = blook.ID
	case models.AssetKindItem:
		uses := meta.UsesLeft
		if uses < 1 {
			uses = 1
		}
		item, err := l.uow.ItemRepository().Create(ctx, ownerID, definitionID, uses)
		if err != nil {
			return nil, fmt.Errorf("failed to grant item %d: %w", definitionID, err)
		}
		granted.InstanceID = item.ID
	default:
		return nil, badRequest("unknown asset kind %q", kind)
	}

	return granted, nil
}

// TransferAsset re-parents an existing instance to toOwnerID
func (l *Ledger) TransferAsset(ctx context.Context, kind models.AssetKind, instanceID, toOwnerID int64) error {
	var (
		moved bool
		err   error
	)
	switch kind {
	case models.AssetKindBlook:
		moved, err = l.uow.BlookRepository().UpdateOwner(ctx, instanceID, toOwnerID)
	case models.AssetKindItem:
		moved, err = l.uow.ItemRepository().UpdateOwner(ctx, instanceID, toOwnerID)
	default:
		return badRequest("unknown asset kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("failed to transfer %s %d: %w", kind, instanceID, err)
	}
	if !moved {
		return fmt.Errorf("%s %d is missing or liquidated: %w", kind, instanceID, ErrUnknownAsset)
	}
	return nil
}

// LockForAuction verifies ownerID may list the instance. The instance row stays
// locked until the transaction ends, so concurrent listings of it serialize here.
func (l *Ledger) LockForAuction(ctx context.Context, kind models.AssetKind, instanceID, ownerID int64) error {
	switch kind {
	case models.AssetKindBlook:
		blook, err := l.uow.BlookRepository().GetByIDForUpdate(ctx, instanceID)
		if err != nil {
			return fmt.Errorf("failed to load blook %d: %w", instanceID, err)
		}
		if blook == nil {
			return notFound("blook instance %d not found", instanceID)
		}
		if !blook.IsEligibleForAuction(ownerID) {
			return forbidden("blook instance %d is not owned by account %d", instanceID, ownerID)
		}
	case models.AssetKindItem:
		item, err := l.uow.ItemRepository().GetByIDForUpdate(ctx, instanceID)
		if err != nil {
			return fmt.Errorf("failed to load item %d: %w", instanceID, err)
		}
		if item == nil {
			return notFound("item instance %d not found", instanceID)
		}
		if !item.IsEligibleForAuction(ownerID) {
			return forbidden("item instance %d is not owned by account %d or has no uses left", instanceID, ownerID)
		}
	default:
		return badRequest("unknown asset kind %q", kind)
	}

	active, err := l.uow.AuctionRepository().HasActiveForInstance(ctx, kind, instanceID)
	if err != nil {
		return fmt.Errorf("failed to check active auctions: %w", err)
	}
	if active {
		return conflict("%s instance %d is already listed", kind, instanceID)
	}
	return nil
}
