package service

import (
	"context"
	"fmt"
	"time"

	"economy/events"
	"economy/models"

	log "github.com/sirupsen/logrus"
)

// DefaultRewardTable is the periodic token reward distribution
var DefaultRewardTable = []models.RewardTier{
	{Chance: 40, Tokens: 500},
	{Chance: 25, Tokens: 750},
	{Chance: 15, Tokens: 1000},
	{Chance: 10, Tokens: 1500},
	{Chance: 6, Tokens: 2500},
	{Chance: 3, Tokens: 5000},
	{Chance: 1, Tokens: 10000},
}

type rewardService struct {
	uowFactory UnitOfWorkFactory
	table      []IntWeightedEntry[int64]
	resetHour  int
	rng        RandomSource
	now        func() time.Time
}

// NewRewardService creates a new periodic reward service
func NewRewardService(uowFactory UnitOfWorkFactory, table []models.RewardTier, resetHour int, rng RandomSource) RewardService {
	if rng == nil {
		rng = DefaultRandomSource
	}
	pool := make([]IntWeightedEntry[int64], len(table))
	for i, tier := range table {
		pool[i] = IntWeightedEntry[int64]{Weight: tier.Chance, Value: tier.Tokens}
	}
	return &rewardService{
		uowFactory: uowFactory,
		table:      pool,
		resetHour:  resetHour,
		rng:        rng,
		now:        time.Now,
	}
}

// ClaimPeriodicReward grants one draw from the reward table per period
func (s *rewardService) ClaimPeriodicReward(ctx context.Context, accountID int64) (*models.RewardClaimResult, error) {
	tokens, err := DrawInclusive(s.rng, s.table)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	periodStart := PeriodStartAt(now, s.resetHour)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	claimed, err := uow.AccountRepository().MarkClaimed(ctx, accountID, periodStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark reward claimed: %w", err)
	}
	if !claimed {
		account, err := uow.AccountRepository().GetByID(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return nil, notFound("account %d not found", accountID)
		}
		return nil, forbidden("reward already claimed, next claim at %s", NextPeriodStartAt(now, s.resetHour).Format(time.RFC3339))
	}

	newBalance, err := NewLedger(uow).Credit(ctx, accountID, tokens, Posting{
		Type:     models.TransactionTypeDailyReward,
		Metadata: map[string]any{"period_start": periodStart.Format(time.RFC3339)},
	})
	if err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.RewardClaimedEvent{AccountID: accountID, Tokens: tokens})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID": accountID,
		"tokens":    tokens,
	}).Debug("Periodic reward claimed")

	return &models.RewardClaimResult{
		Tokens:      tokens,
		NewBalance:  newBalance,
		ClaimedAt:   now,
		NextClaimAt: NextPeriodStartAt(now, s.resetHour),
	}, nil
}
