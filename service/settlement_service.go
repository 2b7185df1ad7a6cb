package service

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"economy/config"
	"economy/events"
	"economy/models"

	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
	mode       config.SettlementMode
	running    atomic.Bool
	now        func() time.Time
}

// NewSettlementService creates the expired auction sweeper
func NewSettlementService(uowFactory UnitOfWorkFactory, mode config.SettlementMode) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
		mode:       mode,
		now:        time.Now,
	}
}

// RunSettlementSweep settles every auction whose expiry has passed. A call made
// while another sweep is in flight returns immediately with Skipped set.
func (s *settlementService) RunSettlementSweep(ctx context.Context) (*models.SettlementReport, error) {
	report := &models.SettlementReport{StartedAt: s.now().UTC()}

	if !s.running.CompareAndSwap(false, true) {
		log.Warn("Settlement sweep already running, skipping")
		report.Skipped = true
		return report, nil
	}
	defer s.running.Store(false)

	var err error
	if s.mode == config.SettlementModePerAuction {
		err = s.sweepPerAuction(ctx, report)
	} else {
		err = s.sweepBatch(ctx, report)
	}
	if err != nil {
		return nil, err
	}

	if len(report.Outcomes) > 0 {
		sold, unsold, failed := report.Counts()
		log.WithFields(log.Fields{
			"mode":   s.mode,
			"sold":   sold,
			"unsold": unsold,
			"failed": failed,
		}).Info("Settlement sweep completed")
	}
	return report, nil
}

// sweepBatch settles all expired auctions in one transaction. Any failure aborts the whole batch.
func (s *settlementService) sweepBatch(ctx context.Context, report *models.SettlementReport) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auctions, err := uow.AuctionRepository().GetExpiredUnsettled(ctx, report.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to get expired auctions: %w", err)
	}
	if len(auctions) == 0 {
		return nil
	}

	ids := make([]int64, len(auctions))
	for i, a := range auctions {
		ids[i] = a.ID
	}
	bidsByAuction, err := uow.BidRepository().GetByAuctions(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load bids: %w", err)
	}

	outcomes := make([]models.SettlementOutcome, 0, len(auctions))
	for _, auction := range auctions {
		outcome, err := settleAuction(ctx, uow, auction, bidsByAuction[auction.ID], report.StartedAt)
		if err != nil {
			log.WithFields(log.Fields{
				"auctionID": auction.ID,
				"batchSize": len(auctions),
			}).WithError(err).Error("Settlement batch aborted")
			return fmt.Errorf("failed to settle auction %d: %w", auction.ID, err)
		}
		outcomes = append(outcomes, outcome)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement batch: %w", err)
	}
	report.Outcomes = outcomes
	return nil
}

// sweepPerAuction settles each expired auction in its own transaction so one bad
// auction cannot hold back the others
func (s *settlementService) sweepPerAuction(ctx context.Context, report *models.SettlementReport) error {
	ids, err := s.expiredIDs(ctx, report.StartedAt)
	if err != nil {
		return err
	}

	for _, id := range ids {
		outcome, settled, err := s.settleOne(ctx, id, report.StartedAt)
		if err != nil {
			log.WithField("auctionID", id).WithError(err).Error("Failed to settle auction")
			report.Outcomes = append(report.Outcomes, models.SettlementOutcome{AuctionID: id, Err: err})
			continue
		}
		if settled {
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}
	return nil
}

func (s *settlementService) expiredIDs(ctx context.Context, now time.Time) ([]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ids, err := uow.AuctionRepository().GetExpiredUnsettledIDs(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired auctions: %w", err)
	}
	return ids, nil
}

// settleOne reports settled=false when another writer delisted the auction first
func (s *settlementService) settleOne(ctx context.Context, auctionID int64, now time.Time) (models.SettlementOutcome, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return models.SettlementOutcome{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auction, err := uow.AuctionRepository().LockExpiredUnsettled(ctx, auctionID, now)
	if err != nil {
		return models.SettlementOutcome{}, false, fmt.Errorf("failed to lock auction: %w", err)
	}
	if auction == nil {
		return models.SettlementOutcome{}, false, nil
	}

	bids, err := uow.BidRepository().GetByAuction(ctx, auctionID)
	if err != nil {
		return models.SettlementOutcome{}, false, fmt.Errorf("failed to load bids: %w", err)
	}

	outcome, err := settleAuction(ctx, uow, auction, bids, now)
	if err != nil {
		return models.SettlementOutcome{}, false, err
	}

	if err := uow.Commit(); err != nil {
		return models.SettlementOutcome{}, false, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return outcome, true, nil
}

// settleAuction resolves one locked, expired auction inside uow. Seller credit,
// buyer debit and asset transfer are applied together or the caller rolls back.
func settleAuction(ctx context.Context, uow UnitOfWork, auction *models.Auction, bids []*models.Bid, now time.Time) (models.SettlementOutcome, error) {
	outcome := models.SettlementOutcome{
		AuctionID:  auction.ID,
		Kind:       auction.Kind,
		InstanceID: auction.InstanceID(),
		SellerID:   auction.SellerID,
	}

	var winner *models.Bid
	if !auction.BuyItNow && len(bids) > 0 {
		var err error
		winner, err = selectWinningBid(ctx, uow, bids)
		if err != nil {
			return outcome, err
		}
	}

	if winner != nil {
		if err := transferSale(ctx, uow, auction, winner); err != nil {
			return outcome, err
		}
		buyerID := winner.BidderID
		outcome.BuyerID = &buyerID
		outcome.Amount = winner.Amount
	}

	if err := uow.AuctionRepository().MarkDelisted(ctx, auction.ID, outcome.BuyerID, now); err != nil {
		return outcome, fmt.Errorf("failed to delist auction: %w", err)
	}

	uow.EventBus().Publish(events.AuctionSettledEvent{
		AuctionID:  outcome.AuctionID,
		SellerID:   outcome.SellerID,
		Kind:       outcome.Kind,
		InstanceID: outcome.InstanceID,
		BuyerID:    outcome.BuyerID,
		Amount:     outcome.Amount,
	})

	return outcome, nil
}

// selectWinningBid locks the bidders and picks the highest bid whose bidder can
// still pay, ties going to the earliest bid
func selectWinningBid(ctx context.Context, uow UnitOfWork, bids []*models.Bid) (*models.Bid, error) {
	bidderSet := make(map[int64]struct{}, len(bids))
	for _, bid := range bids {
		bidderSet[bid.BidderID] = struct{}{}
	}
	bidderIDs := make([]int64, 0, len(bidderSet))
	for id := range bidderSet {
		bidderIDs = append(bidderIDs, id)
	}
	sort.Slice(bidderIDs, func(i, j int) bool { return bidderIDs[i] < bidderIDs[j] })

	bidders, err := uow.AccountRepository().GetByIDsForUpdate(ctx, bidderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bidders: %w", err)
	}

	var winner *models.Bid
	for _, bid := range bids {
		bidder, ok := bidders[bid.BidderID]
		if !ok || !bidder.CanAfford(bid.Amount) {
			continue
		}
		if winner == nil || bid.Amount > winner.Amount || (bid.Amount == winner.Amount && bid.ID < winner.ID) {
			winner = bid
		}
	}
	return winner, nil
}

func transferSale(ctx context.Context, uow UnitOfWork, auction *models.Auction, winner *models.Bid) error {
	ledger := NewLedger(uow)
	relatedType := models.RelatedTypeAuction
	meta := map[string]any{
		"bid_id":      winner.ID,
		"instance_id": auction.InstanceID(),
		"kind":        string(auction.Kind),
	}

	// Guarded even though solvency was just verified under lock
	if _, err := ledger.Debit(ctx, winner.BidderID, winner.Amount, Posting{
		Type:        models.TransactionTypeAuctionPurchase,
		Metadata:    meta,
		RelatedID:   &auction.ID,
		RelatedType: &relatedType,
	}); err != nil {
		return err
	}

	if _, err := ledger.Credit(ctx, auction.SellerID, winner.Amount, Posting{
		Type:        models.TransactionTypeAuctionSale,
		Metadata:    meta,
		RelatedID:   &auction.ID,
		RelatedType: &relatedType,
	}); err != nil {
		return err
	}

	return ledger.TransferAsset(ctx, auction.Kind, auction.InstanceID(), winner.BidderID)
}
