package service

import (
	"context"
	"fmt"
	"time"

	"economy/events"
	"economy/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	bidTaxRate      = decimal.RequireFromString("0.10")
	buyItNowTaxRate = decimal.RequireFromString("0.05")
	durationTaxRate = decimal.NewFromInt(10) // tokens per listed hour
)

// CreateAuctionRequest selects exactly one asset to list. BlookID is a blook
// definition id, ItemID is an item instance id.
type CreateAuctionRequest struct {
	SellerID        int64
	BlookID         *int64
	ItemID          *int64
	Price           int64
	BuyItNow        bool
	DurationMinutes int
}

// ListingTax is the non-refundable fee charged when an auction is created
type ListingTax struct {
	PriceTax    int64
	DurationTax int64
}

// Total returns the amount debited from the seller
func (t ListingTax) Total() int64 {
	return t.PriceTax + t.DurationTax
}

// CalculateListingTax computes the listing fee. The price share is 10% for bid
// auctions and 5% for buy-it-now, halved with fee reduction and floored. The
// duration share is floor(minutes / 60 * 10).
func CalculateListingTax(price int64, buyItNow, feeReduction bool, durationMinutes int) ListingTax {
	rate := bidTaxRate
	if buyItNow {
		rate = buyItNowTaxRate
	}
	tax := decimal.NewFromInt(price).Mul(rate)
	if feeReduction {
		tax = tax.Div(decimal.NewFromInt(2))
	}

	durationTax := decimal.NewFromInt(int64(durationMinutes)).Mul(durationTaxRate).Div(decimal.NewFromInt(60))

	return ListingTax{
		PriceTax:    tax.Floor().IntPart(),
		DurationTax: durationTax.Floor().IntPart(),
	}
}

type auctionService struct {
	uowFactory        UnitOfWorkFactory
	catalog           CatalogReader
	entitlements      EntitlementChecker
	maxAuctionMinutes int
	now               func() time.Time
}

// NewAuctionService creates a new auction service
func NewAuctionService(uowFactory UnitOfWorkFactory, catalog CatalogReader, entitlements EntitlementChecker, maxAuctionMinutes int) AuctionService {
	return &auctionService{
		uowFactory:        uowFactory,
		catalog:           catalog,
		entitlements:      entitlements,
		maxAuctionMinutes: maxAuctionMinutes,
		now:               time.Now,
	}
}

func (s *auctionService) validateCreate(req CreateAuctionRequest) error {
	if (req.BlookID == nil) == (req.ItemID == nil) {
		return badRequest("exactly one of blook or item must be given")
	}
	if req.Price <= 0 {
		return badRequest("price must be positive, got %d", req.Price)
	}
	if req.DurationMinutes < 1 || req.DurationMinutes > s.maxAuctionMinutes {
		return badRequest("duration must be between 1 and %d minutes, got %d", s.maxAuctionMinutes, req.DurationMinutes)
	}
	return nil
}

// CreateAuction locks one owned asset, charges the listing tax and inserts the auction in one transaction
func (s *auctionService) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*models.Auction, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	kind := models.AssetKindItem
	if req.BlookID != nil {
		kind = models.AssetKindBlook
		def, err := s.catalog.GetAssetDefinition(ctx, kind, *req.BlookID)
		if err != nil {
			return nil, fmt.Errorf("failed to read blook definition: %w", err)
		}
		if def == nil {
			return nil, notFound("blook %d not found", *req.BlookID)
		}
	}

	feeReduction, err := s.entitlements.HasFeeReduction(ctx, req.SellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check fee reduction: %w", err)
	}
	tax := CalculateListingTax(req.Price, req.BuyItNow, feeReduction, req.DurationMinutes)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	var instanceID int64
	if kind == models.AssetKindBlook {
		blook, err := uow.BlookRepository().FindOldestEligible(ctx, req.SellerID, *req.BlookID)
		if err != nil {
			return nil, fmt.Errorf("failed to find blook to list: %w", err)
		}
		if blook == nil {
			return nil, forbidden("account %d has no unlisted copy of blook %d", req.SellerID, *req.BlookID)
		}
		instanceID = blook.ID
	} else {
		instanceID = *req.ItemID
	}

	ledger := NewLedger(uow)
	if err := ledger.LockForAuction(ctx, kind, instanceID, req.SellerID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	auction := &models.Auction{
		Kind:      kind,
		SellerID:  req.SellerID,
		Price:     req.Price,
		BuyItNow:  req.BuyItNow,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(req.DurationMinutes) * time.Minute),
	}
	if kind == models.AssetKindBlook {
		auction.BlookID = &instanceID
	} else {
		auction.ItemID = &instanceID
	}
	if err := uow.AuctionRepository().Create(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	if tax.Total() > 0 {
		relatedType := models.RelatedTypeAuction
		_, err := ledger.Debit(ctx, req.SellerID, tax.Total(), Posting{
			Type: models.TransactionTypeAuctionTax,
			Metadata: map[string]any{
				"price_tax":    tax.PriceTax,
				"duration_tax": tax.DurationTax,
				"buy_it_now":   req.BuyItNow,
			},
			RelatedID:   &auction.ID,
			RelatedType: &relatedType,
		})
		if err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.AuctionCreatedEvent{
		AuctionID:  auction.ID,
		SellerID:   auction.SellerID,
		Kind:       auction.Kind,
		InstanceID: instanceID,
		Price:      auction.Price,
		BuyItNow:   auction.BuyItNow,
		Tax:        tax.Total(),
		ExpiresAt:  auction.ExpiresAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"auctionID":  auction.ID,
		"sellerID":   auction.SellerID,
		"kind":       auction.Kind,
		"instanceID": instanceID,
		"price":      auction.Price,
		"tax":        tax.Total(),
	}).Info("Auction created")

	return auction, nil
}

// ListActiveAuctions returns open auctions, newest first, with their bidding summary
func (s *auctionService) ListActiveAuctions(ctx context.Context, filter models.AuctionFilter) ([]*models.AuctionListing, error) {
	if filter.Kind != nil {
		if err := filter.Kind.Validate(); err != nil {
			return nil, badRequest("%v", err)
		}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 100
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auctions, err := uow.AuctionRepository().ListActive(ctx, s.now().UTC(), filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	if len(auctions) == 0 {
		return []*models.AuctionListing{}, nil
	}

	ids := make([]int64, len(auctions))
	for i, a := range auctions {
		ids[i] = a.ID
	}
	bidsByAuction, err := uow.BidRepository().GetByAuctions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids: %w", err)
	}

	listings := make([]*models.AuctionListing, len(auctions))
	for i, a := range auctions {
		listing := &models.AuctionListing{Auction: a}
		for _, bid := range bidsByAuction[a.ID] {
			listing.BidCount++
			if listing.HighestBid == nil || bid.Amount > *listing.HighestBid {
				amount := bid.Amount
				listing.HighestBid = &amount
			}
		}
		listings[i] = listing
	}
	return listings, nil
}

// PlaceBid records a standing offer. Balances are not reserved; solvency is checked at settlement.
func (s *auctionService) PlaceBid(ctx context.Context, auctionID, bidderID, amount int64) (*models.Bid, error) {
	if amount <= 0 {
		return nil, badRequest("bid amount must be positive, got %d", amount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The share lock keeps a concurrent sweep from settling the auction under us
	auction, err := uow.AuctionRepository().GetByIDForShare(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction == nil {
		return nil, notFound("auction %d not found", auctionID)
	}

	now := s.now().UTC()
	if !auction.IsActiveAt(now) {
		return nil, forbidden("auction %d is no longer active", auctionID)
	}
	if auction.BuyItNow {
		return nil, badRequest("auction %d is buy-it-now and does not accept bids", auctionID)
	}
	if auction.SellerID == bidderID {
		return nil, forbidden("sellers cannot bid on their own auction")
	}
	if amount < auction.Price {
		return nil, badRequest("bid of %d is below the minimum price %d", amount, auction.Price)
	}

	bidder, err := uow.AccountRepository().GetByID(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bidder: %w", err)
	}
	if bidder == nil {
		return nil, notFound("account %d not found", bidderID)
	}

	bid := &models.Bid{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := uow.BidRepository().Create(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}

	uow.EventBus().Publish(events.BidPlacedEvent{
		BidID:     bid.ID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return bid, nil
}
