package auctions

import (
	"context"
	"errors"
	"math"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/pkg/apperr"
	"harvest-backend/internal/pkg/constants"
	"harvest-backend/internal/pkg/validation"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// BatchChecker is the batch directory as seen by the auction ledger. Get
// returns an error of kind NotFound for unregistered batches.
type BatchChecker interface {
	Get(ctx context.Context, id common.Hash) (*domain.Batch, error)
}

// Service is the auction ledger.
type Service struct {
	Ledger       *database.Ledger
	Batches      BatchChecker
	MinIncrement uint64
}

func (s *Service) minIncrement() uint64 {
	if s.MinIncrement == 0 {
		return constants.DefaultMinBidIncrement
	}
	return s.MinIncrement
}

type CreateAuctionInput struct {
	ID               common.Hash
	BatchID          common.Hash
	FarmerID         common.Hash
	SellerAccount    common.Address
	DurationSeconds  int64
	StartingPrice    uint64
	ReservePrice     uint64
	DeliveryLocation string
}

// CreateAuction opens an auction on a registered batch, ending at now+duration.
func (s *Service) CreateAuction(ctx context.Context, in CreateAuctionInput, now int64) (*domain.Auction, error) {
	if !validation.IsSetKey(in.ID) {
		return nil, ErrInvalidID
	}
	var auction *domain.Auction
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		if _, err := s.find(tx, in.ID); err == nil {
			return ErrAuctionExists
		} else if !errors.Is(err, ErrAuctionNotFound) {
			return err
		}
		batch, err := s.Batches.Get(ctx, in.BatchID)
		if apperr.IsKind(err, apperr.NotFound) {
			return ErrBatchNotFound
		}
		if err != nil {
			return err
		}
		if batch.FarmerID != in.FarmerID {
			return ErrNotBatchOwner
		}
		if !validation.IsValidDuration(in.DurationSeconds) {
			return ErrInvalidDuration
		}
		if in.StartingPrice == 0 || in.ReservePrice < in.StartingPrice || in.ReservePrice > math.MaxInt64 {
			return ErrInvalidPrice
		}
		var taken int64
		if err := tx.Model(&domain.Auction{}).Where("batch_id = ?", in.BatchID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrBatchAuctioned
		}
		seq, err := database.NextSeq(tx, &domain.Auction{})
		if err != nil {
			return err
		}
		auction = &domain.Auction{
			ID:               in.ID,
			Seq:              seq,
			BatchID:          in.BatchID,
			FarmerID:         in.FarmerID,
			SellerAccount:    in.SellerAccount,
			StartTime:        now,
			EndTime:          now + in.DurationSeconds,
			StartingPrice:    in.StartingPrice,
			ReservePrice:     in.ReservePrice,
			HighestBidder:    domain.NoBidder,
			Status:           domain.AuctionOpen,
			DeliveryLocation: in.DeliveryLocation,
		}
		if err := tx.Create(auction).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventAuctionCreated, in.ID.Hex(), map[string]interface{}{
			"batch_id":       in.BatchID.Hex(),
			"farmer_id":      in.FarmerID.Hex(),
			"start_time":     auction.StartTime,
			"end_time":       auction.EndTime,
			"starting_price": in.StartingPrice,
			"reserve_price":  in.ReservePrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return auction, nil
}

// PlaceBid records a bid that beats the current highest by at least the
// minimum increment (or meets the starting price when there is none).
func (s *Service) PlaceBid(ctx context.Context, auctionID common.Hash, bidder common.Address, amount uint64, now int64) (*domain.Bid, error) {
	if !validation.IsSetAccount(bidder) {
		return nil, ErrInvalidBidder
	}
	// Amounts live in signed BIGINT columns.
	if amount > math.MaxInt64 {
		return nil, ErrBidTooLarge
	}
	var bid *domain.Bid
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		a, err := s.find(tx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != domain.AuctionOpen {
			return ErrNotOpen
		}
		if now >= a.EndTime {
			return ErrAlreadyEnded
		}
		if a.HasBids() && a.HighestBid > math.MaxUint64-s.minIncrement() {
			return ErrBidTooLow
		}
		if amount < a.MinimumNextBid(s.minIncrement()) {
			return ErrBidTooLow
		}

		position := a.BidCount + 1
		if err := tx.Model(&domain.Auction{}).Where("auction_id = ?", auctionID).Updates(map[string]interface{}{
			"highest_bid":    amount,
			"highest_bidder": bidder,
			"bid_count":      position,
		}).Error; err != nil {
			return err
		}
		bid = &domain.Bid{
			AuctionID: auctionID,
			Position:  position,
			Bidder:    bidder,
			Amount:    amount,
			PlacedAt:  now,
		}
		if err := tx.Create(bid).Error; err != nil {
			return err
		}
		if err := s.recordParticipation(tx, bidder, auctionID, now); err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventBidPlaced, auctionID.Hex(), map[string]interface{}{
			"bidder":    bidder.Hex(),
			"amount":    amount,
			"position":  position,
			"placed_at": now,
		})
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

func (s *Service) recordParticipation(tx *gorm.DB, bidder common.Address, auctionID common.Hash, now int64) error {
	var count int64
	if err := tx.Model(&domain.BidderAuction{}).Where("bidder = ? AND auction_id = ?", bidder, auctionID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seq, err := database.NextSeq(tx, &domain.BidderAuction{})
	if err != nil {
		return err
	}
	return tx.Create(&domain.BidderAuction{Bidder: bidder, AuctionID: auctionID, JoinedAt: now, Seq: seq}).Error
}

// CloseAuction ends bidding once now has reached the end time.
func (s *Service) CloseAuction(ctx context.Context, auctionID common.Hash, now int64) error {
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		a, err := s.find(tx, auctionID)
		if err != nil {
			return err
		}
		next, err := a.Status.Close()
		if err != nil {
			return err
		}
		if now < a.EndTime {
			return ErrNotEnded
		}
		if err := s.setStatus(tx, auctionID, next); err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventAuctionClosed, auctionID.Hex(), map[string]interface{}{
			"highest_bid":    a.HighestBid,
			"highest_bidder": a.HighestBidder.Hex(),
			"closed_at":      now,
		})
	})
}

// SettleAuction finalizes a closed auction whose highest bid meets the reserve.
func (s *Service) SettleAuction(ctx context.Context, auctionID common.Hash) error {
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		a, err := s.find(tx, auctionID)
		if err != nil {
			return err
		}
		next, err := a.Status.Settle()
		if err != nil {
			return err
		}
		if !a.ReserveMet() {
			return ErrReserveNotMet
		}
		if err := s.setStatus(tx, auctionID, next); err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventAuctionSettled, auctionID.Hex(), map[string]interface{}{
			"winner":      a.HighestBidder.Hex(),
			"final_price": a.HighestBid,
		})
	})
}

// CancelAuction withdraws an open auction that has no bids. A non-zero caller
// must be the auction's farmer.
func (s *Service) CancelAuction(ctx context.Context, auctionID, caller common.Hash) error {
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		a, err := s.find(tx, auctionID)
		if err != nil {
			return err
		}
		if validation.IsSetKey(caller) && caller != a.FarmerID {
			return ErrNotSeller
		}
		next, err := a.Status.Cancel()
		if err != nil {
			return err
		}
		if a.HasBids() {
			return ErrHasBids
		}
		if err := s.setStatus(tx, auctionID, next); err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventAuctionCancelled, auctionID.Hex(), map[string]interface{}{
			"batch_id": a.BatchID.Hex(),
		})
	})
}

func (s *Service) setStatus(tx *gorm.DB, auctionID common.Hash, status domain.AuctionStatus) error {
	return tx.Model(&domain.Auction{}).Where("auction_id = ?", auctionID).Update("status", status).Error
}

func (s *Service) find(tx *gorm.DB, auctionID common.Hash) (*domain.Auction, error) {
	var a domain.Auction
	if err := tx.Where("auction_id = ?", auctionID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	return &a, nil
}
