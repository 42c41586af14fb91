package reputation

import (
	"context"
	"errors"
	"math"

	"harvest-backend/internal/application/policies"
	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/pkg/apperr"
	"harvest-backend/internal/pkg/constants"
	"harvest-backend/internal/pkg/validation"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// AuctionReader is the auction ledger as seen by the reputation ledger.
type AuctionReader interface {
	GetAuction(ctx context.Context, auctionID common.Hash) (*domain.Auction, error)
}

// Service is the reputation ledger. Records are created lazily on first touch.
type Service struct {
	Ledger   *database.Ledger
	Auctions AuctionReader
	Policy   policies.Authorizer
}

// RecordSale accounts one completed sale for both parties, at most once per auction.
func (s *Service) RecordSale(ctx context.Context, farmerID common.Hash, buyer common.Address, auctionID common.Hash, amount uint64, now int64) error {
	switch {
	case !validation.IsSetKey(farmerID):
		return ErrInvalidFarmer
	case !validation.IsSetAccount(buyer):
		return ErrInvalidBuyer
	case !validation.IsSetKey(auctionID):
		return ErrInvalidAuction
	case amount > math.MaxInt64:
		return ErrRevenueOverflow
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		var seen int64
		if err := tx.Model(&domain.SaleRecord{}).Where("auction_id = ?", auctionID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return ErrSaleAlreadyRecorded
		}

		farmer, err := s.farmerRecord(tx, farmerID, now)
		if err != nil {
			return err
		}
		b, err := s.buyerRecord(tx, buyer, now)
		if err != nil {
			return err
		}
		if farmer.TotalRevenue > math.MaxInt64-amount || b.TotalSpent > math.MaxInt64-amount {
			return ErrRevenueOverflow
		}

		farmer.TotalSales++
		farmer.SuccessfulDeliveries++
		farmer.TotalRevenue += amount
		if err := tx.Save(farmer).Error; err != nil {
			return err
		}
		b.TotalPurchases++
		b.TimelyPayments++
		b.TotalSpent += amount
		if err := tx.Save(b).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.SaleRecord{
			AuctionID:  auctionID,
			FarmerID:   farmerID,
			Buyer:      buyer,
			Amount:     amount,
			RecordedAt: now,
		}).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventSaleRecorded, auctionID.Hex(), map[string]interface{}{
			"farmer_id": farmerID.Hex(),
			"buyer":     buyer.Hex(),
			"amount":    amount,
		})
	})
}

type SubmitFeedbackInput struct {
	BatchID   common.Hash
	AuctionID common.Hash
	FarmerID  common.Hash
	Buyer     common.Address
	Score     uint8
	Comment   string
}

// SubmitQualityFeedback stores the auction winner's single feedback entry for
// a batch and folds the score into the farmer's running average.
func (s *Service) SubmitQualityFeedback(ctx context.Context, in SubmitFeedbackInput, now int64) (*domain.QualityFeedback, error) {
	if !validation.IsValidFeedbackScore(in.Score) {
		return nil, ErrInvalidScore
	}
	var feedback *domain.QualityFeedback
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		a, err := s.Auctions.GetAuction(ctx, in.AuctionID)
		if err != nil {
			if apperr.IsKind(err, apperr.NotFound) {
				return ErrAuctionNotFound
			}
			return err
		}
		if !validation.IsSetAccount(in.Buyer) || a.HighestBidder != in.Buyer {
			return ErrNotWinner
		}
		if a.BatchID != in.BatchID || a.FarmerID != in.FarmerID {
			return ErrFeedbackMismatch
		}
		var prior int64
		if err := tx.Model(&domain.QualityFeedback{}).Where("batch_id = ? AND buyer = ?", in.BatchID, in.Buyer).Count(&prior).Error; err != nil {
			return err
		}
		if prior > 0 {
			return ErrFeedbackExists
		}

		feedback = &domain.QualityFeedback{
			BatchID:     in.BatchID,
			Buyer:       in.Buyer,
			AuctionID:   in.AuctionID,
			FarmerID:    in.FarmerID,
			Score:       in.Score,
			Comment:     in.Comment,
			SubmittedAt: now,
		}
		if err := tx.Create(feedback).Error; err != nil {
			return err
		}

		farmer, err := s.farmerRecord(tx, in.FarmerID, now)
		if err != nil {
			return err
		}
		farmer.AverageQuality = RunningAverage(farmer.AverageQuality, farmer.FeedbackCount, in.Score)
		farmer.FeedbackCount++
		if err := tx.Save(farmer).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventFeedbackSubmitted, in.BatchID.Hex(), map[string]interface{}{
			"auction_id":      in.AuctionID.Hex(),
			"farmer_id":       in.FarmerID.Hex(),
			"buyer":           in.Buyer.Hex(),
			"score":           in.Score,
			"average_quality": farmer.AverageQuality,
		})
	})
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// RunningAverage folds score into a mean of count scores. Averages are scaled
// by constants.QualityScale and truncated.
func RunningAverage(avg, count uint64, score uint8) uint64 {
	return (avg*count + uint64(score)*constants.QualityScale) / (count + 1)
}

func (s *Service) farmerRecord(tx *gorm.DB, farmerID common.Hash, now int64) (*domain.FarmerReputation, error) {
	var rec domain.FarmerReputation
	err := tx.Where("farmer_id = ?", farmerID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = domain.FarmerReputation{FarmerID: farmerID, RegisteredAt: now}
		if err := tx.Create(&rec).Error; err != nil {
			return nil, err
		}
		return &rec, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Service) buyerRecord(tx *gorm.DB, buyer common.Address, now int64) (*domain.BuyerReputation, error) {
	var rec domain.BuyerReputation
	err := tx.Where("buyer = ?", buyer).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = domain.BuyerReputation{Buyer: buyer, RegisteredAt: now}
		if err := tx.Create(&rec).Error; err != nil {
			return nil, err
		}
		return &rec, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
