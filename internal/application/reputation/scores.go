package reputation

import (
	"context"
	"errors"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/pkg/constants"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// Score weights, in points out of 100.
const (
	farmerQualityWeight  = 40
	farmerDeliveryWeight = 30
	farmerVolumeWeight   = 20
	buyerTimelyWeight    = 50
	buyerDisputeWeight   = 30
	buyerVolumeWeight    = 10
	verifiedBonus        = 10
)

// FarmerScore is the 0..100 trust score of a farmer record; 0 without sales.
func FarmerScore(r *domain.FarmerReputation) uint64 {
	if r == nil || r.TotalSales == 0 {
		return 0
	}
	score := r.AverageQuality * farmerQualityWeight / (constants.MaxFeedbackScore * constants.QualityScale)
	score += r.SuccessfulDeliveries * farmerDeliveryWeight / r.TotalSales
	score += min(r.TotalSales, constants.FarmerVolumeCap) * farmerVolumeWeight / constants.FarmerVolumeCap
	if r.Verified {
		score += verifiedBonus
	}
	return min(score, 100)
}

// BuyerScore is the 0..100 trust score of a buyer record; 0 without purchases.
func BuyerScore(r *domain.BuyerReputation) uint64 {
	if r == nil || r.TotalPurchases == 0 {
		return 0
	}
	p := r.TotalPurchases
	score := r.TimelyPayments * buyerTimelyWeight / p
	score += (p - min(r.DisputesRaised, p)) * buyerDisputeWeight / p
	score += min(p, constants.BuyerVolumeCap) * buyerVolumeWeight / constants.BuyerVolumeCap
	if r.Verified {
		score += verifiedBonus
	}
	return min(score, 100)
}

// CalculateFarmerScore returns the farmer's trust score; unknown farmers score 0.
func (s *Service) CalculateFarmerScore(ctx context.Context, farmerID common.Hash) (uint64, error) {
	rec, err := s.GetFarmer(ctx, farmerID)
	if errors.Is(err, ErrFarmerNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return FarmerScore(rec), nil
}

// CalculateBuyerScore returns the buyer's trust score; unknown buyers score 0.
func (s *Service) CalculateBuyerScore(ctx context.Context, buyer common.Address) (uint64, error) {
	rec, err := s.GetBuyer(ctx, buyer)
	if errors.Is(err, ErrBuyerNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return BuyerScore(rec), nil
}

func (s *Service) GetFarmer(ctx context.Context, farmerID common.Hash) (*domain.FarmerReputation, error) {
	var rec domain.FarmerReputation
	if err := s.Ledger.Conn(ctx).Where("farmer_id = ?", farmerID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Service) GetBuyer(ctx context.Context, buyer common.Address) (*domain.BuyerReputation, error) {
	var rec domain.BuyerReputation
	if err := s.Ledger.Conn(ctx).Where("buyer = ?", buyer).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuyerNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetBatchFeedback lists feedback for a batch in submission order.
func (s *Service) GetBatchFeedback(ctx context.Context, batchID common.Hash) ([]domain.QualityFeedback, error) {
	var out []domain.QualityFeedback
	if err := s.Ledger.Conn(ctx).Where("batch_id = ?", batchID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
