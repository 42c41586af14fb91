package batches

import (
	"context"
	"errors"
	"math"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/pkg/constants"
	"harvest-backend/internal/pkg/validation"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// Service is the batch directory: append-only provenance records.
type Service struct {
	Ledger *database.Ledger
}

type RegisterBatchInput struct {
	ID           common.Hash
	HarvestedAt  int64
	CropType     string
	WeightGrams  uint64
	QualityGrade uint8
	FarmerID     common.Hash
	Location     string
	MediaRef     string
}

func (in RegisterBatchInput) validate() error {
	switch {
	case !validation.IsSetKey(in.ID):
		return ErrInvalidBatchID
	case !validation.IsSetKey(in.FarmerID):
		return ErrInvalidFarmerID
	case !validation.IsValidQualityGrade(in.QualityGrade):
		return ErrInvalidGrade
	case in.WeightGrams == 0, in.WeightGrams > math.MaxInt64:
		return ErrInvalidWeight
	case !validation.IsValidCropType(in.CropType):
		return ErrInvalidCropType
	}
	return nil
}

// Register stores a new batch and appends it to its farmer's index.
func (s *Service) Register(ctx context.Context, in RegisterBatchInput) (*domain.Batch, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var batch *domain.Batch
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		exists, err := s.exists(tx, in.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrBatchExists
		}
		seq, err := database.NextSeq(tx, &domain.Batch{})
		if err != nil {
			return err
		}
		batch = &domain.Batch{
			ID:           in.ID,
			Seq:          seq,
			HarvestedAt:  in.HarvestedAt,
			CropType:     in.CropType,
			WeightGrams:  in.WeightGrams,
			QualityGrade: in.QualityGrade,
			FarmerID:     in.FarmerID,
			Location:     in.Location,
			MediaRef:     in.MediaRef,
		}
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventBatchRegistered, in.ID.Hex(), map[string]interface{}{
			"farmer_id":     in.FarmerID.Hex(),
			"crop_type":     in.CropType,
			"weight_grams":  in.WeightGrams,
			"quality_grade": in.QualityGrade,
			"harvested_at":  in.HarvestedAt,
			"media_ref":     in.MediaRef,
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// UpdateMedia replaces the media reference and nothing else.
func (s *Service) UpdateMedia(ctx context.Context, id common.Hash, mediaRef string) error {
	return s.updateField(ctx, id, "media_ref", mediaRef, constants.EventBatchMediaUpdated)
}

// AttachLabTest sets the lab-test reference and nothing else.
func (s *Service) AttachLabTest(ctx context.Context, id common.Hash, labRef string) error {
	return s.updateField(ctx, id, "lab_test_ref", labRef, constants.EventBatchLabTestAttached)
}

func (s *Service) updateField(ctx context.Context, id common.Hash, column, value, eventType string) error {
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		res := s.Ledger.Conn(ctx).Model(&domain.Batch{}).Where("batch_id = ?", id).Update(column, value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBatchNotFound
		}
		return s.Ledger.Emit(ctx, eventType, id.Hex(), map[string]interface{}{column: value})
	})
}

// Exists reports whether id is registered.
func (s *Service) Exists(ctx context.Context, id common.Hash) (bool, error) {
	return s.exists(s.Ledger.Conn(ctx), id)
}

func (s *Service) exists(tx *gorm.DB, id common.Hash) (bool, error) {
	var count int64
	if err := tx.Model(&domain.Batch{}).Where("batch_id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns the batch or ErrBatchNotFound.
func (s *Service) Get(ctx context.Context, id common.Hash) (*domain.Batch, error) {
	var batch domain.Batch
	if err := s.Ledger.Conn(ctx).Where("batch_id = ?", id).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// ListByFarmer returns a farmer's batches in registration order.
func (s *Service) ListByFarmer(ctx context.Context, farmerID common.Hash) ([]domain.Batch, error) {
	var out []domain.Batch
	if err := s.Ledger.Conn(ctx).Where("farmer_id = ?", farmerID).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of registered batches.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.Ledger.Conn(ctx).Model(&domain.Batch{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
