package reputation

import (
	"context"

	"harvest-backend/internal/application/policies"
	"harvest-backend/internal/pkg/constants"
	"harvest-backend/internal/pkg/validation"

	"github.com/ethereum/go-ethereum/common"
)

// VerifyFarmer marks a farmer as verified, creating the record if needed.
func (s *Service) VerifyFarmer(ctx context.Context, caller policies.Caller, farmerID common.Hash, now int64) error {
	if !validation.IsSetKey(farmerID) {
		return ErrInvalidFarmer
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, policies.ActionVerifyFarmer, caller); err != nil {
			return err
		}
		tx := s.Ledger.Conn(ctx)
		rec, err := s.farmerRecord(tx, farmerID, now)
		if err != nil {
			return err
		}
		rec.Verified = true
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventFarmerVerified, farmerID.Hex(), map[string]interface{}{
			"verified_by": caller.Account.Hex(),
		})
	})
}

// VerifyBuyer marks a buyer as verified, creating the record if needed.
func (s *Service) VerifyBuyer(ctx context.Context, caller policies.Caller, buyer common.Address, now int64) error {
	if !validation.IsSetAccount(buyer) {
		return ErrInvalidBuyer
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, policies.ActionVerifyBuyer, caller); err != nil {
			return err
		}
		tx := s.Ledger.Conn(ctx)
		rec, err := s.buyerRecord(tx, buyer, now)
		if err != nil {
			return err
		}
		rec.Verified = true
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventBuyerVerified, buyer.Hex(), map[string]interface{}{
			"verified_by": caller.Account.Hex(),
		})
	})
}

// RecordDispute counts a dispute raised against a buyer.
func (s *Service) RecordDispute(ctx context.Context, caller policies.Caller, buyer common.Address, now int64) error {
	if !validation.IsSetAccount(buyer) {
		return ErrInvalidBuyer
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		if err := s.authorize(ctx, policies.ActionRecordDispute, caller); err != nil {
			return err
		}
		tx := s.Ledger.Conn(ctx)
		rec, err := s.buyerRecord(tx, buyer, now)
		if err != nil {
			return err
		}
		rec.DisputesRaised++
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventDisputeRecorded, buyer.Hex(), map[string]interface{}{
			"disputes_raised": rec.DisputesRaised,
			"recorded_by":     caller.Account.Hex(),
		})
	})
}

func (s *Service) authorize(ctx context.Context, action policies.Action, caller policies.Caller) error {
	if s.Policy == nil {
		return policies.ErrNoAuthorizerConfig
	}
	return s.Policy.Authorize(ctx, action, caller)
}
