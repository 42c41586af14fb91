package escrow

import (
	"context"
	"errors"
	"math/bits"

	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/pkg/apperr"
	"harvest-backend/internal/pkg/constants"
	"harvest-backend/internal/pkg/validation"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuctionReader is the auction ledger as seen by the vault.
type AuctionReader interface {
	GetAuction(ctx context.Context, auctionID common.Hash) (*domain.Auction, error)
}

// FundsCustody moves settlement tokens. Transfer pays out of the vault's own
// account; TransferFrom spends an allowance granted to the vault. A false
// return means the ledger refused the movement.
type FundsCustody interface {
	BalanceOf(ctx context.Context, account common.Address) (uint64, error)
	Allowance(ctx context.Context, owner, spender common.Address) (uint64, error)
	TransferFrom(ctx context.Context, from, to common.Address, amount uint64) (bool, error)
	Transfer(ctx context.Context, to common.Address, amount uint64) (bool, error)
}

// Service is the escrow vault: at most one escrow per auction, paid out
// exactly once either to the seller (minus the platform fee) or back to the buyer.
type Service struct {
	Ledger   *database.Ledger
	Auctions AuctionReader
	Custody  FundsCustody
}

// EnsureSettings seeds the settings row if it does not exist yet. An existing
// row is left untouched so fee changes survive restarts.
func (s *Service) EnsureSettings(ctx context.Context, feeBps uint64, collector, vault common.Address) (*domain.VaultSettings, error) {
	if feeBps > constants.MaxPlatformFeeBps {
		return nil, ErrInvalidFee
	}
	if !validation.IsSetAccount(collector) || !validation.IsSetAccount(vault) {
		return nil, ErrInvalidAccount
	}
	var out *domain.VaultSettings
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		seed := domain.VaultSettings{
			ID:             domain.VaultSettingsID,
			PlatformFeeBps: feeBps,
			FeeCollector:   collector,
			VaultAccount:   vault,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}
		current, err := s.settings(tx)
		out = current
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Settings returns the current fee configuration.
func (s *Service) Settings(ctx context.Context) (*domain.VaultSettings, error) {
	return s.settings(s.Ledger.Conn(ctx))
}

// GetEscrow returns the escrow held for an auction.
func (s *Service) GetEscrow(ctx context.Context, auctionID common.Hash) (*domain.Escrow, error) {
	return s.find(s.Ledger.Conn(ctx), auctionID)
}

// LockFunds pulls amount from the buyer into vault custody for an auction.
func (s *Service) LockFunds(ctx context.Context, auctionID common.Hash, buyer common.Address, amount uint64, now int64) (*domain.Escrow, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if !validation.IsSetAccount(buyer) {
		return nil, ErrInvalidAccount
	}
	var escrow *domain.Escrow
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		if _, err := s.find(tx, auctionID); err == nil {
			return ErrEscrowExists
		} else if !errors.Is(err, ErrEscrowNotFound) {
			return err
		}
		if _, err := s.auction(ctx, auctionID); err != nil {
			return err
		}
		settings, err := s.settings(tx)
		if err != nil {
			return err
		}

		balance, err := s.Custody.BalanceOf(ctx, buyer)
		if err != nil {
			return err
		}
		if balance < amount {
			return ErrInsufficientBalance
		}
		allowed, err := s.Custody.Allowance(ctx, buyer, settings.VaultAccount)
		if err != nil {
			return err
		}
		if allowed < amount {
			return ErrInsufficientAllowance
		}
		if err := s.pay(ctx, func() (bool, error) {
			return s.Custody.TransferFrom(ctx, buyer, settings.VaultAccount, amount)
		}); err != nil {
			return err
		}

		escrow = &domain.Escrow{
			AuctionID: auctionID,
			Buyer:     buyer,
			Amount:    amount,
			LockedAt:  now,
		}
		if err := tx.Create(escrow).Error; err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventFundsLocked, auctionID.Hex(), map[string]interface{}{
			"buyer":     buyer.Hex(),
			"amount":    amount,
			"locked_at": now,
		})
	})
	if err != nil {
		return nil, err
	}
	return escrow, nil
}

// ReleaseFunds pays a settled auction's escrow to the farmer and the platform
// fee to the fee collector. Both transfers happen or neither does.
func (s *Service) ReleaseFunds(ctx context.Context, auctionID common.Hash, farmer common.Address, now int64) (*domain.Escrow, error) {
	if !validation.IsSetAccount(farmer) {
		return nil, ErrInvalidAccount
	}
	var escrow *domain.Escrow
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		e, err := s.openEscrow(tx, auctionID)
		if err != nil {
			return err
		}
		a, err := s.auction(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.Status != domain.AuctionSettled {
			return ErrAuctionNotSettled
		}
		if a.HighestBidder != e.Buyer {
			return ErrBuyerNotWinner
		}
		settings, err := s.settings(tx)
		if err != nil {
			return err
		}

		fee := PlatformFee(e.Amount, settings.PlatformFeeBps)
		payout := e.Amount - fee
		if payout > 0 {
			if err := s.pay(ctx, func() (bool, error) { return s.Custody.Transfer(ctx, farmer, payout) }); err != nil {
				return err
			}
		}
		if fee > 0 {
			if err := s.pay(ctx, func() (bool, error) { return s.Custody.Transfer(ctx, settings.FeeCollector, fee) }); err != nil {
				return err
			}
		}

		e.Released = true
		e.Farmer = farmer
		e.FeeAmount = fee
		e.ClosedAt = now
		if err := tx.Model(&domain.Escrow{}).Where("auction_id = ?", auctionID).Updates(map[string]interface{}{
			"released":   true,
			"farmer":     farmer,
			"fee_amount": fee,
			"closed_at":  now,
		}).Error; err != nil {
			return err
		}
		escrow = e
		return s.Ledger.Emit(ctx, constants.EventFundsReleased, auctionID.Hex(), map[string]interface{}{
			"farmer": farmer.Hex(),
			"payout": payout,
			"fee":    fee,
		})
	})
	if err != nil {
		return nil, err
	}
	return escrow, nil
}

// RefundFunds returns the full locked amount to the buyer once the auction is
// no longer active and the buyer did not win it: the auction was cancelled,
// ended below reserve, or was won by someone else.
func (s *Service) RefundFunds(ctx context.Context, auctionID common.Hash, now int64) (*domain.Escrow, error) {
	var escrow *domain.Escrow
	err := s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		e, err := s.openEscrow(tx, auctionID)
		if err != nil {
			return err
		}
		a, err := s.auction(ctx, auctionID)
		if err != nil {
			return err
		}
		if a.IsActive(now) {
			return ErrAuctionStillActive
		}
		if !Refundable(a, e.Buyer) {
			return ErrRefundNotAllowed
		}
		if err := s.pay(ctx, func() (bool, error) { return s.Custody.Transfer(ctx, e.Buyer, e.Amount) }); err != nil {
			return err
		}

		e.Refunded = true
		e.ClosedAt = now
		if err := tx.Model(&domain.Escrow{}).Where("auction_id = ?", auctionID).Updates(map[string]interface{}{
			"refunded":  true,
			"closed_at": now,
		}).Error; err != nil {
			return err
		}
		escrow = e
		return s.Ledger.Emit(ctx, constants.EventFundsRefunded, auctionID.Hex(), map[string]interface{}{
			"buyer":  e.Buyer.Hex(),
			"amount": e.Amount,
		})
	})
	if err != nil {
		return nil, err
	}
	return escrow, nil
}

// UpdatePlatformFee changes the fee rate; only the current fee collector may.
func (s *Service) UpdatePlatformFee(ctx context.Context, caller common.Address, feeBps uint64) error {
	if feeBps > constants.MaxPlatformFeeBps {
		return ErrInvalidFee
	}
	return s.updateSettings(ctx, caller, constants.EventPlatformFeeUpdated, "platform_fee_bps", feeBps, map[string]interface{}{
		"platform_fee_bps": feeBps,
	})
}

// UpdateFeeCollector hands fee collection, and with it settings control, to another account.
func (s *Service) UpdateFeeCollector(ctx context.Context, caller, collector common.Address) error {
	if !validation.IsSetAccount(collector) {
		return ErrInvalidAccount
	}
	return s.updateSettings(ctx, caller, constants.EventFeeCollectorUpdated, "fee_collector", collector, map[string]interface{}{
		"fee_collector": collector.Hex(),
	})
}

func (s *Service) updateSettings(ctx context.Context, caller common.Address, eventType, column string, value interface{}, data map[string]interface{}) error {
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		settings, err := s.settings(tx)
		if err != nil {
			return err
		}
		if caller != settings.FeeCollector {
			return ErrNotFeeCollector
		}
		if err := tx.Model(&domain.VaultSettings{}).Where("id = ?", domain.VaultSettingsID).Update(column, value).Error; err != nil {
			return err
		}
		data["changed_by"] = caller.Hex()
		return s.Ledger.Emit(ctx, eventType, settings.VaultAccount.Hex(), data)
	})
}

// PlatformFee is floor(amount * feeBps / 10000), computed without overflow.
// feeBps must not exceed constants.BpsDenominator.
func PlatformFee(amount, feeBps uint64) uint64 {
	hi, lo := bits.Mul64(amount, feeBps)
	fee, _ := bits.Div64(hi, lo, constants.BpsDenominator)
	return fee
}

// Refundable reports whether buyer's escrow on a no-longer-active auction may
// be returned.
func Refundable(a *domain.Auction, buyer common.Address) bool {
	switch a.Status {
	case domain.AuctionCancelled:
		return true
	case domain.AuctionClosed:
		return a.HighestBidder != buyer || !a.ReserveMet()
	case domain.AuctionSettled:
		return a.HighestBidder != buyer
	}
	return false
}

// pay runs one custody movement; a refusal becomes ErrTransferFailed, which
// rolls back the whole operation.
func (s *Service) pay(ctx context.Context, move func() (bool, error)) error {
	ok, err := move()
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}
	return nil
}

func (s *Service) auction(ctx context.Context, auctionID common.Hash) (*domain.Auction, error) {
	a, err := s.Auctions.GetAuction(ctx, auctionID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) openEscrow(tx *gorm.DB, auctionID common.Hash) (*domain.Escrow, error) {
	e, err := s.find(tx, auctionID)
	if err != nil {
		return nil, err
	}
	if e.Released {
		return nil, ErrAlreadyReleased
	}
	if e.Refunded {
		return nil, ErrAlreadyRefunded
	}
	return e, nil
}

func (s *Service) find(tx *gorm.DB, auctionID common.Hash) (*domain.Escrow, error) {
	var e domain.Escrow
	if err := tx.Where("auction_id = ?", auctionID).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEscrowNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *Service) settings(tx *gorm.DB) (*domain.VaultSettings, error) {
	var row domain.VaultSettings
	if err := tx.Where("id = ?", domain.VaultSettingsID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &row, nil
}
