package token

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

// Service is the settlement-token ledger. Every mutation runs inside the
// shared serialized ledger, so a transfer issued by another component joins
// that component's transaction.
type Service struct {
	Ledger *database.Ledger
}

// BalanceOf returns the account balance; unknown accounts hold zero.
func (s *Service) BalanceOf(ctx context.Context, account common.Address) (uint64, error) {
	var row domain.TokenBalance
	err := s.Ledger.Conn(ctx).Where("account = ?", account).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Balance, nil
}

// Allowance returns how much spender may move out of owner's balance.
func (s *Service) Allowance(ctx context.Context, owner, spender common.Address) (uint64, error) {
	var row domain.TokenAllowance
	err := s.Ledger.Conn(ctx).Where("owner = ? AND spender = ?", owner, spender).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Amount, nil
}

// Mint credits new tokens to an account.
func (s *Service) Mint(ctx context.Context, to common.Address, amount uint64) error {
	if !validation.IsSetAccount(to) {
		return ErrInvalidAccount
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		if err := s.credit(s.Ledger.Conn(ctx), to, amount); err != nil {
			return err
		}
		return s.Ledger.Emit(ctx, constants.EventTokensMinted, to.Hex(), map[string]interface{}{
			"amount": amount,
		})
	})
}

// Approve sets (not adds to) the allowance of spender over owner's balance.
func (s *Service) Approve(ctx context.Context, owner, spender common.Address, amount uint64) error {
	if !validation.IsSetAccount(owner) || !validation.IsSetAccount(spender) {
		return ErrInvalidAccount
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		var row domain.TokenAllowance
		err := tx.Where("owner = ? AND spender = ?", owner, spender).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = domain.TokenAllowance{Owner: owner, Spender: spender, Amount: amount}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&domain.TokenAllowance{}).
				Where("owner = ? AND spender = ?", owner, spender).
				Update("amount", amount).Error; err != nil {
				return err
			}
		}
		return s.Ledger.Emit(ctx, constants.EventAllowanceApproved, owner.Hex(), map[string]interface{}{
			"spender": spender.Hex(),
			"amount":  amount,
		})
	})
}

// Transfer moves amount from one account to another.
func (s *Service) Transfer(ctx context.Context, from, to common.Address, amount uint64) error {
	if !validation.IsSetAccount(from) || !validation.IsSetAccount(to) {
		return ErrInvalidAccount
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		return s.move(ctx, from, to, amount)
	})
}

// TransferFrom moves amount out of from's balance on behalf of spender,
// consuming spender's allowance.
func (s *Service) TransferFrom(ctx context.Context, spender, from, to common.Address, amount uint64) error {
	if !validation.IsSetAccount(spender) || !validation.IsSetAccount(from) || !validation.IsSetAccount(to) {
		return ErrInvalidAccount
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	return s.Ledger.Serialize(ctx, func(ctx context.Context) error {
		tx := s.Ledger.Conn(ctx)
		allowed, err := s.Allowance(ctx, from, spender)
		if err != nil {
			return err
		}
		if allowed < amount {
			return ErrInsufficientAllowance
		}
		if err := tx.Model(&domain.TokenAllowance{}).
			Where("owner = ? AND spender = ?", from, spender).
			Update("amount", allowed-amount).Error; err != nil {
			return err
		}
		return s.move(ctx, from, to, amount)
	})
}

func (s *Service) move(ctx context.Context, from, to common.Address, amount uint64) error {
	tx := s.Ledger.Conn(ctx)
	balance, err := s.BalanceOf(ctx, from)
	if err != nil {
		return err
	}
	if balance < amount {
		return ErrInsufficientBalance
	}
	if err := tx.Model(&domain.TokenBalance{}).Where("account = ?", from).Update("balance", balance-amount).Error; err != nil {
		return err
	}
	if err := s.credit(tx, to, amount); err != nil {
		return err
	}
	return s.Ledger.Emit(ctx, constants.EventTokensTransferred, from.Hex(), map[string]interface{}{
		"to":     to.Hex(),
		"amount": amount,
	})
}

// Balances live in signed BIGINT columns.
func (s *Service) credit(tx *gorm.DB, account common.Address, amount uint64) error {
	if amount > math.MaxInt64 {
		return ErrBalanceOverflow
	}
	var row domain.TokenBalance
	err := tx.Where("account = ?", account).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&domain.TokenBalance{Account: account, Balance: amount}).Error
	}
	if err != nil {
		return err
	}
	if row.Balance > math.MaxInt64-amount {
		return ErrBalanceOverflow
	}
	return tx.Model(&domain.TokenBalance{}).Where("account = ?", account).Update("balance", row.Balance+amount).Error
}
