package token

import (
	"context"

	"harvest-backend/internal/pkg/apperr"

	"github.com/ethereum/go-ethereum/common"
)

// Account is the token ledger seen from one holder, typically the escrow
// vault. Rejected transfers report false instead of an error so the caller
// decides how a refusal surfaces; storage failures are still errors.
type Account struct {
	Tokens *Service
	Holder common.Address
}

func (a *Account) BalanceOf(ctx context.Context, account common.Address) (uint64, error) {
	return a.Tokens.BalanceOf(ctx, account)
}

func (a *Account) Allowance(ctx context.Context, owner, spender common.Address) (uint64, error) {
	return a.Tokens.Allowance(ctx, owner, spender)
}

// TransferFrom pulls amount from an owner who approved Holder as spender.
func (a *Account) TransferFrom(ctx context.Context, from, to common.Address, amount uint64) (bool, error) {
	return refused(a.Tokens.TransferFrom(ctx, a.Holder, from, to, amount))
}

// Transfer pays amount out of Holder's balance.
func (a *Account) Transfer(ctx context.Context, to common.Address, amount uint64) (bool, error) {
	return refused(a.Tokens.Transfer(ctx, a.Holder, to, amount))
}

func refused(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if apperr.KindOf(err) != "" {
		return false, nil
	}
	return false, err
}
