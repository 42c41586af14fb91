package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenBalance is the settlement-token balance of one account.
type TokenBalance struct {
	Account   common.Address `gorm:"column:account;primaryKey" json:"account"`
	Balance   uint64         `gorm:"column:balance;not null;default:0" json:"balance"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (TokenBalance) TableName() string {
	return "TokenBalances"
}

// TokenAllowance is the amount Spender may move out of Owner's balance.
type TokenAllowance struct {
	Owner     common.Address `gorm:"column:owner;primaryKey" json:"owner"`
	Spender   common.Address `gorm:"column:spender;primaryKey" json:"spender"`
	Amount    uint64         `gorm:"column:amount;not null;default:0" json:"amount"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (TokenAllowance) TableName() string {
	return "TokenAllowances"
}
