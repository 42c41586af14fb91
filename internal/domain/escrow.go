package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Escrow holds one buyer's funds for one auction. Released and Refunded are
// mutually exclusive and each is set at most once; Amount never changes.
type Escrow struct {
	AuctionID common.Hash    `gorm:"column:auction_id;primaryKey" json:"auction_id"`
	Buyer     common.Address `gorm:"column:buyer;not null;index" json:"buyer"`
	Farmer    common.Address `gorm:"column:farmer" json:"farmer"`
	Amount    uint64         `gorm:"column:amount;not null" json:"amount"`
	FeeAmount uint64         `gorm:"column:fee_amount;not null;default:0" json:"fee_amount"`
	LockedAt  int64          `gorm:"column:locked_at;not null" json:"locked_at"`
	Released  bool           `gorm:"column:released;not null;default:false" json:"released"`
	Refunded  bool           `gorm:"column:refunded;not null;default:false" json:"refunded"`
	ClosedAt  int64          `gorm:"column:closed_at;not null;default:0" json:"closed_at"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Escrow) TableName() string {
	return "Escrows"
}

// Open reports whether the escrow still holds its funds.
func (e *Escrow) Open() bool {
	return !e.Released && !e.Refunded
}

// VaultSettingsID is the primary key of the single settings row.
const VaultSettingsID = 1

// VaultSettings is the mutable fee configuration of the escrow vault.
type VaultSettings struct {
	ID             uint           `gorm:"column:id;primaryKey" json:"-"`
	PlatformFeeBps uint64         `gorm:"column:platform_fee_bps;not null" json:"platform_fee_bps"`
	FeeCollector   common.Address `gorm:"column:fee_collector;not null" json:"fee_collector"`
	VaultAccount   common.Address `gorm:"column:vault_account;not null" json:"vault_account"`
	UpdatedAt      time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (VaultSettings) TableName() string {
	return "VaultSettings"
}
