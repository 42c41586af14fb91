package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// FarmerReputation accumulates a farmer's sale history. AverageQuality is the
// running mean feedback score multiplied by constants.QualityScale.
type FarmerReputation struct {
	FarmerID             common.Hash `gorm:"column:farmer_id;primaryKey" json:"farmer_id"`
	TotalSales           uint64      `gorm:"column:total_sales;not null;default:0" json:"total_sales"`
	SuccessfulDeliveries uint64      `gorm:"column:successful_deliveries;not null;default:0" json:"successful_deliveries"`
	AverageQuality       uint64      `gorm:"column:average_quality;not null;default:0" json:"average_quality"`
	FeedbackCount        uint64      `gorm:"column:feedback_count;not null;default:0" json:"feedback_count"`
	TotalRevenue         uint64      `gorm:"column:total_revenue;not null;default:0" json:"total_revenue"`
	RegisteredAt         int64       `gorm:"column:registered_at;not null" json:"registered_at"`
	Verified             bool        `gorm:"column:verified;not null;default:false" json:"verified"`
}

func (FarmerReputation) TableName() string {
	return "FarmerReputations"
}

// BuyerReputation accumulates a buyer's purchase history.
type BuyerReputation struct {
	Buyer          common.Address `gorm:"column:buyer;primaryKey" json:"buyer"`
	TotalPurchases uint64         `gorm:"column:total_purchases;not null;default:0" json:"total_purchases"`
	TimelyPayments uint64         `gorm:"column:timely_payments;not null;default:0" json:"timely_payments"`
	DisputesRaised uint64         `gorm:"column:disputes_raised;not null;default:0" json:"disputes_raised"`
	TotalSpent     uint64         `gorm:"column:total_spent;not null;default:0" json:"total_spent"`
	RegisteredAt   int64          `gorm:"column:registered_at;not null" json:"registered_at"`
	Verified       bool           `gorm:"column:verified;not null;default:false" json:"verified"`
}

func (BuyerReputation) TableName() string {
	return "BuyerReputations"
}

// QualityFeedback is the single feedback entry a winning buyer leaves for a batch.
type QualityFeedback struct {
	ID          uint           `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	BatchID     common.Hash    `gorm:"column:batch_id;not null;uniqueIndex:idx_feedback_batch_buyer" json:"batch_id"`
	Buyer       common.Address `gorm:"column:buyer;not null;uniqueIndex:idx_feedback_batch_buyer" json:"buyer"`
	AuctionID   common.Hash    `gorm:"column:auction_id;not null" json:"auction_id"`
	FarmerID    common.Hash    `gorm:"column:farmer_id;not null;index" json:"farmer_id"`
	Score       uint8          `gorm:"column:score;not null" json:"score"`
	Comment     string         `gorm:"column:comment" json:"comment"`
	SubmittedAt int64          `gorm:"column:submitted_at;not null" json:"submitted_at"`
}

func (QualityFeedback) TableName() string {
	return "QualityFeedback"
}

// SaleRecord marks an auction whose sale was accounted in the reputation ledger.
type SaleRecord struct {
	AuctionID  common.Hash    `gorm:"column:auction_id;primaryKey" json:"auction_id"`
	FarmerID   common.Hash    `gorm:"column:farmer_id;not null" json:"farmer_id"`
	Buyer      common.Address `gorm:"column:buyer;not null" json:"buyer"`
	Amount     uint64         `gorm:"column:amount;not null" json:"amount"`
	RecordedAt int64          `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

func (SaleRecord) TableName() string {
	return "SaleRecords"
}
