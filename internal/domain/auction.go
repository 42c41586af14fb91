package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AuctionStatus is the lifecycle state of an auction:
// open -> closed -> settled, or open -> cancelled.
type AuctionStatus string

const (
	AuctionOpen      AuctionStatus = "open"
	AuctionClosed    AuctionStatus = "closed"
	AuctionSettled   AuctionStatus = "settled"
	AuctionCancelled AuctionStatus = "cancelled"
)

// Close returns the status after closing, or ErrAuctionNotOpen.
func (s AuctionStatus) Close() (AuctionStatus, error) {
	if s != AuctionOpen {
		return s, ErrAuctionNotOpen
	}
	return AuctionClosed, nil
}

// Settle returns the status after settlement, or ErrAuctionNotClosed.
func (s AuctionStatus) Settle() (AuctionStatus, error) {
	if s != AuctionClosed {
		return s, ErrAuctionNotClosed
	}
	return AuctionSettled, nil
}

// Cancel returns the status after cancellation, or ErrAuctionNotOpen.
func (s AuctionStatus) Cancel() (AuctionStatus, error) {
	if s != AuctionOpen {
		return s, ErrAuctionNotOpen
	}
	return AuctionCancelled, nil
}

// Terminal reports whether no further transition is possible.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionSettled || s == AuctionCancelled
}

// Auction is a time-bound sale of one batch. Rows are never deleted.
type Auction struct {
	ID               common.Hash    `gorm:"column:auction_id;primaryKey" json:"auction_id"`
	Seq              int64          `gorm:"column:seq;not null;index" json:"seq"`
	BatchID          common.Hash    `gorm:"column:batch_id;not null;uniqueIndex" json:"batch_id"`
	FarmerID         common.Hash    `gorm:"column:farmer_id;not null;index" json:"farmer_id"`
	SellerAccount    common.Address `gorm:"column:seller_account" json:"seller_account"`
	StartTime        int64          `gorm:"column:start_time;not null" json:"start_time"`
	EndTime          int64          `gorm:"column:end_time;not null" json:"end_time"`
	StartingPrice    uint64         `gorm:"column:starting_price;not null" json:"starting_price"`
	ReservePrice     uint64         `gorm:"column:reserve_price;not null" json:"reserve_price"`
	HighestBid       uint64         `gorm:"column:highest_bid;not null;default:0" json:"highest_bid"`
	HighestBidder    common.Address `gorm:"column:highest_bidder" json:"highest_bidder"`
	BidCount         int64          `gorm:"column:bid_count;not null;default:0" json:"bid_count"`
	Status           AuctionStatus  `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	DeliveryLocation string         `gorm:"column:delivery_location" json:"delivery_location"`
	CreatedAt        time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Auction) TableName() string {
	return "Auctions"
}

// IsActive reports whether bids are accepted at now.
func (a *Auction) IsActive(now int64) bool {
	return a.Status == AuctionOpen && now < a.EndTime
}

// HasBids reports whether any bid was accepted.
func (a *Auction) HasBids() bool {
	return a.HighestBid > 0
}

// ReserveMet reports whether the highest bid reaches the reserve price.
func (a *Auction) ReserveMet() bool {
	return a.HighestBid >= a.ReservePrice
}

// MinimumNextBid is the smallest amount the next bid may carry.
func (a *Auction) MinimumNextBid(increment uint64) uint64 {
	if !a.HasBids() {
		return a.StartingPrice
	}
	return a.HighestBid + increment
}

// Bid is one accepted bid. Position is 1-based within the auction.
type Bid struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	AuctionID common.Hash    `gorm:"column:auction_id;not null;uniqueIndex:idx_bid_position" json:"auction_id"`
	Position  int64          `gorm:"column:position;not null;uniqueIndex:idx_bid_position" json:"position"`
	Bidder    common.Address `gorm:"column:bidder;not null;index" json:"bidder"`
	Amount    uint64         `gorm:"column:amount;not null" json:"amount"`
	PlacedAt  int64          `gorm:"column:placed_at;not null" json:"placed_at"`
}

func (Bid) TableName() string {
	return "Bids"
}

// BidderAuction indexes the auctions a bidder took part in, once per pair.
type BidderAuction struct {
	Bidder    common.Address `gorm:"column:bidder;primaryKey" json:"bidder"`
	AuctionID common.Hash    `gorm:"column:auction_id;primaryKey" json:"auction_id"`
	JoinedAt  int64          `gorm:"column:joined_at;not null" json:"joined_at"`
	Seq       int64          `gorm:"column:seq;not null" json:"seq"`
}

func (BidderAuction) TableName() string {
	return "BidderAuctions"
}
