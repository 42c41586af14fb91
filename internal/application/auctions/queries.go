package auctions

import (
	"context"

	"harvest-backend/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// Page is one slice of the auction set in creation order.
type Page struct {
	Items  []domain.Auction `json:"items"`
	Total  int64            `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

const maxPageSize = 100

// GetAuction returns the auction or ErrAuctionNotFound.
func (s *Service) GetAuction(ctx context.Context, auctionID common.Hash) (*domain.Auction, error) {
	return s.find(s.Ledger.Conn(ctx), auctionID)
}

// GetBidHistory returns accepted bids in submission order.
func (s *Service) GetBidHistory(ctx context.Context, auctionID common.Hash) ([]domain.Bid, error) {
	if _, err := s.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	var bids []domain.Bid
	if err := s.Ledger.Conn(ctx).Where("auction_id = ?", auctionID).Order("position ASC").Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

// IsActive reports whether the auction is open and not yet expired at now.
func (s *Service) IsActive(ctx context.Context, auctionID common.Hash, now int64) (bool, error) {
	a, err := s.GetAuction(ctx, auctionID)
	if err != nil {
		return false, err
	}
	return a.IsActive(now), nil
}

// GetByFarmer returns a farmer's auctions in creation order.
func (s *Service) GetByFarmer(ctx context.Context, farmerID common.Hash) ([]domain.Auction, error) {
	var out []domain.Auction
	if err := s.Ledger.Conn(ctx).Where("farmer_id = ?", farmerID).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByBidder returns the auctions a bidder has bid on, in first-bid order.
func (s *Service) GetByBidder(ctx context.Context, bidder common.Address) ([]domain.Auction, error) {
	var out []domain.Auction
	err := s.Ledger.Conn(ctx).
		Joins(`JOIN "BidderAuctions" ON "BidderAuctions".auction_id = "Auctions".auction_id`).
		Where(`"BidderAuctions".bidder = ?`, bidder).
		Order(`"BidderAuctions".seq ASC`).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetActive returns open, unexpired auctions in creation order.
func (s *Service) GetActive(ctx context.Context, now int64) ([]domain.Auction, error) {
	var out []domain.Auction
	if err := s.Ledger.Conn(ctx).Where("status = ? AND end_time > ?", domain.AuctionOpen, now).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByStatus returns every auction in the given state, in creation order.
func (s *Service) ListByStatus(ctx context.Context, status domain.AuctionStatus) ([]domain.Auction, error) {
	var out []domain.Auction
	if err := s.Ledger.Conn(ctx).Where("status = ?", status).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpired returns open auctions whose end time has passed at now.
func (s *Service) ListExpired(ctx context.Context, now int64) ([]domain.Auction, error) {
	var out []domain.Auction
	if err := s.Ledger.Conn(ctx).Where("status = ? AND end_time <= ?", domain.AuctionOpen, now).Order("seq ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// List pages over all auctions in creation order.
func (s *Service) List(ctx context.Context, offset, limit int) (*Page, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	db := s.Ledger.Conn(ctx)
	var total int64
	if err := db.Model(&domain.Auction{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var items []domain.Auction
	if err := db.Order("seq ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}
