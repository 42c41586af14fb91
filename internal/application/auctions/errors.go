package auctions

import (
	"harvest-backend/internal/domain"
	"harvest-backend/internal/pkg/apperr"
)

var (
	ErrAuctionExists   = apperr.New(apperr.AlreadyExists, "Auction already exists")
	ErrBatchAuctioned  = apperr.New(apperr.AlreadyExists, "Batch already has an auction")
	ErrBatchNotFound   = apperr.New(apperr.NotFound, "Batch not found")
	ErrInvalidDuration = apperr.New(apperr.InvalidInput, "Auction duration must be between 15 minutes and 7 days")
	ErrInvalidPrice    = apperr.New(apperr.InvalidInput, "Starting price must be positive and not above the reserve price")
	ErrInvalidID       = apperr.New(apperr.InvalidInput, "Auction id is required")
	ErrInvalidBidder   = apperr.New(apperr.InvalidInput, "Bidder is required")
	ErrAuctionNotFound = apperr.New(apperr.NotFound, "Auction not found")
	ErrNotOpen         = domain.ErrAuctionNotOpen
	ErrNotClosed       = domain.ErrAuctionNotClosed
	ErrAlreadyEnded    = apperr.New(apperr.InvalidState, "Auction has ended")
	ErrNotEnded        = apperr.New(apperr.InvalidState, "Auction has not ended")
	ErrBidTooLow       = apperr.New(apperr.ThresholdViolation, "Bid too low")
	ErrReserveNotMet   = apperr.New(apperr.ThresholdViolation, "Reserve price not met")
	ErrBidTooLarge     = apperr.New(apperr.ThresholdViolation, "Bid exceeds the largest storable amount")
	ErrHasBids         = apperr.New(apperr.InvalidState, "Auction has bids")
	ErrNotSeller       = apperr.New(apperr.Unauthorized, "Only the selling farmer can cancel this auction")
	ErrNotBatchOwner   = apperr.New(apperr.Unauthorized, "Only the batch's farmer can auction it")
)
