package reputation

import "harvest-backend/internal/pkg/apperr"

var (
	ErrSaleAlreadyRecorded = apperr.New(apperr.AlreadyExists, "Sale already recorded for this auction")
	ErrFeedbackExists      = apperr.New(apperr.AlreadyExists, "Feedback already submitted for this batch")
	ErrFarmerNotFound      = apperr.New(apperr.NotFound, "Farmer reputation not found")
	ErrBuyerNotFound       = apperr.New(apperr.NotFound, "Buyer reputation not found")
	ErrAuctionNotFound     = apperr.New(apperr.NotFound, "Auction not found")
	ErrInvalidScore        = apperr.New(apperr.InvalidInput, "Score must be between 1 and 10")
	ErrInvalidFarmer       = apperr.New(apperr.InvalidInput, "Farmer id is required")
	ErrInvalidBuyer        = apperr.New(apperr.InvalidInput, "Buyer is required")
	ErrInvalidAuction      = apperr.New(apperr.InvalidInput, "Auction id is required")
	ErrFeedbackMismatch    = apperr.New(apperr.InvalidInput, "Batch or farmer does not match the auction")
	ErrNotWinner           = apperr.New(apperr.Unauthorized, "Only the auction winner can submit feedback")
	ErrRevenueOverflow     = apperr.New(apperr.ThresholdViolation, "Accumulated amount would overflow")
)
