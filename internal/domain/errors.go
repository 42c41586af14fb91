package domain

import "harvest-backend/internal/pkg/apperr"

var (
	ErrAuctionNotOpen   = apperr.New(apperr.InvalidState, "Auction is not open")
	ErrAuctionNotClosed = apperr.New(apperr.InvalidState, "Auction is not closed")
)
