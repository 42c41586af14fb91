package escrow

import "harvest-backend/internal/pkg/apperr"

var (
	ErrEscrowExists          = apperr.New(apperr.AlreadyExists, "Escrow already exists for this auction")
	ErrEscrowNotFound        = apperr.New(apperr.NotFound, "Escrow not found")
	ErrAuctionNotFound       = apperr.New(apperr.NotFound, "Auction not found")
	ErrSettingsNotFound      = apperr.New(apperr.NotFound, "Vault settings not initialized")
	ErrInvalidAmount         = apperr.New(apperr.InvalidInput, "Amount must be positive")
	ErrInvalidAccount        = apperr.New(apperr.InvalidInput, "Account is required")
	ErrInsufficientBalance   = apperr.New(apperr.ThresholdViolation, "Insufficient balance")
	ErrInsufficientAllowance = apperr.New(apperr.ThresholdViolation, "Insufficient allowance")
	ErrInvalidFee            = apperr.New(apperr.ThresholdViolation, "Platform fee cannot exceed 10%")
	ErrAlreadyReleased       = apperr.New(apperr.InvalidState, "Funds already released")
	ErrAlreadyRefunded       = apperr.New(apperr.InvalidState, "Funds already refunded")
	ErrAuctionNotSettled     = apperr.New(apperr.InvalidState, "Auction not settled")
	ErrAuctionStillActive    = apperr.New(apperr.InvalidState, "Auction still active")
	ErrBuyerNotWinner        = apperr.New(apperr.InvalidState, "Escrow buyer is not the auction winner")
	ErrRefundNotAllowed      = apperr.New(apperr.Unauthorized, "Refund conditions not met")
	ErrNotFeeCollector       = apperr.New(apperr.Unauthorized, "Only the fee collector can change vault settings")
	ErrTransferFailed        = apperr.New(apperr.TransferFailed, "Token transfer failed")
)
