package token

import "harvest-backend/internal/pkg/apperr"

var (
	ErrInvalidAccount        = apperr.New(apperr.InvalidInput, "Account is required")
	ErrInvalidAmount         = apperr.New(apperr.InvalidInput, "Amount must be positive")
	ErrInsufficientBalance   = apperr.New(apperr.ThresholdViolation, "Insufficient token balance")
	ErrInsufficientAllowance = apperr.New(apperr.ThresholdViolation, "Insufficient token allowance")
	ErrBalanceOverflow       = apperr.New(apperr.ThresholdViolation, "Balance would overflow")
)
