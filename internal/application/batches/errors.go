package batches

import "harvest-backend/internal/pkg/apperr"

var (
	ErrBatchExists     = apperr.New(apperr.AlreadyExists, "Batch already registered")
	ErrBatchNotFound   = apperr.New(apperr.NotFound, "Batch not found")
	ErrInvalidGrade    = apperr.New(apperr.InvalidInput, "Quality grade must be between 1 and 10")
	ErrInvalidWeight   = apperr.New(apperr.InvalidInput, "Weight must be positive and fit a signed 64-bit column")
	ErrInvalidCropType = apperr.New(apperr.InvalidInput, "Crop type is required")
	ErrInvalidBatchID  = apperr.New(apperr.InvalidInput, "Batch id is required")
	ErrInvalidFarmerID = apperr.New(apperr.InvalidInput, "Farmer id is required")
)
