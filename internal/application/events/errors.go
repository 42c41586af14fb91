package events

import "harvest-backend/internal/pkg/apperr"

var ErrSubjectRequired = apperr.New(apperr.InvalidInput, "Subject is required")
