package validation

import (
	"strings"

	"harvest-backend/internal/pkg/constants"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidCropType requires a non-blank crop name.
func IsValidCropType(cropType string) bool {
	return strings.TrimSpace(cropType) != ""
}

// IsValidQualityGrade enforces the 1–10 grading scale.
func IsValidQualityGrade(grade uint8) bool {
	return grade >= constants.MinQualityGrade && grade <= constants.MaxQualityGrade
}

// IsValidFeedbackScore enforces the 1–10 feedback scale.
func IsValidFeedbackScore(score uint8) bool {
	return score >= constants.MinFeedbackScore && score <= constants.MaxFeedbackScore
}

// IsValidDuration enforces the inclusive auction duration window.
func IsValidDuration(seconds int64) bool {
	return seconds >= constants.MinAuctionDuration && seconds <= constants.MaxAuctionDuration
}

// IsSetKey reports whether a 32-byte key is non-zero.
func IsSetKey(h common.Hash) bool {
	return h != (common.Hash{})
}

// IsSetAccount reports whether an account key is non-zero.
func IsSetAccount(a common.Address) bool {
	return a != (common.Address{})
}
