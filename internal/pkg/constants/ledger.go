package constants

// Auction duration bounds in seconds (inclusive).
const (
	MinAuctionDuration int64 = 15 * 60
	MaxAuctionDuration int64 = 7 * 24 * 60 * 60
)

// Batch quality grade bounds (inclusive).
const (
	MinQualityGrade = 1
	MaxQualityGrade = 10
)

// Feedback score bounds (inclusive). Averages are stored multiplied by QualityScale.
const (
	MinFeedbackScore = 1
	MaxFeedbackScore = 10
	QualityScale     = 100
)

const (
	// BpsDenominator is the basis-point base for fee arithmetic.
	BpsDenominator uint64 = 10000
	// MaxPlatformFeeBps caps the platform fee at 10%.
	MaxPlatformFeeBps uint64 = 1000

	DefaultPlatformFeeBps  uint64 = 200
	DefaultMinBidIncrement uint64 = 100
)

// Reputation volume caps.
const (
	FarmerVolumeCap uint64 = 100
	BuyerVolumeCap  uint64 = 50
)
