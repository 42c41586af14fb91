package constants

// Ledger event types, one per state-changing operation.
const (
	EventBatchRegistered      = "BATCH_REGISTERED"
	EventBatchMediaUpdated    = "BATCH_MEDIA_UPDATED"
	EventBatchLabTestAttached = "BATCH_LAB_TEST_ATTACHED"

	EventAuctionCreated   = "AUCTION_CREATED"
	EventBidPlaced        = "BID_PLACED"
	EventAuctionClosed    = "AUCTION_CLOSED"
	EventAuctionSettled   = "AUCTION_SETTLED"
	EventAuctionCancelled = "AUCTION_CANCELLED"

	EventFundsLocked         = "FUNDS_LOCKED"
	EventFundsReleased       = "FUNDS_RELEASED"
	EventFundsRefunded       = "FUNDS_REFUNDED"
	EventPlatformFeeUpdated  = "PLATFORM_FEE_UPDATED"
	EventFeeCollectorUpdated = "FEE_COLLECTOR_UPDATED"

	EventSaleRecorded      = "SALE_RECORDED"
	EventFeedbackSubmitted = "FEEDBACK_SUBMITTED"
	EventFarmerVerified    = "FARMER_VERIFIED"
	EventBuyerVerified     = "BUYER_VERIFIED"
	EventDisputeRecorded   = "DISPUTE_RECORDED"

	EventTokensMinted      = "TOKENS_MINTED"
	EventTokensTransferred = "TOKENS_TRANSFERRED"
	EventAllowanceApproved = "ALLOWANCE_APPROVED"
)
