package keeper

import (
	"context"
	"errors"
	"fmt"

	"harvest-backend/internal/application/reputation"
	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"
	"harvest-backend/internal/pkg/apperr"
	"harvest-backend/internal/pkg/validation"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

type AuctionLedger interface {
	ListExpired(ctx context.Context, now int64) ([]domain.Auction, error)
	ListByStatus(ctx context.Context, status domain.AuctionStatus) ([]domain.Auction, error)
	CloseAuction(ctx context.Context, auctionID common.Hash, now int64) error
	SettleAuction(ctx context.Context, auctionID common.Hash) error
}

type Vault interface {
	GetEscrow(ctx context.Context, auctionID common.Hash) (*domain.Escrow, error)
	ReleaseFunds(ctx context.Context, auctionID common.Hash, farmer common.Address, now int64) (*domain.Escrow, error)
	RefundFunds(ctx context.Context, auctionID common.Hash, now int64) (*domain.Escrow, error)
}

type SaleRecorder interface {
	RecordSale(ctx context.Context, farmerID common.Hash, buyer common.Address, auctionID common.Hash, amount uint64, now int64) error
}

// SettlementJob drives auctions through their terminal states: it closes
// expired auctions, settles those whose reserve is met, pays the winning
// escrow to the seller account together with the sale record, and refunds
// escrows that can no longer win. A failing auction is logged and skipped.
type SettlementJob struct {
	Ledger     *database.Ledger
	Auctions   AuctionLedger
	Vault      Vault
	Reputation SaleRecorder
}

func (j *SettlementJob) Name() string {
	return "auction_settlement"
}

func (j *SettlementJob) Execute(ctx context.Context, now int64) Report {
	report := newReport(now)
	j.closeExpired(ctx, now, &report)
	j.settleClosed(ctx, now, &report)
	j.payOutSettled(ctx, now, &report)
	j.refundCancelled(ctx, now, &report)
	return report
}

func (j *SettlementJob) closeExpired(ctx context.Context, now int64, report *Report) {
	expired, err := j.Auctions.ListExpired(ctx, now)
	if err != nil {
		j.fail(report, "list expired", common.Hash{}, err)
		return
	}
	for _, a := range expired {
		if err := j.Auctions.CloseAuction(ctx, a.ID, now); err != nil {
			j.fail(report, "close", a.ID, err)
			continue
		}
		report.Closed++
	}
}

func (j *SettlementJob) settleClosed(ctx context.Context, now int64, report *Report) {
	closed, err := j.Auctions.ListByStatus(ctx, domain.AuctionClosed)
	if err != nil {
		j.fail(report, "list closed", common.Hash{}, err)
		return
	}
	for _, a := range closed {
		if !a.ReserveMet() {
			j.refund(ctx, a, now, report)
			continue
		}
		if err := j.Auctions.SettleAuction(ctx, a.ID); err != nil {
			j.fail(report, "settle", a.ID, err)
			continue
		}
		report.Settled++
	}
}

func (j *SettlementJob) payOutSettled(ctx context.Context, now int64, report *Report) {
	settled, err := j.Auctions.ListByStatus(ctx, domain.AuctionSettled)
	if err != nil {
		j.fail(report, "list settled", common.Hash{}, err)
		return
	}
	for _, a := range settled {
		e, err := j.Vault.GetEscrow(ctx, a.ID)
		if apperr.IsKind(err, apperr.NotFound) {
			continue
		}
		if err != nil {
			j.fail(report, "load escrow", a.ID, err)
			continue
		}
		if !e.Open() {
			continue
		}
		if e.Buyer != a.HighestBidder {
			j.refund(ctx, a, now, report)
			continue
		}
		if !validation.IsSetAccount(a.SellerAccount) {
			log.Warn().Str("auction_id", a.ID.Hex()).Msg("Settled auction has no seller account; escrow held")
			continue
		}
		j.release(ctx, a, e, now, report)
	}
}

// release pays the seller and records the sale in one serialized operation,
// so a sale is never counted without its payout. A sale already accounted
// elsewhere does not block the payout.
func (j *SettlementJob) release(ctx context.Context, a domain.Auction, e *domain.Escrow, now int64, report *Report) {
	recorded := false
	err := j.Ledger.Serialize(ctx, func(ctx context.Context) error {
		if _, err := j.Vault.ReleaseFunds(ctx, a.ID, a.SellerAccount, now); err != nil {
			return fmt.Errorf("release: %w", err)
		}
		err := j.Reputation.RecordSale(ctx, a.FarmerID, e.Buyer, a.ID, e.Amount, now)
		switch {
		case errors.Is(err, reputation.ErrSaleAlreadyRecorded):
			log.Info().Str("auction_id", a.ID.Hex()).Msg("Sale already recorded; releasing escrow only")
		case err != nil:
			return fmt.Errorf("record sale: %w", err)
		default:
			recorded = true
		}
		return nil
	})
	if err != nil {
		j.fail(report, "pay out", a.ID, err)
		return
	}
	report.Released++
	if recorded {
		report.SalesRecorded++
	}
}

func (j *SettlementJob) refundCancelled(ctx context.Context, now int64, report *Report) {
	cancelled, err := j.Auctions.ListByStatus(ctx, domain.AuctionCancelled)
	if err != nil {
		j.fail(report, "list cancelled", common.Hash{}, err)
		return
	}
	for _, a := range cancelled {
		j.refund(ctx, a, now, report)
	}
}

func (j *SettlementJob) refund(ctx context.Context, a domain.Auction, now int64, report *Report) {
	e, err := j.Vault.GetEscrow(ctx, a.ID)
	if apperr.IsKind(err, apperr.NotFound) {
		return
	}
	if err != nil {
		j.fail(report, "load escrow", a.ID, err)
		return
	}
	if !e.Open() {
		return
	}
	if _, err := j.Vault.RefundFunds(ctx, a.ID, now); err != nil {
		j.fail(report, "refund", a.ID, err)
		return
	}
	report.Refunded++
}

func (j *SettlementJob) fail(report *Report, step string, auctionID common.Hash, err error) {
	log.Error().Err(err).
		Str("run_id", report.RunID).
		Str("step", step).
		Str("auction_id", auctionID.Hex()).
		Msg("Keeper step failed")
	report.Errors = append(report.Errors, fmt.Sprintf("%s %s: %v", step, auctionID.Hex(), err))
}
