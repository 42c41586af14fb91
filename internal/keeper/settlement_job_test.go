package keeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"harvest-backend/internal/application/auctions"
	"harvest-backend/internal/application/batches"
	"harvest-backend/internal/application/escrow"
	"harvest-backend/internal/application/reputation"
	"harvest-backend/internal/application/token"
	"harvest-backend/internal/domain"
	"harvest-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 int64 = 1722470400

var (
	farmerID  = domain.DeriveID("farmer", "F1")
	seller    = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	buyer1    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	buyer2    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	collector = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	vault     = common.HexToAddress("0x00000000000000000000000000000000000000e5")
)

type marketplace struct {
	batches    *batches.Service
	auctions   *auctions.Service
	tokens     *token.Service
	vault      *escrow.Service
	reputation *reputation.Service
	job        *SettlementJob
}

func setupMarketplace(t *testing.T) *marketplace {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	ledger := &database.Ledger{DB: db}

	m := &marketplace{}
	m.batches = &batches.Service{Ledger: ledger}
	m.auctions = &auctions.Service{Ledger: ledger, Batches: m.batches}
	m.tokens = &token.Service{Ledger: ledger}
	m.vault = &escrow.Service{
		Ledger:   ledger,
		Auctions: m.auctions,
		Custody:  &token.Account{Tokens: m.tokens, Holder: vault},
	}
	m.reputation = &reputation.Service{Ledger: ledger, Auctions: m.auctions}
	m.job = &SettlementJob{Ledger: ledger, Auctions: m.auctions, Vault: m.vault, Reputation: m.reputation}

	_, err = m.vault.EnsureSettings(context.Background(), 200, collector, vault)
	require.NoError(t, err)
	return m
}

// listAndBid registers a batch, opens a one-hour auction and, if bid > 0,
// has bidder bid and lock that amount.
func (m *marketplace) listAndBid(t *testing.T, name string, reserve uint64, sellerAccount, bidder common.Address, bid uint64) common.Hash {
	ctx := context.Background()
	batchID := domain.DeriveID("batch", name)
	_, err := m.batches.Register(ctx, batches.RegisterBatchInput{
		ID:           batchID,
		HarvestedAt:  t0 - 86400,
		CropType:     "tea",
		WeightGrams:  30000,
		QualityGrade: 8,
		FarmerID:     farmerID,
	})
	require.NoError(t, err)
	a, err := m.auctions.CreateAuction(ctx, auctions.CreateAuctionInput{
		ID:              domain.DeriveID("auction", name),
		BatchID:         batchID,
		FarmerID:        farmerID,
		SellerAccount:   sellerAccount,
		DurationSeconds: 3600,
		StartingPrice:   10000,
		ReservePrice:    reserve,
	}, t0)
	require.NoError(t, err)
	if bid > 0 {
		m.lock(t, a.ID, bidder, bid)
		_, err = m.auctions.PlaceBid(ctx, a.ID, bidder, bid, t0+60)
		require.NoError(t, err)
	}
	return a.ID
}

func (m *marketplace) lock(t *testing.T, auctionID common.Hash, bidder common.Address, amount uint64) {
	ctx := context.Background()
	require.NoError(t, m.tokens.Mint(ctx, bidder, amount))
	require.NoError(t, m.tokens.Approve(ctx, bidder, vault, amount))
	_, err := m.vault.LockFunds(ctx, auctionID, bidder, amount, t0+30)
	require.NoError(t, err)
}

func (m *marketplace) balance(t *testing.T, account common.Address) uint64 {
	b, err := m.tokens.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return b
}

func fixedRunner(t *testing.T, stats *Stats, at int64) *Runner {
	r := NewRunner(context.Background(), stats)
	r.clock = func() time.Time { return time.Unix(at, 0) }
	return r
}

func TestSettlementJob_EndToEnd(t *testing.T) {
	m := setupMarketplace(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	won := m.listAndBid(t, "A1", 12000, seller, buyer1, 14000)
	short := m.listAndBid(t, "A2", 15000, seller, buyer2, 11000)
	withdrawn := m.listAndBid(t, "A3", 12000, seller, common.Address{}, 0)
	m.lock(t, withdrawn, buyer2, 5000)
	require.NoError(t, m.auctions.CancelAuction(ctx, withdrawn, farmerID))

	runner := fixedRunner(t, &Stats{Rdb: rdb}, t0+3600)
	report := runner.RunOnce(ctx, m.job)
	assert.Empty(t, report.Errors)
	assert.Equal(t, "auction_settlement", report.Job)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Closed)
	assert.Equal(t, 1, report.Settled)
	assert.Equal(t, 1, report.Released)
	assert.Equal(t, 2, report.Refunded)
	assert.Equal(t, 1, report.SalesRecorded)

	a, err := m.auctions.GetAuction(ctx, won)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionSettled, a.Status)
	a, err = m.auctions.GetAuction(ctx, short)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionClosed, a.Status)

	assert.Equal(t, uint64(13720), m.balance(t, seller))
	assert.Equal(t, uint64(280), m.balance(t, collector))
	assert.Equal(t, uint64(0), m.balance(t, buyer1))
	assert.Equal(t, uint64(16000), m.balance(t, buyer2))
	assert.Equal(t, uint64(0), m.balance(t, vault))

	farmer, err := m.reputation.GetFarmer(ctx, farmerID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), farmer.TotalSales)
	assert.Equal(t, uint64(14000), farmer.TotalRevenue)

	again := runner.RunOnce(ctx, m.job)
	assert.Empty(t, again.Errors)
	assert.Zero(t, again.Actions())

	runs, err := rdb.Get(ctx, KeyRunsTotal).Result()
	require.NoError(t, err)
	assert.Equal(t, "2", runs)
	actions, err := rdb.Get(ctx, KeyActionsTotal).Result()
	require.NoError(t, err)
	assert.Equal(t, "7", actions)
	_, err = rdb.Get(ctx, KeyRunErrors).Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSettlementJob_HoldsEscrowWithoutSellerAccount(t *testing.T) {
	m := setupMarketplace(t)
	ctx := context.Background()
	id := m.listAndBid(t, "A1", 12000, common.Address{}, buyer1, 13000)

	report := fixedRunner(t, nil, t0+3600).RunOnce(ctx, m.job)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Settled)
	assert.Zero(t, report.Released)

	e, err := m.vault.GetEscrow(ctx, id)
	require.NoError(t, err)
	assert.True(t, e.Open())
	assert.Equal(t, uint64(13000), m.balance(t, vault))
}

func TestSettlementJob_ReleasesWhenSaleAlreadyRecorded(t *testing.T) {
	m := setupMarketplace(t)
	ctx := context.Background()
	id := m.listAndBid(t, "A1", 12000, seller, buyer1, 14000)
	require.NoError(t, m.auctions.CloseAuction(ctx, id, t0+3600))
	require.NoError(t, m.auctions.SettleAuction(ctx, id))
	require.NoError(t, m.reputation.RecordSale(ctx, farmerID, buyer1, id, 14000, t0+3600))

	report := fixedRunner(t, nil, t0+3700).RunOnce(ctx, m.job)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Released)
	assert.Zero(t, report.SalesRecorded)

	e, err := m.vault.GetEscrow(ctx, id)
	require.NoError(t, err)
	assert.True(t, e.Released)
	assert.Equal(t, uint64(13720), m.balance(t, seller))
	assert.Equal(t, uint64(280), m.balance(t, collector))

	farmer, err := m.reputation.GetFarmer(ctx, farmerID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), farmer.TotalSales)

	again := fixedRunner(t, nil, t0+3800).RunOnce(ctx, m.job)
	assert.Empty(t, again.Errors)
	assert.Zero(t, again.Actions())
}

type brokenVault struct {
	Vault
}

func (brokenVault) RefundFunds(context.Context, common.Hash, int64) (*domain.Escrow, error) {
	return nil, errors.New("custody offline")
}

func TestSettlementJob_FailuresAreReportedAndCounted(t *testing.T) {
	m := setupMarketplace(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	m.listAndBid(t, "A1", 15000, seller, buyer1, 11000)
	m.job.Vault = brokenVault{Vault: m.vault}

	report := fixedRunner(t, &Stats{Rdb: rdb}, t0+3600).RunOnce(ctx, m.job)
	assert.Equal(t, 1, report.Closed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "custody offline")

	failed, err := rdb.Get(ctx, KeyRunErrors).Result()
	require.NoError(t, err)
	assert.Equal(t, "1", failed)
	entries, err := rdb.LRange(ctx, KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunner_AddRejectsBadSpec(t *testing.T) {
	r := NewRunner(context.Background(), nil)
	_, err := r.Add("not a schedule", &SettlementJob{})
	assert.Error(t, err)
	_, err = r.Add("@every 30s", &SettlementJob{})
	assert.NoError(t, err)
}

func TestStats_Reset(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()
	stats := &Stats{Rdb: rdb}

	stats.MarkStart(ctx, time.UnixMilli(1000))
	stats.MarkStart(ctx, time.UnixMilli(2000))
	start, err := rdb.Get(ctx, KeyStartTime).Result()
	require.NoError(t, err)
	assert.Equal(t, "1000", start)

	stats.Record(ctx, Report{RunID: "r1", Now: t0, Closed: 3})
	require.NoError(t, stats.Reset(ctx, time.UnixMilli(5000)))
	_, err = rdb.Get(ctx, KeyRunsTotal).Result()
	assert.ErrorIs(t, err, redis.Nil)
	start, err = rdb.Get(ctx, KeyStartTime).Result()
	require.NoError(t, err)
	assert.Equal(t, "5000", start)
}
