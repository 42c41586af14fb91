package app

import (
	"context"
	"testing"
	"time"

	"harvest-backend/internal/application/batches"
	"harvest-backend/internal/application/policies"
	"harvest-backend/internal/config"
	"harvest-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(redisURL string) *config.Config {
	return &config.Config{
		Env:               "test",
		DatabaseURL:       ":memory:",
		RedisURL:          redisURL,
		EventChannel:      "harvest:events",
		PlatformFeeBps:    200,
		FeeCollector:      common.HexToAddress("0xc0"),
		VaultAccount:      common.HexToAddress("0xe5"),
		MinBidIncrement:   100,
		GovernanceAddress: common.HexToAddress("0xaa"),
		KeeperSchedule:    "@every 30s",
	}
}

func TestBuild_WiresComponents(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	a, err := Build(ctx, testConfig("redis://"+mr.Addr()))
	require.NoError(t, err)
	defer a.Close()

	settings, err := a.Vault.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), settings.PlatformFeeBps)

	_, err = a.Batches.Register(ctx, batches.RegisterBatchInput{
		ID:           domain.DeriveID("batch", "B1"),
		HarvestedAt:  1722470400,
		CropType:     "cocoa",
		WeightGrams:  1000,
		QualityGrade: 7,
		FarmerID:     domain.DeriveID("farmer", "F1"),
	})
	require.NoError(t, err)
	got, err := a.Events.ListSince(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	report := a.Health(ctx)
	assert.Equal(t, "ok", report.Status)

	runner, err := a.Keeper(ctx)
	require.NoError(t, err)
	run := runner.RunOnce(ctx, a.Settlement)
	assert.Empty(t, run.Errors)
	assert.Equal(t, 1, a.Health(ctx).Keeper.TotalRuns)

	require.NoError(t, a.ResetStats(ctx, time.Now()))
	assert.Equal(t, 0, a.Health(ctx).Keeper.TotalRuns)
}

func TestBuild_WithoutRedisOrVault(t *testing.T) {
	cfg := testConfig("")
	cfg.VaultAccount = common.Address{}
	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Rdb)
	assert.Equal(t, "issue", a.Health(context.Background()).Status)
}

func TestBuild_BadSchedule(t *testing.T) {
	cfg := testConfig("")
	cfg.KeeperSchedule = "whenever"
	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Keeper(context.Background())
	assert.Error(t, err)
}

func TestGovernance(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("ops"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := testConfig("")
	cfg.GovernanceTokenHash = string(hash)
	auth := Governance(cfg)

	assert.NoError(t, auth.Authorize(ctx, policies.ActionVerifyFarmer, policies.Caller{Account: cfg.GovernanceAddress}))
	assert.NoError(t, auth.Authorize(ctx, policies.ActionVerifyFarmer, policies.Caller{Capability: "ops"}))
	assert.Error(t, auth.Authorize(ctx, policies.ActionVerifyFarmer, policies.Caller{Account: common.HexToAddress("0xbb")}))

	none := Governance(&config.Config{})
	assert.Error(t, none.Authorize(ctx, policies.ActionVerifyBuyer, policies.Caller{Account: cfg.GovernanceAddress}))
}

func TestKeeper_StartStop(t *testing.T) {
	a, err := Build(context.Background(), testConfig(""))
	require.NoError(t, err)
	defer a.Close()

	runner, err := a.Keeper(context.Background())
	require.NoError(t, err)
	runner.Start()
	time.Sleep(10 * time.Millisecond)
	runner.Stop()
}
