//go:build integration

package health

import (
	"context"
	"os"
	"testing"
	"time"

	"harvest-backend/internal/keeper"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Needs a disposable Redis: the keeper counters are reset.
// go test -tags=integration ./internal/health/... -run TestCollectHealth_RealRedis -v
func TestCollectHealth_RealRedis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	ctx := context.Background()

	stats := &keeper.Stats{Rdb: rdb}
	require.NoError(t, stats.Reset(ctx, time.Now()))
	stats.Record(ctx, keeper.Report{RunID: "integration", Now: time.Now().Unix(), Closed: 1})

	result := CollectHealth(ctx, rdb, nil)
	require.Equal(t, "connected", result.Dependencies["redis"].Status)
	require.NotNil(t, result.Dependencies["redis"].PingMs)
	require.Equal(t, 1, result.Keeper.TotalRuns)
	require.Equal(t, 1, result.Keeper.Actions)
}
