package keeper

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis keys for keeper run statistics. Read by the health report.
const (
	KeyRunsTotal    = "keeper:global:runs_total"
	KeyRunErrors    = "keeper:global:run_errors"
	KeyActionsTotal = "keeper:global:actions_total"
	KeyRunTimeTotal = "keeper:global:run_time_total"
	KeyStartTime    = "keeper:global:start_time"
	KeyLastRun      = "keeper:global:last_run"
	KeyErrorLog     = "keeper:global:error_log"
)

const errorLogSize = 50

// Stats counts keeper runs in Redis so every replica reports the same numbers.
type Stats struct {
	Rdb *redis.Client
}

// MarkStart sets the start time if no earlier process set it.
func (s *Stats) MarkStart(ctx context.Context, at time.Time) {
	if s == nil || s.Rdb == nil {
		return
	}
	_, _ = s.Rdb.SetNX(ctx, KeyStartTime, at.UnixMilli(), 0).Result()
}

// Record adds one run to the counters. Redis failures are logged only.
func (s *Stats) Record(ctx context.Context, report Report) {
	if s == nil || s.Rdb == nil {
		return
	}
	last, _ := json.Marshal(map[string]interface{}{
		"time":    time.Unix(report.Now, 0).UTC(),
		"run_id":  report.RunID,
		"job":     report.Job,
		"actions": report.Actions(),
		"errors":  len(report.Errors),
	})

	pipe := s.Rdb.TxPipeline()
	pipe.Incr(ctx, KeyRunsTotal)
	pipe.IncrBy(ctx, KeyActionsTotal, int64(report.Actions()))
	pipe.IncrByFloat(ctx, KeyRunTimeTotal, float64(report.Duration.Milliseconds()))
	pipe.Set(ctx, KeyLastRun, last, 0)
	if report.Failed() {
		pipe.Incr(ctx, KeyRunErrors)
		for _, msg := range report.Errors {
			entry, _ := json.Marshal(map[string]interface{}{
				"time":    time.Unix(report.Now, 0).UTC(),
				"run_id":  report.RunID,
				"message": msg,
			})
			pipe.LPush(ctx, KeyErrorLog, entry)
		}
		pipe.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("Keeper stats not recorded")
	}
}

// Reset clears the counters and restarts the uptime clock.
func (s *Stats) Reset(ctx context.Context, at time.Time) error {
	if s == nil || s.Rdb == nil {
		return nil
	}
	if err := s.Rdb.Del(ctx, KeyRunsTotal, KeyRunErrors, KeyActionsTotal, KeyRunTimeTotal, KeyLastRun, KeyErrorLog).Err(); err != nil {
		return err
	}
	return s.Rdb.Set(ctx, KeyStartTime, at.UnixMilli(), 0).Err()
}
