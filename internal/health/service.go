package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"harvest-backend/internal/keeper"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

type CollectResult struct {
	Status       string                   `json:"status"`
	Runtime      RuntimeInfo              `json:"runtime"`
	Keeper       KeeperInfo               `json:"keeper"`
	Dependencies map[string]DepStatus     `json:"dependencies"`
	RecentErrors []map[string]interface{} `json:"recentErrors"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	Alloc    int `json:"alloc"`
	HeapUsed int `json:"heapUsed"`
}

type KeeperInfo struct {
	TotalRuns    int         `json:"totalRuns"`
	FailedRuns   int         `json:"failedRuns"`
	Actions      int         `json:"actions"`
	SuccessRate  string      `json:"successRate"`
	AvgRunTimeMs interface{} `json:"avgRunTimeMs"`
	LastRun      interface{} `json:"lastRun"`
}

type DepStatus struct {
	Status string      `json:"status"`
	PingMs interface{} `json:"pingMs"`
}

// CollectHealth gathers dependency status and keeper statistics from Redis.
func CollectHealth(ctx context.Context, rdb *redis.Client, db DBPinger) CollectResult {
	result := CollectResult{
		Dependencies: make(map[string]DepStatus),
	}

	dbStatus := "disconnected"
	var dbPingMs *int64
	if db != nil {
		start := time.Now()
		if err := db.Ping(); err == nil {
			ms := time.Since(start).Milliseconds()
			dbPingMs = &ms
			dbStatus = "connected"
		} else {
			dbStatus = "error"
		}
	}
	result.Dependencies["database"] = DepStatus{Status: dbStatus, PingMs: dbPingMs}

	redisStatus := "disconnected"
	var redisPingMs *int64
	stats := KeeperInfo{AvgRunTimeMs: 0, SuccessRate: "100"}
	startTimeMs := time.Now().UnixMilli()

	if rdb != nil {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisPingMs = &ms
			redisStatus = "connected"

			totalRuns, _ := rdb.Get(ctx, keeper.KeyRunsTotal).Result()
			failedRuns, _ := rdb.Get(ctx, keeper.KeyRunErrors).Result()
			actions, _ := rdb.Get(ctx, keeper.KeyActionsTotal).Result()
			totalTime, _ := rdb.Get(ctx, keeper.KeyRunTimeTotal).Result()
			startTimeStr, _ := rdb.Get(ctx, keeper.KeyStartTime).Result()
			lastRunStr, _ := rdb.Get(ctx, keeper.KeyLastRun).Result()

			if startTimeStr != "" {
				if t, err := strconv.ParseInt(startTimeStr, 10, 64); err == nil {
					startTimeMs = t
				}
			}

			stats.TotalRuns, _ = strconv.Atoi(totalRuns)
			stats.FailedRuns, _ = strconv.Atoi(failedRuns)
			stats.Actions, _ = strconv.Atoi(actions)
			if stats.TotalRuns > 0 {
				ok := stats.TotalRuns - stats.FailedRuns
				stats.SuccessRate = strconv.FormatFloat(float64(ok)/float64(stats.TotalRuns)*100, 'f', 1, 64)
				timeSum, _ := strconv.ParseFloat(totalTime, 64)
				stats.AvgRunTimeMs = strconv.FormatFloat(timeSum/float64(stats.TotalRuns), 'f', 2, 64)
			}
			if lastRunStr != "" {
				var lastRun map[string]interface{}
				_ = json.Unmarshal([]byte(lastRunStr), &lastRun)
				stats.LastRun = lastRun
			}
		} else {
			redisStatus = "error"
		}
	}
	result.Dependencies["redis"] = DepStatus{Status: redisStatus, PingMs: redisPingMs}
	result.Keeper = stats
	result.RecentErrors = []map[string]interface{}{}
	if redisStatus == "connected" {
		result.RecentErrors = RecentErrors(ctx, rdb)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{Alloc: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	if dbStatus == "connected" && redisStatus == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// RecentErrors returns the latest keeper failures, newest first.
func RecentErrors(ctx context.Context, rdb *redis.Client) []map[string]interface{} {
	out := []map[string]interface{}{}
	if rdb == nil {
		return out
	}
	raw, err := rdb.LRange(ctx, keeper.KeyErrorLog, 0, -1).Result()
	if err != nil {
		return out
	}
	for _, s := range raw {
		var entry map[string]interface{}
		if json.Unmarshal([]byte(s), &entry) == nil {
			out = append(out, entry)
		}
	}
	return out
}
