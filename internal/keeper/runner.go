package keeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one periodic unit of ledger maintenance. now is the wall clock
// captured when the run starts; the ledger itself never reads a clock.
type Job interface {
	Name() string
	Execute(ctx context.Context, now int64) Report
}

// Runner schedules jobs on cron expressions. A run that is still going when
// its next tick fires causes that tick to be skipped.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
	stats   *Stats
	clock   func() time.Time
}

func NewRunner(baseCtx context.Context, stats *Stats) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		baseCtx: baseCtx,
		stats:   stats,
		clock:   time.Now,
	}
}

// Add registers job under a cron spec ("@every 30s", "0 */5 * * * *").
func (r *Runner) Add(spec string, job Job) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		r.RunOnce(r.baseCtx, job)
	})
}

// RunOnce executes job immediately and records the outcome.
func (r *Runner) RunOnce(ctx context.Context, job Job) Report {
	started := r.clock()
	report := job.Execute(ctx, started.Unix())
	report.Job = job.Name()
	report.Duration = r.clock().Sub(started)

	ev := log.Info()
	if report.Failed() {
		ev = log.Warn()
	}
	ev.Str("job", report.Job).
		Str("run_id", report.RunID).
		Int("closed", report.Closed).
		Int("settled", report.Settled).
		Int("released", report.Released).
		Int("refunded", report.Refunded).
		Int("sales_recorded", report.SalesRecorded).
		Int("errors", len(report.Errors)).
		Dur("duration", report.Duration).
		Msg("Keeper run finished")

	if r.stats != nil {
		r.stats.Record(ctx, report)
	}
	return report
}

func (r *Runner) Start() {
	log.Info().Int("jobs", len(r.cron.Entries())).Msg("Keeper started")
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Keeper stopped")
}
