package keeper

import (
	"time"

	"github.com/google/uuid"
)

// Report summarizes one keeper run.
type Report struct {
	RunID         string        `json:"run_id"`
	Job           string        `json:"job"`
	Now           int64         `json:"now"`
	Closed        int           `json:"closed"`
	Settled       int           `json:"settled"`
	Released      int           `json:"released"`
	Refunded      int           `json:"refunded"`
	SalesRecorded int           `json:"sales_recorded"`
	Errors        []string      `json:"errors,omitempty"`
	Duration      time.Duration `json:"duration"`
}

func newReport(now int64) Report {
	return Report{RunID: uuid.NewString(), Now: now}
}

// Actions is the number of ledger transitions the run performed.
func (r Report) Actions() int {
	return r.Closed + r.Settled + r.Released + r.Refunded + r.SalesRecorded
}

func (r Report) Failed() bool {
	return len(r.Errors) > 0
}
