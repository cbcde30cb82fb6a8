package peoplesoft

import (
	"context"
	"time"

	"github.com/teranos/psq/logger"
)

// Recorder receives one RunRecord per Client.Run, successful or not.
// history.Store is the SQLite implementation.
type Recorder interface {
	RecordRun(ctx context.Context, run RunRecord) error
}

// RunRecord describes a finished Run.
type RunRecord struct {
	RunID      string
	Query      string
	Prompts    Prompts
	Options    QueryOptions
	URL        string
	StatusCode int // 0 when no response arrived
	RowCount   int
	Started    time.Time
	Finished   time.Time
	Err        error
}

// Success reports whether the run produced rows (possibly zero of them).
func (r RunRecord) Success() bool {
	return r.Err == nil
}

func (c *Client) record(ctx context.Context, run RunRecord) {
	if c.recorder == nil {
		return
	}
	// A run that failed on a cancelled or expired ctx is still recorded
	if err := c.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		// Never fail a query because the local ledger is unavailable
		logger.LoggerFromContext(ctx, c.logger).Warnw("Failed to record run",
			logger.FieldRunID, run.RunID,
			logger.FieldQuery, run.Query,
			logger.FieldError, err,
		)
	}
}
