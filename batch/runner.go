package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/export"
	"github.com/teranos/psq/logger"
	"github.com/teranos/psq/peoplesoft"
)

// QueryRunner is satisfied by *peoplesoft.Client
type QueryRunner interface {
	Run(ctx context.Context, queryName string, prompts peoplesoft.Prompts, opts peoplesoft.QueryOptions) (*peoplesoft.Result, error)
}

// Options configure a batch run
type Options struct {
	Defaults          peoplesoft.QueryOptions
	RequestsPerMinute int  // 0 = unpaced; the job file's value wins when set
	ContinueOnError   bool // OR-ed with the job file's continue_on_error
	Logger            *zap.SugaredLogger

	// OnResult is called after each job (progress output)
	OnResult func(JobResult)
}

// JobResult is the outcome of one job
type JobResult struct {
	Index  int
	Job    Job
	Result *peoplesoft.Result // nil on transport/remote failure
	Output string             // file written, if any
	Err    error
}

// Summary is the outcome of a whole batch
type Summary struct {
	BatchID   string
	Results   []JobResult
	Succeeded int
	Failed    int
	Skipped   int // not attempted after a stop
	Duration  time.Duration
}

// Run executes jobs sequentially. Without continue_on_error it stops at the
// first failure and returns that error along with the summary so far.
func Run(ctx context.Context, runner QueryRunner, file *File, opts Options) (*Summary, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	rpm := opts.RequestsPerMinute
	if file.RequestsPerMinute != nil {
		rpm = *file.RequestsPerMinute
	}
	continueOnError := opts.ContinueOnError || file.ContinueOnError

	var limiter *rate.Limiter
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}

	summary := &Summary{BatchID: uuid.New().String()}
	started := time.Now()
	defer func() { summary.Duration = time.Since(started) }()

	log = log.With("batch_id", summary.BatchID)
	log.Infow("Starting batch", "jobs", len(file.Queries), "requests_per_minute", rpm)

	for i, job := range file.Queries {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				summary.Skipped += len(file.Queries) - i
				return summary, errors.Wrap(err, "batch cancelled")
			}
		}

		jr := runJob(ctx, runner, file, job, i, opts.Defaults)
		summary.Results = append(summary.Results, jr)
		if opts.OnResult != nil {
			opts.OnResult(jr)
		}

		if jr.Err != nil {
			summary.Failed++
			log.Warnw("Batch job failed",
				logger.FieldQuery, job.Name,
				logger.FieldErrorKind, peoplesoft.ErrorKind(jr.Err),
				logger.FieldError, jr.Err,
			)
			if !continueOnError {
				summary.Skipped = len(file.Queries) - i - 1
				return summary, errors.Wrapf(jr.Err, "batch stopped at query %d (%s)", i+1, job.DisplayName())
			}
			continue
		}
		summary.Succeeded++
	}

	log.Infow("Batch complete", "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

func runJob(ctx context.Context, runner QueryRunner, file *File, job Job, index int, defaults peoplesoft.QueryOptions) JobResult {
	jr := JobResult{Index: index, Job: job}

	res, err := runner.Run(ctx, job.Name, job.Prompts, job.QueryOptions(defaults))
	jr.Result = res
	if err != nil {
		jr.Err = err
		return jr
	}

	if out := file.OutputFile(job); out != "" {
		rs := &peoplesoft.ResultSet{Columns: res.Columns, Rows: res.Rows}
		if err := export.WriteFile(out, job.OutputFormat(), rs, res.Raw, export.Options{}); err != nil {
			jr.Err = errors.Wrapf(err, "export %s", job.DisplayName())
			return jr
		}
		jr.Output = out
	}

	return jr
}
