package commands

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/psq/batch"
	"github.com/teranos/psq/display"
	"github.com/teranos/psq/logger"
	"github.com/teranos/psq/peoplesoft"
)

// BatchCmd runs a TOML job file
var BatchCmd = &cobra.Command{
	Use:   "batch <jobs.toml>",
	Short: "Run the queries listed in a TOML job file",
	Long: `Run every [[query]] in a job file, one at a time, paced to
requests_per_minute. Each result is exported to its output file.

The run stops at the first failure unless continue_on_error is set in the
file or --continue-on-error is given.

Job file:
  requests_per_minute = 20
  output_dir = "exports"

  [[query]]
  name = "FM_VENDOR_MASTER"
  output = "vendors.csv"

  [[query.prompt]]
  name = "VENDOR_STATUS"
  value = "I"`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	batchContinueOnError bool
	batchRPM             int
)

func init() {
	BatchCmd.Flags().BoolVar(&batchContinueOnError, "continue-on-error", false, "Keep going after a failed query")
	BatchCmd.Flags().IntVar(&batchRPM, "rpm", 0, "Requests per minute (default: batch.requests_per_minute; 0 = unpaced)")
	BatchCmd.Flags().Bool("json", false, "Print the summary as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file, err := batch.Load(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, closeHistory, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	rpm := cfg.Batch.RequestsPerMinute
	if cmd.Flags().Changed("rpm") {
		rpm = batchRPM
		// the flag beats the job file too
		file.RequestsPerMinute = &rpm
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	jsonOutput := display.ShouldOutputJSON(cmd)
	total := len(file.Queries)

	summary, runErr := batch.Run(ctx, client, file, batch.Options{
		Defaults:          cfg.QueryOptions(),
		RequestsPerMinute: rpm,
		ContinueOnError:   batchContinueOnError,
		Logger:            logger.Logger.Named("batch"),
		OnResult: func(jr batch.JobResult) {
			if jsonOutput {
				return
			}
			printJobResult(jr, total)
		},
	})

	if jsonOutput && summary != nil {
		if err := display.OutputJSON(batchReport(summary)); err != nil {
			return err
		}
	} else if summary != nil {
		line := "Batch finished: %d succeeded, %d failed, %d skipped in %s"
		if summary.Failed > 0 || summary.Skipped > 0 {
			statusWarning.Printfln(line, summary.Succeeded, summary.Failed, summary.Skipped, summary.Duration.Round(time.Millisecond))
		} else {
			statusSuccess.Printfln(line, summary.Succeeded, summary.Failed, summary.Skipped, summary.Duration.Round(time.Millisecond))
		}
	}
	return runErr
}

func printJobResult(jr batch.JobResult, total int) {
	name := jr.Job.DisplayName()
	if jr.Err != nil {
		statusError.Printfln("[%d/%d] %s: %s (%s)", jr.Index+1, total, name, jr.Err, peoplesoft.ErrorKind(jr.Err))
		return
	}
	rows := 0
	if jr.Result != nil {
		rows = len(jr.Result.Rows)
	}
	if jr.Output != "" {
		statusSuccess.Printfln("[%d/%d] %s: %s -> %s", jr.Index+1, total, name, display.RowCountFooter(rows, 0), jr.Output)
		return
	}
	statusSuccess.Printfln("[%d/%d] %s: %s", jr.Index+1, total, name, display.RowCountFooter(rows, 0))
}

type jobReport struct {
	Query     string `json:"query"`
	Label     string `json:"label,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Rows      int    `json:"rows"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type batchSummaryReport struct {
	BatchID    string      `json:"batch_id"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Skipped    int         `json:"skipped"`
	DurationMS int64       `json:"duration_ms"`
	Jobs       []jobReport `json:"jobs"`
}

func batchReport(s *batch.Summary) batchSummaryReport {
	report := batchSummaryReport{
		BatchID:    s.BatchID,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		DurationMS: s.Duration.Milliseconds(),
		Jobs:       make([]jobReport, 0, len(s.Results)),
	}
	for _, jr := range s.Results {
		jobRep := jobReport{Query: jr.Job.Name, Label: jr.Job.Label, Output: jr.Output}
		if jr.Result != nil {
			jobRep.RunID = jr.Result.RunID
			jobRep.Rows = len(jr.Result.Rows)
		}
		if jr.Err != nil {
			jobRep.Error = jr.Err.Error()
			jobRep.ErrorKind = peoplesoft.ErrorKind(jr.Err)
		}
		report.Jobs = append(report.Jobs, jobRep)
	}
	return report
}
