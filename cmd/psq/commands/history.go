package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/psq/am"
	"github.com/teranos/psq/display"
	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/history"
	"github.com/teranos/psq/logger"
)

// HistoryCmd inspects the local run ledger
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the local run history",
	Long: `Inspect runs recorded in the history database.

Recording is off by default; enable it with:
  psq am set history.enabled true

Examples:
  psq history ls --limit 50
  psq history stats --since 7d
  psq history stats --by-query --json`,
}

var historyLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryLs,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run statistics",
	Args:  cobra.NoArgs,
	RunE:  runHistoryStats,
}

var (
	historyLimit   int
	historySince   string
	historyByQuery bool
)

func init() {
	historyLsCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyLsCmd.Flags().Bool("json", false, "Output as JSON")

	historyStatsCmd.Flags().StringVar(&historySince, "since", "24h", "Period to cover, e.g. 90m, 24h, 7d")
	historyStatsCmd.Flags().BoolVar(&historyByQuery, "by-query", false, "Break statistics down per query")
	historyStatsCmd.Flags().Bool("json", false, "Output as JSON")

	HistoryCmd.AddCommand(historyLsCmd)
	HistoryCmd.AddCommand(historyStatsCmd)
}

// openHistory opens the configured database without creating one
func openHistory() (*history.Store, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to load config"), errors.ErrInvalidConfig)
	}
	path := cfg.HistoryPath()
	if path == "" {
		return nil, errors.NewInvalidConfigError("history.path is not set")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			hint := "runs are recorded once history is enabled"
			if !cfg.History.Enabled {
				hint = "enable recording with: psq am set history.enabled true"
			}
			return nil, errors.WithHint(errors.Newf("no history database at %s", path), hint)
		}
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	return history.Open(path, logger.Logger.Named("history"))
}

func runHistoryLs(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(cmdContext(cmd), historyLimit)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(runs)
	}

	if len(runs) == 0 {
		statusInfo.Println("No runs recorded")
		return nil
	}

	data := pterm.TableData{{"WHEN", "QUERY", "PROMPTS", "STATUS", "ROWS", "MS", "RESULT"}}
	for _, r := range runs {
		result := "ok"
		if !r.Success {
			result = "failed"
			if r.ErrorKind != nil {
				result = *r.ErrorKind
			}
		}
		status := "-"
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}
		data = append(data, []string{
			r.RequestTimestamp.Local().Format("2006-01-02 15:04:05"),
			r.QueryName,
			promptSummary(r),
			status,
			strconv.Itoa(r.RowCount),
			strconv.FormatInt(r.DurationMS, 10),
			result,
		})
	}
	return renderTable(cmd.OutOrStdout(), data)
}

func promptSummary(r history.Run) string {
	parts := make([]string, len(r.Prompts))
	for i, p := range r.Prompts {
		parts[i] = p.Name + "=" + p.Value
	}
	return strings.Join(parts, " ")
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	window, err := parseSince(historySince)
	if err != nil {
		return err
	}
	since := time.Now().Add(-window)

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmdContext(cmd)
	stats, err := store.Stats(ctx, since)
	if err != nil {
		return err
	}

	var breakdown []history.QueryBreakdown
	if historyByQuery {
		breakdown, err = store.Breakdown(ctx, since)
		if err != nil {
			return err
		}
	}

	if display.ShouldOutputJSON(cmd) {
		out := map[string]interface{}{"since": since.UTC(), "stats": stats}
		if historyByQuery {
			out["queries"] = breakdown
		}
		return display.OutputJSON(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Runs since %s\n", since.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  Total:             %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "  Succeeded:         %d (%.1f%%)\n", stats.SuccessfulRuns, stats.SuccessRate*100)
	fmt.Fprintf(w, "  Rows returned:     %d\n", stats.TotalRows)
	fmt.Fprintf(w, "  Distinct queries:  %d\n", stats.UniqueQueries)
	fmt.Fprintf(w, "  Transport errors:  %d\n", stats.TransportErrors)
	fmt.Fprintf(w, "  Remote rejections: %d\n", stats.RemoteRejections)
	fmt.Fprintf(w, "  Parse errors:      %d\n", stats.ParseErrors)
	fmt.Fprintf(w, "  Avg duration:      %.0f ms\n", stats.AvgDurationMS)

	if !historyByQuery || len(breakdown) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	data := pterm.TableData{{"QUERY", "RUNS", "FAILED", "ROWS", "AVG MS", "LAST RUN"}}
	for _, qb := range breakdown {
		data = append(data, []string{
			qb.QueryName,
			strconv.Itoa(qb.RunCount),
			strconv.Itoa(qb.FailureCount),
			strconv.Itoa(qb.TotalRows),
			fmt.Sprintf("%.0f", qb.AvgDurationMS),
			qb.LastRun.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(w, data)
}

// parseSince accepts time.ParseDuration strings plus a day suffix ("7d")
func parseSince(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, errors.Newf("invalid --since %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.Newf("invalid --since %q: use e.g. 90m, 24h, 7d", s)
	}
	return d, nil
}

func renderTable(w io.Writer, data pterm.TableData) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render table")
	}
	fmt.Fprintln(w, table)
	return nil
}
