package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/export"
	"github.com/teranos/psq/logger"
	"github.com/teranos/psq/peoplesoft"
)

// QueryCmd runs one ExecuteQuery call
var QueryCmd = &cobra.Command{
	Use:   "query <QUERY_NAME>",
	Short: "Run a query and print or export its rows",
	Long: `Run a PeopleSoft query through ExecuteQuery and print the rows.

Prompts are sent in the order given. --prompts is applied first, then each
-p; repeating a name replaces its value in place.

Examples:
  psq query FM_VENDOR_MASTER -p VENDOR_STATUS=I -p VENDOR_ID_OFFSET=
  psq query FM_VENDOR_MASTER --prompts "VENDOR_STATUS=I VENDOR_ID_OFFSET=" --limit 20
  psq query FM_PO_OPEN --security private --format csv --out open_pos.csv
  psq query FM_PO_OPEN --format raw > response.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var (
	queryQueryFlags  queryFlags
	queryOutputFlags outputFlags
)

func init() {
	queryQueryFlags.register(QueryCmd)
	queryOutputFlags.register(QueryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	queryName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	prompts, err := queryQueryFlags.collectPrompts()
	if err != nil {
		return err
	}
	opts, err := queryQueryFlags.options(cmd, cfg)
	if err != nil {
		return err
	}
	format, err := queryOutputFlags.resolveFormat(cmd)
	if err != nil {
		return err
	}

	client, closeHistory, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	result, err := client.Run(ctx, queryName, prompts, opts)
	if err != nil {
		if result != nil && errors.IsParseError(err) {
			if format == string(export.FormatRaw) {
				// raw output never needed the rows
				return queryOutputFlags.emit(cmd, cmd.OutOrStdout(), nil, result.Raw)
			}
			logger.Logger.Debugw("Unparseable response body", logger.FieldRunID, result.RunID, "body", result.Raw)
			return errors.WithHint(err, "rerun with --format raw to see the response body")
		}
		return err
	}

	rs := &peoplesoft.ResultSet{Columns: result.Columns, Rows: result.Rows}
	return queryOutputFlags.emit(cmd, cmd.OutOrStdout(), rs, result.Raw)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
