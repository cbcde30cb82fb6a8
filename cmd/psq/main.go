package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/psq/am"
	"github.com/teranos/psq/cmd/psq/commands"
	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/logger"
)

var rootCmd = &cobra.Command{
	Use:   "psq",
	Short: "psq - PeopleSoft ExecuteQuery client",
	Long: `psq - run PeopleSoft queries through the Integration Broker ExecuteQuery service.

psq builds the ExecuteQuery URL, sends it with Basic auth and/or a PS_TOKEN
cookie, and turns the XML response into rows.

Available commands:
  query   - Run a query and print or export its rows
  url     - Print the ExecuteQuery URL without sending it
  parse   - Extract rows from a saved XML response
  batch   - Run the queries listed in a TOML job file
  history - Inspect the local run history
  am      - Manage psq configuration ("I am")
  version - Show version information

Examples:
  psq query FM_VENDOR_MASTER -p VENDOR_STATUS=I -p VENDOR_ID_OFFSET=
  psq query FM_VENDOR_MASTER --prompts "VENDOR_STATUS=I VENDOR_ID_OFFSET=" --format csv --out vendors.csv
  psq url FM_PO_OPEN --security private --maxrows 50
  psq parse response.xml --format json
  psq batch nightly.toml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}

		if path, _ := cmd.Flags().GetString("config"); path != "" {
			am.SetConfigFile(path)
		}
		return nil
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON on stderr")
	rootCmd.PersistentFlags().String("config", "", "Config file to use on top of the cascade (default: psq.toml lookup)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON (also PSQ_JSON=1)")

	// Add commands
	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.URLCmd)
	rootCmd.AddCommand(commands.ParseCmd)
	rootCmd.AddCommand(commands.BatchCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hints := errors.FlattenHints(err); hints != "" {
			fmt.Fprintln(os.Stderr, "Hint:", hints)
		}
		os.Exit(commands.ExitCode(err))
	}
}
