package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/peoplesoft"
)

// ParseCmd runs the row extractor over a saved response
var ParseCmd = &cobra.Command{
	Use:   "parse [FILE|-]",
	Short: "Extract rows from a saved XML response",
	Long: `Extract rows from an ExecuteQuery XML response saved earlier, for
example with 'psq query --format raw'. Reads stdin when FILE is - or omitted.

Examples:
  psq parse response.xml
  psq query FM_VENDOR_MASTER --format raw | psq parse --format csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

var parseOutputFlags outputFlags

func init() {
	parseOutputFlags.register(ParseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	rs, err := peoplesoft.Parse(string(data))
	if err != nil {
		return err
	}
	return parseOutputFlags.emit(cmd, cmd.OutOrStdout(), rs, string(data))
}
