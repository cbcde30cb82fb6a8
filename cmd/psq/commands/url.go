package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/psq/am"
	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/peoplesoft"
)

// URLCmd prints the ExecuteQuery URL without sending it
var URLCmd = &cobra.Command{
	Use:   "url <QUERY_NAME>",
	Short: "Print the ExecuteQuery URL without sending it",
	Long: `Print the URL psq would request for a query. Nothing is sent and no
credentials are needed, only peoplesoft.base_url.

Examples:
  psq url FM_VENDOR_MASTER -p VENDOR_STATUS=I -p VENDOR_ID_OFFSET=
  psq url FM_PO_OPEN --security private --maxrows 50 --connected`,
	Args: cobra.ExactArgs(1),
	RunE: runURL,
}

var urlQueryFlags queryFlags

func init() {
	urlQueryFlags.register(URLCmd)
}

func runURL(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to load config"), errors.ErrInvalidConfig)
	}
	if cfg.PeopleSoft.BaseURL == "" {
		return errors.WithHint(
			errors.NewInvalidConfigError("peoplesoft.base_url is not set"),
			"set it in psq.toml or PSQ_PEOPLESOFT_BASE_URL",
		)
	}

	prompts, err := urlQueryFlags.collectPrompts()
	if err != nil {
		return err
	}
	opts, err := urlQueryFlags.options(cmd, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), peoplesoft.BuildURL(cfg.PeopleSoft.BaseURL, args[0], prompts, opts))
	return nil
}
