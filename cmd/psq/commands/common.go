package commands

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/psq/am"
	"github.com/teranos/psq/display"
	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/export"
	"github.com/teranos/psq/history"
	"github.com/teranos/psq/logger"
	"github.com/teranos/psq/peoplesoft"
	"github.com/teranos/psq/version"
)

// Process exit codes, one per error category
const (
	ExitError           = 1
	ExitInvalidConfig   = 2
	ExitTransport       = 3
	ExitRemoteRejection = 4
	ExitParse           = 5
)

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errors.ErrInvalidConfig):
		return ExitInvalidConfig
	case errors.IsTransportError(err):
		return ExitTransport
	case errors.IsRemoteRejection(err):
		return ExitRemoteRejection
	case errors.IsParseError(err):
		return ExitParse
	default:
		return ExitError
	}
}

// status prints progress lines on stderr so stdout stays pipeable
var (
	statusInfo    = pterm.Info.WithWriter(os.Stderr)
	statusSuccess = pterm.Success.WithWriter(os.Stderr)
	statusWarning = pterm.Warning.WithWriter(os.Stderr)
	statusError   = pterm.Error.WithWriter(os.Stderr)
)

// queryFlags are shared by query and url
type queryFlags struct {
	prompts    []string
	promptList string
	maxRows    int
	connected  bool
	security   string
	outputPath string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.prompts, "prompt", "p", nil, "Prompt as NAME=VALUE (repeatable, order is kept; NAME= for empty)")
	cmd.Flags().StringVar(&f.promptList, "prompts", "", `Shell-quoted prompt list, e.g. "VENDOR_STATUS=I VENDOR_ID_OFFSET="`)
	cmd.Flags().IntVar(&f.maxRows, "maxrows", 0, "Maximum rows (default: query.maxrows)")
	cmd.Flags().BoolVar(&f.connected, "connected", false, "Run as a connected query (isconnectedquery=Y)")
	cmd.Flags().StringVar(&f.security, "security", "", "public or private (default: query.security)")
	cmd.Flags().StringVar(&f.outputPath, "output-path", "", "Output path segment (default: query.output_path)")
}

// collectPrompts merges --prompts then -p, keeping first-seen order
func (f *queryFlags) collectPrompts() (peoplesoft.Prompts, error) {
	var prompts peoplesoft.Prompts
	if strings.TrimSpace(f.promptList) != "" {
		listed, err := peoplesoft.ParsePromptString(f.promptList)
		if err != nil {
			return nil, err
		}
		prompts = listed
	}
	flagged, err := peoplesoft.ParsePrompts(f.prompts)
	if err != nil {
		return nil, err
	}
	for _, p := range flagged {
		prompts = prompts.Set(p.Name, p.Value)
	}
	return prompts, nil
}

// options overlays changed flags on the configured defaults
func (f *queryFlags) options(cmd *cobra.Command, cfg *am.Config) (peoplesoft.QueryOptions, error) {
	opts := cfg.QueryOptions()
	if cmd.Flags().Changed("maxrows") {
		if f.maxRows <= 0 {
			return opts, errors.NewInvalidConfigError("--maxrows must be positive, got %d", f.maxRows)
		}
		opts.MaxRows = f.maxRows
	}
	if cmd.Flags().Changed("connected") {
		opts.Connected = f.connected
	}
	if cmd.Flags().Changed("security") {
		opts.Security = f.security
	}
	if cmd.Flags().Changed("output-path") {
		opts.OutputPath = f.outputPath
	}
	return opts, nil
}

// loadConfig loads and validates the cascade
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to load config"), errors.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newClient builds a client from config. When history is enabled the
// returned closer releases the history database.
func newClient(cfg *am.Config) (*peoplesoft.Client, func(), error) {
	log := logger.Logger.Named("peoplesoft")

	clientCfg, err := cfg.ClientConfig(log)
	if err != nil {
		return nil, nil, err
	}
	clientCfg.UserAgent = version.Get().UserAgent()

	closer := func() {}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath(), logger.Logger.Named("history"))
		if err != nil {
			// history is best effort; the query still runs
			log.Warnw("Run history unavailable", logger.FieldFile, cfg.HistoryPath(), logger.FieldError, err)
		} else {
			clientCfg.Recorder = store
			closer = func() { _ = store.Close() }
		}
	}

	client, err := peoplesoft.NewClient(clientCfg)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return client, closer, nil
}

// outputFlags are shared by query and parse
type outputFlags struct {
	format    string
	out       string
	limit     int
	delimiter string
	columns   []string
}

const formatTable = "table"

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: table, csv, json, jsonl, yaml, raw (default: table, or from --out extension)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write results to a file instead of stdout")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Show at most N rows in table output (0 = all)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV field delimiter (default: comma; \\t for tab)")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Only export these columns, in this order")
}

// resolveFormat picks the output format: --format, then --json, then the
// --out extension, then a table.
func (f *outputFlags) resolveFormat(cmd *cobra.Command) (string, error) {
	if f.format != "" {
		if strings.EqualFold(f.format, formatTable) {
			if f.out != "" {
				return "", errors.New("table output cannot be written to a file")
			}
			return formatTable, nil
		}
		format, err := export.ParseFormat(f.format)
		if err != nil {
			return "", err
		}
		return string(format), nil
	}
	if display.ShouldOutputJSON(cmd) {
		return string(export.FormatJSON), nil
	}
	if f.out != "" {
		return string(export.FormatFromPath(f.out)), nil
	}
	return formatTable, nil
}

func (f *outputFlags) exportOptions() (export.Options, error) {
	opts := export.Options{Columns: f.columns}
	switch f.delimiter {
	case "":
	case `\t`, "tab":
		opts.Delimiter = '\t'
	default:
		runes := []rune(f.delimiter)
		if len(runes) != 1 {
			return opts, errors.Newf("--delimiter must be a single character, got %q", f.delimiter)
		}
		opts.Delimiter = runes[0]
	}
	return opts, nil
}

// emit writes rows (or raw for the raw format) to --out or w
func (f *outputFlags) emit(cmd *cobra.Command, w io.Writer, rs *peoplesoft.ResultSet, raw string) error {
	format, err := f.resolveFormat(cmd)
	if err != nil {
		return err
	}

	if format == formatTable {
		return display.PrintTable(w, rs, display.TableOptions{Limit: f.limit, MaxWidth: display.DefaultCellWidth})
	}

	opts, err := f.exportOptions()
	if err != nil {
		return err
	}

	if f.out != "" {
		if err := export.WriteFile(f.out, export.Format(format), rs, raw, opts); err != nil {
			return err
		}
		rows := 0
		if rs != nil {
			rows = len(rs.Rows)
		}
		statusSuccess.Printfln("Wrote %d rows to %s (%s)", rows, f.out, format)
		return nil
	}
	return export.Write(w, export.Format(format), rs, raw, opts)
}
