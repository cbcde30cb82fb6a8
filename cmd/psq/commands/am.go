package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/psq/am"
	"github.com/teranos/psq/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage psq configuration",
	Long: `am - Manage psq configuration ("I am")

Display and manage the PeopleSoft endpoint, credentials, and query defaults.

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/psq/psq.toml)
3. User config (~/.psq/psq.toml)
4. Project config (./psq.toml, searched up from the working directory)
5. --config FILE
6. Environment variables (PSQ_* prefix, plus PSQ_BASE_URL, PSQ_USERNAME,
   PSQ_PASSWORD, PSQ_PS_TOKEN)

Examples:
  psq am init                         # Write ~/.psq/psq.toml
  psq am set peoplesoft.base_url https://ps.example.com/PSIGW/RESTListeningConnector/PSFT_EP/ExecuteQuery.v1
  psq am show                         # Show current configuration
  psq am show --format json           # Show configuration in JSON format
  psq am get query.maxrows            # Get specific config value
  psq am validate                     # Validate current configuration
  psq am where                        # Show where each setting comes from`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration from all sources. Password and token are masked.",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., query.maxrows, peoplesoft.base_url)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current configuration can build an ExecuteQuery client",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade, which files exist, and the source of
every effective setting.`,
	RunE: runAmWhere,
}

var amInitCmd = &cobra.Command{
	Use:   "init [FILE]",
	Short: "Write a starter config file",
	Long:  "Write a psq.toml with the default settings (default: ~/.psq/psq.toml)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmInit,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in a config file",
	Long: `Set one key in a config file (default: ~/.psq/psq.toml). The previous
file is kept as .back1 (rotating up to .back3).

"true"/"false" and integers are stored typed; everything else as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var (
	configFormat string
	amInitForce  bool
	amSetFile    string
)

func init() {
	// Add flags
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amInitCmd.Flags().BoolVar(&amInitForce, "force", false, "Replace an existing file")
	amSetCmd.Flags().StringVar(&amSetFile, "file", "", "Config file to edit (default: ~/.psq/psq.toml)")

	// Add subcommands
	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amSetCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	redacted := cfg.Redacted()
	w := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(w, string(data))

	case "yaml":
		data, err := yaml.Marshal(redacted)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(w, "# psq configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(redacted)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(w, "# psq configuration\n%s", string(data))

	default:
		return errors.Newf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v, err := am.GetViper()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if !v.IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}

	value := v.Get(key)
	if am.IsSecretKey(key) && value != "" {
		value = am.RedactedValue
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	statusSuccess.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  [DEFAULT]  Built-in defaults")
	for _, file := range intro.Files {
		state := "missing"
		if _, err := os.Stat(file.Path); err == nil {
			state = "found"
		}
		fmt.Fprintf(w, "  [%-8s] %s (%s)\n", file.Source, file.Path, state)
	}
	fmt.Fprintf(w, "  [%-8s] %s_* environment variables\n", am.SourceEnvironment, am.EnvPrefix)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Active configuration:")
	for _, setting := range intro.Settings {
		valueStr := fmt.Sprintf("%v", setting.Value)
		if len(valueStr) > 60 {
			valueStr = valueStr[:57] + "..."
		}
		from := string(setting.Source)
		if setting.SourcePath != "" {
			from += ": " + setting.SourcePath
		}
		fmt.Fprintf(w, "  %s = %s  (%s)\n", setting.Key, valueStr, from)
	}

	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path, err := targetConfigFile(args)
	if err != nil {
		return err
	}
	if err := am.WriteStarter(path, amInitForce); err != nil {
		return err
	}
	statusSuccess.Printfln("Wrote %s", path)
	statusInfo.Println("Next: psq am set peoplesoft.base_url <ExecuteQuery.v1 URL>")
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	var target []string
	if amSetFile != "" {
		target = []string{amSetFile}
	}
	path, err := targetConfigFile(target)
	if err != nil {
		return err
	}

	key := args[0]
	if err := am.SetValue(path, key, am.ParseValue(args[1])); err != nil {
		return err
	}
	am.Reset()

	shown := args[1]
	if am.IsSecretKey(key) {
		shown = am.RedactedValue
		statusWarning.Println("Secrets in config files are readable by anyone with the file; PSQ_PASSWORD / PSQ_PS_TOKEN avoid that")
	}
	statusSuccess.Printfln("Set %s = %s in %s", key, shown, path)
	return nil
}

func targetConfigFile(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return am.ExpandPath(args[0]), nil
	}
	return am.UserConfigPath()
}
