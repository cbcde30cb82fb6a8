package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/psq/errors"
)

var globalConfig *Config
var viperInstance *viper.Viper

// explicitConfigFile is set by --config and merged last among files
var explicitConfigFile string

// ConfigSources records which source last set each flattened key during loading
var ConfigSources = map[string]SourceInfo{}

// Load reads the psq configuration using Viper
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v, err := initViper()
	if err != nil {
		return nil, err
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() (*viper.Viper, error) {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a single file plus defaults,
// without the cascade or environment variables.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	return config, nil
}

// SetConfigFile adds an explicit config file (the --config flag) on top of
// the discovered cascade. It must be called before Load.
func SetConfigFile(path string) {
	explicitConfigFile = path
	globalConfig = nil
	viperInstance = nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	explicitConfigFile = ""
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults
func initViper() (*viper.Viper, error) {
	if viperInstance != nil {
		return viperInstance, nil
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)

	SetDefaults(v)

	// Merge configs in precedence order: system -> user -> project -> explicit -> env vars
	if err := mergeConfigFiles(v); err != nil {
		return nil, err
	}

	viperInstance = v
	return v, nil
}

// CascadePaths returns every file location checked, lowest precedence first.
// The project entry is present only when a psq.toml was found.
func CascadePaths() []SourceInfo {
	paths := []SourceInfo{
		{Source: SourceSystem, Path: filepath.Join("/etc/psq", ConfigFileName)},
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, SourceInfo{Source: SourceUser, Path: filepath.Join(homeDir, ".psq", ConfigFileName)})
	}
	if projectConfig := findProjectConfig(); projectConfig != "" {
		paths = append(paths, SourceInfo{Source: SourceProject, Path: projectConfig})
	}
	if explicitConfigFile != "" {
		paths = append(paths, SourceInfo{Source: SourceExplicit, Path: explicitConfigFile})
	}
	return paths
}

// findProjectConfig searches for psq.toml by walking up the directory tree
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles deep-merges each existing file into v and records, per
// key, the file that set it. A missing cascade file is skipped; a broken one
// (or a missing --config file) is an error.
func mergeConfigFiles(v *viper.Viper) error {
	ConfigSources = map[string]SourceInfo{}

	for _, src := range CascadePaths() {
		if _, err := os.Stat(src.Path); err != nil {
			if src.Source == SourceExplicit {
				return errors.WithHint(
					errors.Wrapf(err, "config file %s", src.Path),
					"check the --config path",
				)
			}
			continue
		}

		fileViper := viper.New()
		fileViper.SetConfigFile(src.Path)
		fileViper.SetConfigType("toml")
		if err := fileViper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", src.Path)
		}

		settings := fileViper.AllSettings()
		if err := v.MergeConfigMap(settings); err != nil {
			return errors.Wrapf(err, "failed to merge config file %s", src.Path)
		}
		for _, key := range flattenKeys(settings, "") {
			ConfigSources[key] = src
		}
	}

	return nil
}

// flattenKeys returns dotted leaf keys of a nested settings map
func flattenKeys(settings map[string]any, prefix string) []string {
	var keys []string
	for k, value := range settings {
		fullKey := k
		if prefix != "" {
			fullKey = prefix + "." + k
		}
		if nested, ok := value.(map[string]any); ok {
			keys = append(keys, flattenKeys(nested, fullKey)...)
			continue
		}
		keys = append(keys, fullKey)
	}
	return keys
}

// ExpandPath replaces a leading ~ with the user's home directory
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
