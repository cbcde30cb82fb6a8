package am

import (
	"os"
	"sort"
	"strings"

	"github.com/teranos/psq/errors"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/psq/psq.toml
	SourceUser        ConfigSource = "user"        // ~/.psq/psq.toml
	SourceProject     ConfigSource = "project"     // psq.toml found walking up from the working directory
	SourceExplicit    ConfigSource = "explicit"    // --config
	SourceEnvironment ConfigSource = "environment" // PSQ_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource `json:"source"`
	Path   string       `json:"path,omitempty"` // File path or environment variable name
}

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      any          `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"`
}

// ConfigIntrospection lists every effective setting with its source
type ConfigIntrospection struct {
	Files    []SourceInfo  `json:"files"`
	Settings []SettingInfo `json:"settings"`
}

// GetConfigIntrospection returns the effective settings, each attributed to
// the default, file, or environment variable it came from. Secret values
// are masked.
func GetConfigIntrospection() (*ConfigIntrospection, error) {
	v, err := GetViper()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}

	intro := &ConfigIntrospection{
		Files:    CascadePaths(),
		Settings: make([]SettingInfo, 0),
	}

	keys := v.AllKeys()
	sort.Strings(keys)

	for _, key := range keys {
		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := ConfigSources[key]; ok {
			info = si
		}
		if envName := envOverride(key); envName != "" {
			info = SourceInfo{Source: SourceEnvironment, Path: envName}
		}

		value := v.Get(key)
		if IsSecretKey(key) && value != "" && value != nil {
			value = RedactedValue
		}

		intro.Settings = append(intro.Settings, SettingInfo{
			Key:        key,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}

	return intro, nil
}

// envOverride returns the environment variable that sets key, if any
func envOverride(key string) string {
	candidates := []string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	candidates = append(candidates, sensitiveEnvVars[key]...)
	for _, name := range candidates {
		if _, ok := os.LookupEnv(name); ok {
			return name
		}
	}
	return ""
}

// IsSecretKey reports whether key holds a credential
func IsSecretKey(key string) bool {
	return key == "peoplesoft.password" || key == "peoplesoft.ps_token"
}
