package am

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/teranos/psq/errors"
)

// UserConfigPath returns ~/.psq/psq.toml
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".psq", ConfigFileName), nil
}

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete old backup %s", back3)
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadTOMLFile reads a config file into a generic map; a missing file is empty
func loadTOMLFile(configPath string) (map[string]any, error) {
	config := make(map[string]any)
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

// saveTOMLFile writes config with a backup of the previous version
func saveTOMLFile(configPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

// SetValue sets one dotted key (e.g. "query.maxrows") in the TOML file at
// configPath, creating sections as needed. Only known keys are accepted.
func SetValue(configPath, key string, value any) error {
	if !IsKnownKey(key) {
		return errors.WithHint(
			errors.NewInvalidConfigError("unknown configuration key %q", key),
			"run 'psq am show' to list keys",
		)
	}

	config, err := loadTOMLFile(configPath)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	section := config
	for _, part := range parts[:len(parts)-1] {
		next, ok := section[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			section[part] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = value

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return saveTOMLFile(configPath, data)
}

// ParseValue converts a command-line string to bool or int when it reads as one
func ParseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

// IsKnownKey reports whether key is a leaf of Config
func IsKnownKey(key string) bool {
	v := viper.New()
	SetDefaults(v)
	BindSensitiveEnvVars(v)
	for _, k := range v.AllKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// WriteStarter writes a psq.toml holding the defaults and an empty
// endpoint section. An existing file is kept unless overwrite is set.
func WriteStarter(configPath string, overwrite bool) error {
	if _, err := os.Stat(configPath); err == nil && !overwrite {
		return errors.WithHint(
			errors.Newf("%s already exists", configPath),
			"pass --force to replace it (a .back1 copy is kept)",
		)
	}

	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal starter config")
	}
	header := "# psq configuration\n# Secrets are better kept in PSQ_PASSWORD / PSQ_PS_TOKEN.\n\n"
	return saveTOMLFile(configPath, append([]byte(header), data...))
}
