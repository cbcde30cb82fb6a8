package am

import (
	"github.com/spf13/viper"

	"github.com/teranos/psq/peoplesoft"
)

// DefaultHistoryPath is where the run ledger lives unless history.path is set
const DefaultHistoryPath = "~/.psq/history.db"

// DefaultRequestsPerMinute paces batch runs against shared gateways
const DefaultRequestsPerMinute = 30

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// PeopleSoft endpoint defaults
	v.SetDefault("peoplesoft.verify", true)
	v.SetDefault("peoplesoft.timeout_seconds", int(peoplesoft.DefaultTimeout.Seconds()))

	// ExecuteQuery parameter defaults
	v.SetDefault("query.maxrows", peoplesoft.DefaultMaxRows)
	v.SetDefault("query.security", peoplesoft.DefaultSecurity)
	v.SetDefault("query.output_path", peoplesoft.DefaultOutputPath)
	v.SetDefault("query.connected", false)

	// History is opt-in
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", DefaultHistoryPath)

	v.SetDefault("batch.requests_per_minute", DefaultRequestsPerMinute)
}

// sensitiveEnvVars maps config keys to the extra environment variables that may set them.
// PSQ_<SECTION>_<KEY> always works; these are the short forms.
var sensitiveEnvVars = map[string][]string{
	"peoplesoft.base_url": {"PSQ_PEOPLESOFT_BASE_URL", "PSQ_BASE_URL"},
	"peoplesoft.username": {"PSQ_PEOPLESOFT_USERNAME", "PSQ_USERNAME"},
	"peoplesoft.password": {"PSQ_PEOPLESOFT_PASSWORD", "PSQ_PASSWORD"},
	"peoplesoft.ps_token": {"PSQ_PEOPLESOFT_PS_TOKEN", "PSQ_PS_TOKEN"},
}

// BindSensitiveEnvVars explicitly binds keys that have no default, so
// Unmarshal sees them when they are only set in the environment.
func BindSensitiveEnvVars(v *viper.Viper) {
	for key, envs := range sensitiveEnvVars {
		args := append([]string{key}, envs...)
		v.BindEnv(args...)
	}
}
