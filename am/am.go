package am

// Config represents the psq configuration
type Config struct {
	PeopleSoft PeopleSoftConfig `mapstructure:"peoplesoft" toml:"peoplesoft" json:"peoplesoft" yaml:"peoplesoft"`
	Query      QueryConfig      `mapstructure:"query" toml:"query" json:"query" yaml:"query"`
	History    HistoryConfig    `mapstructure:"history" toml:"history" json:"history" yaml:"history"`
	Batch      BatchConfig      `mapstructure:"batch" toml:"batch" json:"batch" yaml:"batch"`
}

// PeopleSoftConfig configures the Integration Broker endpoint and credentials
type PeopleSoftConfig struct {
	BaseURL  string `mapstructure:"base_url" toml:"base_url" json:"base_url" yaml:"base_url"` // .../PSIGW/RESTListeningConnector/PSFT_EP/ExecuteQuery.v1
	Username string `mapstructure:"username" toml:"username" json:"username" yaml:"username"` // Basic auth user (empty = no Authorization header)
	Password string `mapstructure:"password" toml:"password" json:"password" yaml:"password"`
	PSToken  string `mapstructure:"ps_token" toml:"ps_token" json:"ps_token" yaml:"ps_token"` // PS_TOKEN cookie value

	// Verify is true/false, or a path to a PEM CA bundle to verify against
	Verify any `mapstructure:"verify" toml:"verify" json:"verify" yaml:"verify"`

	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"` // 0 = client default (60)
}

// QueryConfig holds the default ExecuteQuery parameters
type QueryConfig struct {
	MaxRows    int    `mapstructure:"maxrows" toml:"maxrows" json:"maxrows" yaml:"maxrows"`
	Security   string `mapstructure:"security" toml:"security" json:"security" yaml:"security"`          // public or private
	OutputPath string `mapstructure:"output_path" toml:"output_path" json:"output_path" yaml:"output_path"` // may be empty
	Connected  bool   `mapstructure:"connected" toml:"connected" json:"connected" yaml:"connected"`
}

// HistoryConfig configures the local run ledger
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" toml:"path" json:"path" yaml:"path"` // SQLite file, ~ expanded
}

// BatchConfig configures batch runs
type BatchConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute" yaml:"requests_per_minute"` // 0 = unpaced
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0600 // Config holds credentials (rw-------)
)

// ConfigFileName is the file name searched for in every cascade location
const ConfigFileName = "psq.toml"

// EnvPrefix prefixes every environment override (PSQ_PEOPLESOFT_BASE_URL, ...)
const EnvPrefix = "PSQ"
