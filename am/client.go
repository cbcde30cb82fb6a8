package am

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/peoplesoft"
)

// RedactedValue replaces secrets in printed configuration
const RedactedValue = "********"

// TLS interprets peoplesoft.verify: a bool (or "true"/"false" from the
// environment) toggles verification, any other string is a CA bundle path.
func (p PeopleSoftConfig) TLS() (peoplesoft.TLSConfig, error) {
	switch v := p.Verify.(type) {
	case nil:
		return peoplesoft.TLSConfig{}, nil
	case bool:
		return peoplesoft.TLSConfig{InsecureSkipVerify: !v}, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return peoplesoft.TLSConfig{}, nil
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return peoplesoft.TLSConfig{InsecureSkipVerify: !b}, nil
		}
		return peoplesoft.TLSConfig{CABundle: ExpandPath(s)}, nil
	default:
		return peoplesoft.TLSConfig{}, errors.NewInvalidConfigError(
			"peoplesoft.verify must be true, false, or a CA bundle path, got %T", p.Verify)
	}
}

// Timeout returns the request timeout; zero means the client default
func (p PeopleSoftConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ClientConfig builds a peoplesoft.Config. Credentials are set only when a
// username is configured; the token only when non-empty.
func (c *Config) ClientConfig(log *zap.SugaredLogger) (peoplesoft.Config, error) {
	tlsCfg, err := c.PeopleSoft.TLS()
	if err != nil {
		return peoplesoft.Config{}, err
	}

	cfg := peoplesoft.Config{
		BaseURL: c.PeopleSoft.BaseURL,
		Token:   c.PeopleSoft.PSToken,
		TLS:     tlsCfg,
		Timeout: c.PeopleSoft.Timeout(),
		Logger:  log,
	}
	if c.PeopleSoft.Username != "" {
		cfg.Credentials = &peoplesoft.Credentials{
			Username: c.PeopleSoft.Username,
			Password: c.PeopleSoft.Password,
		}
	}
	return cfg, nil
}

// QueryOptions returns the configured ExecuteQuery defaults
func (c *Config) QueryOptions() peoplesoft.QueryOptions {
	return peoplesoft.QueryOptions{
		MaxRows:    c.Query.MaxRows,
		Connected:  c.Query.Connected,
		Security:   c.Query.Security,
		OutputPath: c.Query.OutputPath,
	}
}

// HistoryPath returns history.path with ~ expanded
func (c *Config) HistoryPath() string {
	return ExpandPath(c.History.Path)
}

// Redacted returns a copy safe to print: password and token are masked
func (c *Config) Redacted() Config {
	out := *c
	if out.PeopleSoft.Password != "" {
		out.PeopleSoft.Password = RedactedValue
	}
	if out.PeopleSoft.PSToken != "" {
		out.PeopleSoft.PSToken = RedactedValue
	}
	return out
}

// String returns a short summary of the config
func (c *Config) String() string {
	return "Config{BaseURL: " + c.PeopleSoft.BaseURL +
		", Security: " + c.Query.Security +
		", MaxRows: " + strconv.Itoa(c.Query.MaxRows) +
		", History: " + strconv.FormatBool(c.History.Enabled) + "}"
}
