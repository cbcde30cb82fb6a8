package am

import (
	"net/url"
	"os"

	"github.com/teranos/psq/errors"
)

// Validate checks that the configuration is usable for a query
func (c *Config) Validate() error {
	if c.PeopleSoft.BaseURL == "" {
		return errors.WithHint(
			errors.NewInvalidConfigError("peoplesoft.base_url is not set"),
			"set peoplesoft.base_url in psq.toml or PSQ_PEOPLESOFT_BASE_URL",
		)
	}
	u, err := url.Parse(c.PeopleSoft.BaseURL)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "peoplesoft.base_url is not a valid URL"), errors.ErrInvalidConfig)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewInvalidConfigError("peoplesoft.base_url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.NewInvalidConfigError("peoplesoft.base_url has no host: %q", c.PeopleSoft.BaseURL)
	}

	if c.PeopleSoft.Password != "" && c.PeopleSoft.Username == "" {
		return errors.WithHint(
			errors.NewInvalidConfigError("peoplesoft.password is set without peoplesoft.username"),
			"Basic auth needs both; use peoplesoft.ps_token for token-only access",
		)
	}

	tlsCfg, err := c.PeopleSoft.TLS()
	if err != nil {
		return err
	}
	if tlsCfg.CABundle != "" {
		if _, err := os.Stat(tlsCfg.CABundle); err != nil {
			return errors.Mark(errors.Wrap(err, "peoplesoft.verify CA bundle"), errors.ErrInvalidConfig)
		}
	}

	// Timeout: 0 = client default, negative = invalid
	if c.PeopleSoft.TimeoutSeconds < 0 {
		return errors.NewInvalidConfigError("peoplesoft.timeout_seconds must be >= 0, got %d", c.PeopleSoft.TimeoutSeconds)
	}

	if c.Query.MaxRows <= 0 {
		return errors.NewInvalidConfigError("query.maxrows must be positive, got %d", c.Query.MaxRows)
	}

	if c.History.Enabled && c.History.Path == "" {
		return errors.NewInvalidConfigError("history.path is empty while history.enabled is true")
	}

	// Pacing: 0 = unpaced, negative = invalid
	if c.Batch.RequestsPerMinute < 0 {
		return errors.NewInvalidConfigError("batch.requests_per_minute must be >= 0, got %d", c.Batch.RequestsPerMinute)
	}

	return nil
}
