package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/peoplesoft"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance, no user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Query.MaxRows != 1000 {
		t.Errorf("expected default maxrows 1000, got %d", cfg.Query.MaxRows)
	}
	if cfg.Query.Security != "public" {
		t.Errorf("expected default security public, got %q", cfg.Query.Security)
	}
	if cfg.Query.OutputPath != "XMLP/NONFILE" {
		t.Errorf("expected default output path XMLP/NONFILE, got %q", cfg.Query.OutputPath)
	}
	if cfg.PeopleSoft.TimeoutSeconds != 60 {
		t.Errorf("expected default timeout 60, got %d", cfg.PeopleSoft.TimeoutSeconds)
	}
	if cfg.History.Enabled {
		t.Error("history should be opt-in")
	}
	if got := cfg.QueryOptions(); got != peoplesoft.DefaultQueryOptions() {
		t.Errorf("QueryOptions() = %+v, want defaults", got)
	}
}

func validConfig() Config {
	return Config{
		PeopleSoft: PeopleSoftConfig{
			BaseURL:        "https://ps.example.com/PSIGW/RESTListeningConnector/PSFT_EP/ExecuteQuery.v1",
			Username:       "PSREST",
			Password:       "s3cret",
			Verify:         true,
			TimeoutSeconds: 60,
		},
		Query:   QueryConfig{MaxRows: 1000, Security: "public", OutputPath: "XMLP/NONFILE"},
		History: HistoryConfig{Path: DefaultHistoryPath},
		Batch:   BatchConfig{RequestsPerMinute: 30},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty output path is valid", mutate: func(c *Config) { c.Query.OutputPath = "" }},
		{name: "zero timeout uses client default", mutate: func(c *Config) { c.PeopleSoft.TimeoutSeconds = 0 }},
		{name: "token only", mutate: func(c *Config) {
			c.PeopleSoft.Username, c.PeopleSoft.Password, c.PeopleSoft.PSToken = "", "", "tok"
		}},
		{name: "missing base url", mutate: func(c *Config) { c.PeopleSoft.BaseURL = "" }, wantErr: "base_url is not set"},
		{name: "ftp base url", mutate: func(c *Config) { c.PeopleSoft.BaseURL = "ftp://ps.example.com/x" }, wantErr: "http or https"},
		{name: "no host", mutate: func(c *Config) { c.PeopleSoft.BaseURL = "https:///x" }, wantErr: "no host"},
		{name: "password without user", mutate: func(c *Config) { c.PeopleSoft.Username = "" }, wantErr: "without peoplesoft.username"},
		{name: "negative timeout", mutate: func(c *Config) { c.PeopleSoft.TimeoutSeconds = -1 }, wantErr: "timeout_seconds"},
		{name: "zero maxrows", mutate: func(c *Config) { c.Query.MaxRows = 0 }, wantErr: "maxrows"},
		{name: "security passed through", mutate: func(c *Config) { c.Query.Security = "PUBLIC" }},
		{name: "missing CA bundle", mutate: func(c *Config) { c.PeopleSoft.Verify = "/nonexistent/ca.pem" }, wantErr: "CA bundle"},
		{name: "bad verify type", mutate: func(c *Config) { c.PeopleSoft.Verify = 3 }, wantErr: "peoplesoft.verify"},
		{name: "history without path", mutate: func(c *Config) { c.History.Enabled, c.History.Path = true, "" }, wantErr: "history.path"},
		{name: "negative pacing", mutate: func(c *Config) { c.Batch.RequestsPerMinute = -1 }, wantErr: "requests_per_minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "expected ErrInvalidConfig mark: %v", err)
		})
	}
}

func TestPeopleSoftConfig_TLS(t *testing.T) {
	tests := []struct {
		name   string
		verify any
		want   peoplesoft.TLSConfig
	}{
		{"unset verifies", nil, peoplesoft.TLSConfig{}},
		{"true", true, peoplesoft.TLSConfig{}},
		{"false", false, peoplesoft.TLSConfig{InsecureSkipVerify: true}},
		{"env string false", "false", peoplesoft.TLSConfig{InsecureSkipVerify: true}},
		{"env string true", "true", peoplesoft.TLSConfig{}},
		{"empty string", "", peoplesoft.TLSConfig{}},
		{"bundle path", "/etc/ssl/corp-ca.pem", peoplesoft.TLSConfig{CABundle: "/etc/ssl/corp-ca.pem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeopleSoftConfig{Verify: tt.verify}.TLS()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientConfig(t *testing.T) {
	cfg := validConfig()
	cfg.PeopleSoft.PSToken = "tok"
	cfg.PeopleSoft.TimeoutSeconds = 15

	cc, err := cfg.ClientConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.PeopleSoft.BaseURL, cc.BaseURL)
	require.NotNil(t, cc.Credentials)
	assert.Equal(t, "PSREST", cc.Credentials.Username)
	assert.Equal(t, "s3cret", cc.Credentials.Password)
	assert.Equal(t, "tok", cc.Token)
	assert.Equal(t, int64(15), int64(cc.Timeout.Seconds()))

	cfg.PeopleSoft.Username = ""
	cc, err = cfg.ClientConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cc.Credentials, "no username means no Authorization header")
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.PeopleSoft.PSToken = "tok"

	red := cfg.Redacted()
	assert.Equal(t, "********", red.PeopleSoft.Password)
	assert.Equal(t, "********", red.PeopleSoft.PSToken)
	assert.Equal(t, "s3cret", cfg.PeopleSoft.Password, "original must not change")

	cfg.PeopleSoft.Password = ""
	assert.Empty(t, cfg.Redacted().PeopleSoft.Password)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psq.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[peoplesoft]
base_url = "https://ps.example.com/ExecuteQuery.v1"
verify = "/etc/ssl/corp-ca.pem"

[query]
maxrows = 50
output_path = ""
`), 0600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ps.example.com/ExecuteQuery.v1", cfg.PeopleSoft.BaseURL)
	assert.Equal(t, 50, cfg.Query.MaxRows)
	assert.Equal(t, "", cfg.Query.OutputPath)
	assert.Equal(t, "public", cfg.Query.Security, "defaults still apply")

	tlsCfg, err := cfg.PeopleSoft.TLS()
	require.NoError(t, err)
	assert.Equal(t, "/etc/ssl/corp-ca.pem", tlsCfg.CABundle)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

// setupCascade points HOME and the working directory at fresh temp dirs
func setupCascade(t *testing.T) (home, project string) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	home = t.TempDir()
	project = t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(project); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home, project
}

func TestLoad_Cascade(t *testing.T) {
	home, project := setupCascade(t)

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".psq"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".psq", ConfigFileName), []byte(`
[peoplesoft]
base_url = "https://user.example.com/ExecuteQuery.v1"
username = "PSREST"

[query]
maxrows = 200
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(project, ConfigFileName), []byte(`
[peoplesoft]
base_url = "https://project.example.com/ExecuteQuery.v1"
`), 0600))
	t.Setenv("PSQ_PASSWORD", "from-env")
	t.Setenv("PSQ_QUERY_SECURITY", "private")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://project.example.com/ExecuteQuery.v1", cfg.PeopleSoft.BaseURL, "project overrides user")
	assert.Equal(t, "PSREST", cfg.PeopleSoft.Username, "sections merge rather than replace")
	assert.Equal(t, 200, cfg.Query.MaxRows)
	assert.Equal(t, "from-env", cfg.PeopleSoft.Password)
	assert.Equal(t, "private", cfg.Query.Security)

	assert.Equal(t, SourceProject, ConfigSources["peoplesoft.base_url"].Source)
	assert.Equal(t, SourceUser, ConfigSources["peoplesoft.username"].Source)
	assert.Equal(t, SourceUser, ConfigSources["query.maxrows"].Source)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	_, _ = setupCascade(t)

	path := filepath.Join(t.TempDir(), "prod.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[peoplesoft]
base_url = "https://prod.example.com/ExecuteQuery.v1"
`), 0600))

	SetConfigFile(path)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com/ExecuteQuery.v1", cfg.PeopleSoft.BaseURL)
	assert.Equal(t, SourceExplicit, ConfigSources["peoplesoft.base_url"].Source)

	Reset()
	SetConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestGetConfigIntrospection(t *testing.T) {
	home, _ := setupCascade(t)

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".psq"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".psq", ConfigFileName), []byte(`
[peoplesoft]
password = "file-secret"
`), 0600))
	t.Setenv("PSQ_QUERY_MAXROWS", "25")

	intro, err := GetConfigIntrospection()
	require.NoError(t, err)

	byKey := map[string]SettingInfo{}
	for _, s := range intro.Settings {
		byKey[s.Key] = s
	}

	assert.Equal(t, "********", byKey["peoplesoft.password"].Value)
	assert.Equal(t, SourceUser, byKey["peoplesoft.password"].Source)
	assert.Equal(t, SourceEnvironment, byKey["query.maxrows"].Source)
	assert.Equal(t, "PSQ_QUERY_MAXROWS", byKey["query.maxrows"].SourcePath)
	assert.Equal(t, SourceDefault, byKey["query.security"].Source)
}

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".psq", ConfigFileName)

	require.NoError(t, SetValue(path, "peoplesoft.base_url", "https://ps.example.com/ExecuteQuery.v1"))
	require.NoError(t, SetValue(path, "query.maxrows", ParseValue("250")))
	require.NoError(t, SetValue(path, "peoplesoft.verify", ParseValue("false")))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://ps.example.com/ExecuteQuery.v1", cfg.PeopleSoft.BaseURL)
	assert.Equal(t, 250, cfg.Query.MaxRows)
	assert.Equal(t, false, cfg.PeopleSoft.Verify)

	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err, "previous version is backed up")

	err = SetValue(path, "query.nope", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	require.NoError(t, WriteStarter(path, false))
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Query.MaxRows)

	assert.Error(t, WriteStarter(path, false), "existing file is kept")
	assert.NoError(t, WriteStarter(path, true))

	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/ps")
	assert.Equal(t, "/home/ps/.psq/history.db", ExpandPath("~/.psq/history.db"))
	assert.Equal(t, "/var/lib/psq.db", ExpandPath("/var/lib/psq.db"))
}
