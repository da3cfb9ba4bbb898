package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetSingleton() {
	instance = nil
	once = sync.Once{}
	loadErr = nil
}

// TestGetUninitialized verifies that calling Get() before Load() causes a panic.
func TestGetUninitialized(t *testing.T) {
	resetSingleton()

	assert.Panics(t, func() {
		Get()
	}, "Get() should panic if configuration is not initialized")
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := NewDefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, EngineChrome, cfg.Browser.Engine)
	assert.Equal(t, "https://el-gr.facebook.com/", cfg.Site.LandingURL)
	assert.Equal(t, 10*time.Second, cfg.Site.WaitTimeout)
	assert.Equal(t, `//a[@href]`, cfg.Site.Selectors.Links)
	assert.Equal(t, time.Second, cfg.Humanoid.ActionPause.Min)
	assert.Equal(t, 4*time.Second, cfg.Humanoid.ActionPause.Max)
	assert.Equal(t, 7*time.Second, cfg.Humanoid.SessionBreak.Min)
	assert.Equal(t, 10*time.Second, cfg.Humanoid.SessionBreak.Max)
	assert.Equal(t, 2*time.Second, cfg.Humanoid.Settle)
	assert.Equal(t, 0.5, cfg.Scenario.BrowseProbability)
	assert.Equal(t, 10*time.Second, cfg.Scenario.LoadOverhead)
	assert.Equal(t, 10, cfg.Scenario.MaxClickAttempts)
	assert.Equal(t, 100, cfg.Scenario.MessageLength)
	assert.Equal(t, "15:04:05", cfg.Logger.TimeFormat)
}

// TestLoadAndGet verifies the basic singleton load and get functionality.
func TestLoadAndGet(t *testing.T) {
	resetSingleton()

	yamlConfig := []byte(`
browser:
  engine: remote
  remote_url: "ws://127.0.0.1:9222"
scenario:
  browse_probability: 0.25
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	require.NoError(t, Load(v))

	cfg := Get()
	require.NotNil(t, cfg)
	assert.Equal(t, EngineRemote, cfg.Browser.Engine)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser.RemoteURL)
	assert.Equal(t, 0.25, cfg.Scenario.BrowseProbability)
	assert.Equal(t, 10, cfg.Scenario.MaxClickAttempts, "defaults should fill unset keys")

	// Subsequent calls to Load must not replace the instance.
	v2 := viper.New()
	v2.SetConfigType("yaml")
	_ = v2.ReadConfig(bytes.NewBufferString(`browser: {engine: chrome}`))
	require.NoError(t, Load(v2))

	assert.Same(t, cfg, Get(), "Get() should return the same instance")
	assert.Equal(t, EngineRemote, Get().Browser.Engine, "Configuration should not be reloaded")
}

// TestConfigValidation verifies the Validate() method.
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:     "unknown engine",
			mutate:   func(c *Config) { c.Browser.Engine = "firefox" },
			errorMsg: `browser.engine "firefox" is not supported`,
		},
		{
			name:     "remote without url",
			mutate:   func(c *Config) { c.Browser.Engine = EngineRemote },
			errorMsg: "browser.remote_url is required",
		},
		{
			name:     "missing landing url",
			mutate:   func(c *Config) { c.Site.LandingURL = "" },
			errorMsg: "site.landing_url is a required configuration field",
		},
		{
			name:     "zero wait timeout",
			mutate:   func(c *Config) { c.Site.WaitTimeout = 0 },
			errorMsg: "site.wait_timeout must be positive",
		},
		{
			name:     "inverted action pause",
			mutate:   func(c *Config) { c.Humanoid.ActionPause.Min = 5 * time.Second },
			errorMsg: "humanoid.action_pause",
		},
		{
			name:     "probability above one",
			mutate:   func(c *Config) { c.Scenario.BrowseProbability = 1.5 },
			errorMsg: "scenario.browse_probability must be within [0, 1]",
		},
		{
			name:     "zero click attempts",
			mutate:   func(c *Config) { c.Scenario.MaxClickAttempts = 0 },
			errorMsg: "scenario.max_click_attempts must be a positive integer",
		},
		{
			name:     "zero message length",
			mutate:   func(c *Config) { c.Scenario.MessageLength = 0 },
			errorMsg: "scenario.message_length must be a positive integer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errorMsg)
		})
	}
}

// TestConfigStructureMapping verifies that the YAML keys map onto the struct fields.
func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  format: json
  log_file: /var/log/feedwalker.log
browser:
  headless: true
  exec_path: /usr/bin/chromium
  args: ["--lang=el-GR"]
site:
  wait_timeout: 15s
  queries_file: queries.txt
  selectors:
    search: '//input[@name="q"]'
humanoid:
  action_pause:
    min: 500ms
    max: 1500ms
  idle_cursor: true
scenario:
  load_overhead: 4s
`
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/var/log/feedwalker.log", cfg.Logger.LogFile)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ExecPath)
	assert.Equal(t, []string{"--lang=el-GR"}, cfg.Browser.Args)
	assert.Equal(t, 15*time.Second, cfg.Site.WaitTimeout)
	assert.Equal(t, "queries.txt", cfg.Site.QueriesFile)
	assert.Equal(t, `//input[@name="q"]`, cfg.Site.Selectors.Search)
	assert.Equal(t, 500*time.Millisecond, cfg.Humanoid.ActionPause.Min)
	assert.Equal(t, 1500*time.Millisecond, cfg.Humanoid.ActionPause.Max)
	assert.True(t, cfg.Humanoid.IdleCursor)
	assert.Equal(t, 4*time.Second, cfg.Scenario.LoadOverhead)
}

// TestSet ensures that the Set function correctly sets the global instance.
func TestSet(t *testing.T) {
	resetSingleton()

	expected := NewDefaultConfig()
	expected.Site.LandingURL = "https://set-from-test.example"
	Set(expected)

	actual := Get()
	assert.Same(t, expected, actual, "Get should return the exact instance that was Set")
	assert.Equal(t, "https://set-from-test.example", actual.Site.LandingURL)
}

func TestLoadCredentials(t *testing.T) {
	t.Run("both variables set", func(t *testing.T) {
		t.Setenv("FACEBOOK_EMAIL1", "user@example.com")
		t.Setenv("FACEBOOK_PASSWORD1", "hunter2")

		creds, err := LoadCredentials()
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", creds.Username)
		assert.Equal(t, "hunter2", creds.Password)
		assert.NotContains(t, creds.String(), "hunter2")
	})

	t.Run("password missing", func(t *testing.T) {
		t.Setenv("FACEBOOK_EMAIL1", "user@example.com")
		t.Setenv("FACEBOOK_PASSWORD1", "")

		_, err := LoadCredentials()
		assert.Error(t, err)
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "FEEDWALKER_TEST_EMAIL=\"file@example.com\"\nFEEDWALKER_TEST_PRESET=from-file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("FEEDWALKER_TEST_PRESET", "from-env")
	// Registered with t.Setenv so the exported value is cleaned up afterwards.
	t.Setenv("FEEDWALKER_TEST_EMAIL", "")
	require.NoError(t, os.Unsetenv("FEEDWALKER_TEST_EMAIL"))

	n, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "file@example.com", os.Getenv("FEEDWALKER_TEST_EMAIL"))
	assert.Equal(t, "from-env", os.Getenv("FEEDWALKER_TEST_PRESET"), "existing variables win")
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	n, err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = LoadDotEnv("")
	assert.NoError(t, err)
	assert.Zero(t, n)
}
