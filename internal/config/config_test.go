package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pushmon/pushmon/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.URL = "http://monitor.example.com/push/abc"
	return cfg
}

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := validConfig()

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "GET", cfg.Method)
	assert.Equal(t, 60*time.Second, cfg.Interval.Std())
	assert.Equal(t, "process", cfg.UptimeMode)
	assert.Equal(t, int64(10*1000*1000), cfg.LogMaxBytes())
}

func TestConfig_Validate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing url", func(c *Config) { c.URL = "" }, "url"},
		{"relative url", func(c *Config) { c.URL = "/push/abc" }, "url"},
		{"wrong scheme", func(c *Config) { c.URL = "ftp://x/push" }, "url"},
		{"empty method", func(c *Config) { c.Method = "  " }, "method"},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval"},
		{"negative interval", func(c *Config) { c.Interval = Duration(-time.Second) }, "interval"},
		{"bad bind address", func(c *Config) { c.LocalAddr = "not-an-ip" }, "from"},
		{"bad uptime mode", func(c *Config) { c.UptimeMode = "container" }, "uptime"},
		{"bad service command", func(c *Config) { c.Service = "restart" }, "service"},
		{"bad rotation size", func(c *Config) { c.LogMaxSize = "huge" }, "log-max-size"},
		{"negative retention", func(c *Config) { c.LogMaxFiles = -1 }, "log-max-files"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestConfig_Validate_NormalizesMethod(t *testing.T) {
	cfg := validConfig()
	cfg.Method = " post "

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "POST", cfg.Method)
}

func TestConfig_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"url: https://monitor.example.com/push/xyz\n"+
			"method: POST\n"+
			"interval: 90s\n"+
			"insecure: true\n"+
			"log: stderr\n"), 0o644))

	cfg, err := LoadFile(path, file.NewFileService())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://monitor.example.com/push/xyz", cfg.URL)
	assert.Equal(t, "POST", cfg.Method)
	assert.Equal(t, 90*time.Second, cfg.Interval.Std())
	assert.True(t, cfg.Insecure)
	assert.Equal(t, "stderr", cfg.Log)
	// untouched fields keep their defaults
	assert.Equal(t, "process", cfg.UptimeMode)
}

func TestConfig_LoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), file.NewFileService())
	assert.Error(t, err)
}

func TestConfig_Args_RendersNonDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Method = "POST"
	cfg.Interval = Duration(5 * time.Second)
	cfg.Insecure = true
	cfg.LocalAddr = "0.0.0.0"
	cfg.Verbose = true
	cfg.Log = "/var/log/pushmon"
	cfg.LogMaxFiles = 4
	cfg.Service = "install"
	require.NoError(t, cfg.Validate())

	args := cfg.Args()

	assert.Equal(t, []string{
		"--url", "http://monitor.example.com/push/abc",
		"--method", "POST",
		"--interval", "5s",
		"--insecure",
		"--from", "0.0.0.0",
		"--verbose",
		"--log", "/var/log/pushmon",
		"--log-max-files", "4",
	}, args)
	// the service command never round-trips into the installed arguments
	assert.NotContains(t, args, "--service")
}

func TestConfig_Args_DefaultsAreOmitted(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"--url", "http://monitor.example.com/push/abc"}, cfg.Args())
}
