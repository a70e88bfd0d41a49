// Package config holds the immutable runtime configuration, assembled once
// at startup from flags and/or a YAML file and validated before anything
// else runs.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pushmon/pushmon/pkg/file"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use "90s" style values.
type Duration time.Duration

// UnmarshalYAML parses durations in time.ParseDuration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ValidationError marks a configuration problem detected before startup.
// It is always fatal: the process must not start with a broken config.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Config represents the agent's runtime configuration. It is treated as
// read-only after Validate has run.
type Config struct {
	URL         string   `yaml:"url"`           // push endpoint, absolute http(s) URL
	Method      string   `yaml:"method"`        // HTTP method for the heartbeat request
	Interval    Duration `yaml:"interval"`      // time between heartbeat ticks
	Insecure    bool     `yaml:"insecure"`      // skip TLS certificate validation
	LocalAddr   string   `yaml:"from"`          // optional local bind address for egress
	Verbose     bool     `yaml:"verbose"`       // enable debug logging
	Log         string   `yaml:"log"`           // none | stdout | stderr | <file> | <dir>
	LogMaxSize  string   `yaml:"log_max_size"`  // rotation threshold, e.g. "10MB"
	LogMaxFiles int      `yaml:"log_max_files"` // rotated files to keep, 0 = unbounded
	UptimeMode  string   `yaml:"uptime"`        // process | host
	Service     string   `yaml:"service"`       // install | uninstall | start | stop | run

	logMaxBytes int64
}

// Default returns a Config with the documented default values applied.
func Default() *Config {
	return &Config{
		Method:     "GET",
		Interval:   Duration(60 * time.Second),
		LogMaxSize: "10MB",
		UptimeMode: "process",
	}
}

// LoadFile reads a YAML configuration file on top of the defaults.
func LoadFile(filename string, fileClient file.FileOperations) (*Config, error) {
	config := Default()
	if err := fileClient.ReadYamlFile(filename, config); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", filename, err)
	}
	return config, nil
}

// Validate normalizes the configuration and rejects anything the agent
// cannot start with. Call exactly once, before the config is shared.
func (c *Config) Validate() error {
	if c.URL == "" {
		return &ValidationError{Field: "url", Reason: "required"}
	}
	parsed, err := url.Parse(c.URL)
	if err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return &ValidationError{Field: "url", Reason: "must be an absolute http or https URL"}
	}
	if parsed.Host == "" {
		return &ValidationError{Field: "url", Reason: "missing host"}
	}

	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" || strings.ContainsAny(c.Method, " \t") {
		return &ValidationError{Field: "method", Reason: "must be a single HTTP method token"}
	}

	if c.Interval.Std() <= 0 {
		return &ValidationError{Field: "interval", Reason: "must be greater than zero"}
	}

	if c.LocalAddr != "" && net.ParseIP(c.LocalAddr) == nil {
		return &ValidationError{Field: "from", Reason: fmt.Sprintf("%q is not an IP address", c.LocalAddr)}
	}

	switch c.UptimeMode {
	case "process", "host":
	default:
		return &ValidationError{Field: "uptime", Reason: "must be one of process, host"}
	}

	switch c.Service {
	case "", "install", "uninstall", "start", "stop", "run":
	default:
		return &ValidationError{Field: "service", Reason: "must be one of install, uninstall, start, stop, run"}
	}

	size, err := humanize.ParseBytes(c.LogMaxSize)
	if err != nil {
		return &ValidationError{Field: "log-max-size", Reason: err.Error()}
	}
	c.logMaxBytes = int64(size)

	if c.LogMaxFiles < 0 {
		return &ValidationError{Field: "log-max-files", Reason: "must not be negative"}
	}

	return nil
}

// LogMaxBytes returns the parsed rotation threshold. Valid only after
// Validate has succeeded.
func (c *Config) LogMaxBytes() int64 {
	return c.logMaxBytes
}

// Args re-renders the effective configuration as command-line arguments, so
// a service registration runs the binary with the same settings. The service
// command itself is deliberately excluded; the supervisor appends its own.
func (c *Config) Args() []string {
	defaults := Default()

	args := []string{"--url", c.URL}
	if c.Method != defaults.Method {
		args = append(args, "--method", c.Method)
	}
	if c.Interval != defaults.Interval {
		args = append(args, "--interval", c.Interval.Std().String())
	}
	if c.Insecure {
		args = append(args, "--insecure")
	}
	if c.LocalAddr != "" {
		args = append(args, "--from", c.LocalAddr)
	}
	if c.Verbose {
		args = append(args, "--verbose")
	}
	if c.Log != "" {
		args = append(args, "--log", c.Log)
	}
	if c.LogMaxSize != defaults.LogMaxSize {
		args = append(args, "--log-max-size", c.LogMaxSize)
	}
	if c.LogMaxFiles != 0 {
		args = append(args, "--log-max-files", strconv.Itoa(c.LogMaxFiles))
	}
	if c.UptimeMode != defaults.UptimeMode {
		args = append(args, "--uptime", c.UptimeMode)
	}
	return args
}
