// Package config loads the runtime configuration for the action proxy and CLI.
// Values come from a TOML file, then from a .env file and SESSIONACTIONS_*
// environment variables, which override the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/joho/godotenv"

	"github.com/tansive/sessionactions/internal/action"
)

// ConfigFormatVersion is the current version of the configuration file format.
const ConfigFormatVersion = "0.1.0"

// supportedFormats accepts any 0.1.x configuration file.
var supportedFormats = mustConstraint("~0.1")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// DefaultRequestTimeout bounds requests when request_timeout is unusable.
const DefaultRequestTimeout = 60 * time.Second

// EnvPrefix is the prefix of environment variables that override the file.
const EnvPrefix = "SESSIONACTIONS_"

// LogConfig holds logging related configuration
type LogConfig struct {
	Level  string `toml:"level"`  // zerolog level name
	Format string `toml:"format"` // "json" or "console"
	Trace  bool   `toml:"trace"`  // print the route table on startup
}

// ConfigParam holds all configuration parameters
type ConfigParam struct {
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerPort         string `toml:"server_port"`           // Port for the action proxy
	HandleCORS         bool   `toml:"handle_cors"`           // Whether to handle CORS
	RequestTimeout     string `toml:"request_timeout"`       // Upper bound on a single request, e.g. "30s"
	MaxRequestBodySize int64  `toml:"max_request_body_size"` // Maximum size of request body in bytes

	// Action configuration
	DefaultAction string `toml:"default_action"` // Action served by /run before /init selects one
	AllowReinit   bool   `toml:"allow_reinit"`   // Whether /init may be called more than once

	Log LogConfig `toml:"log"`
}

// GetRequestTimeout returns the request timeout as time.Duration
func (c *ConfigParam) GetRequestTimeout() (time.Duration, error) {
	return ParseDuration(c.RequestTimeout)
}

// GetRequestTimeoutOrDefault returns the request timeout, falling back to
// DefaultRequestTimeout when the value is invalid
func (c *ConfigParam) GetRequestTimeoutOrDefault() time.Duration {
	d, err := c.GetRequestTimeout()
	if err != nil {
		return DefaultRequestTimeout
	}
	return d
}

// Default returns the configuration used when no file is given.
func Default() *ConfigParam {
	return &ConfigParam{
		FormatVersion:      ConfigFormatVersion,
		ServerPort:         "8080",
		RequestTimeout:     "60s",
		MaxRequestBodySize: 1 << 20,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var cfg = Default()

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// SetConfig replaces the current configuration. It is meant for tests and for
// commands that build a configuration from flags.
func SetConfig(c *ConfigParam) {
	cfg = c
}

// ParseDuration parses a duration string in the format "<number><unit>" where unit can be:
// - s: seconds
// - m: minutes
// - h: hours
// - d: days
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}

	var duration time.Duration
	switch unit {
	case "s":
		duration = time.Duration(value) * time.Second
	case "m":
		duration = time.Duration(value) * time.Minute
	case "h":
		duration = time.Duration(value) * time.Hour
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidatePort checks that port is a TCP port number between 1 and 65535.
func ValidatePort(port string) error {
	if port == "" {
		return fmt.Errorf("server_port is required")
	}
	if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid server_port: %s", port)
	}
	return nil
}

// ValidateConfig checks that all configuration values are valid and fills in
// defaults for optional ones.
func ValidateConfig(cfg *ConfigParam) error {
	v, err := semver.NewVersion(cfg.FormatVersion)
	if err != nil {
		return fmt.Errorf("invalid config file format version %q: %v", cfg.FormatVersion, err)
	}
	if !supportedFormats.Check(v) {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}

	if err := ValidatePort(cfg.ServerPort); err != nil {
		return err
	}

	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = Default().RequestTimeout
	}
	if _, err := ParseDuration(cfg.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %v", err)
	}

	if cfg.MaxRequestBodySize < 0 {
		return fmt.Errorf("max_request_body_size must not be negative")
	}
	if cfg.MaxRequestBodySize == 0 {
		cfg.MaxRequestBodySize = Default().MaxRequestBodySize
	}

	if cfg.DefaultAction != "" {
		if _, err := action.DefaultRegistry().Lookup(cfg.DefaultAction); err != nil {
			return fmt.Errorf("invalid default_action: %s", cfg.DefaultAction)
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "":
		cfg.Log.Format = "json"
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format: %s", cfg.Log.Format)
	}

	return nil
}

// LoadConfig loads configuration from a file, applies environment overrides,
// validates the result and makes it current. An empty filename starts from Default.
func LoadConfig(filename string) error {
	c := Default()
	if filename != "" {
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		c = &ConfigParam{}
		if _, err := toml.Decode(string(content), c); err != nil {
			return fmt.Errorf("error parsing config file: %v", err)
		}
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()
	if err := applyEnv(c); err != nil {
		return err
	}

	if err := ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	cfg = c
	return nil
}

func applyEnv(c *ConfigParam) error {
	if v, ok := lookupEnv("SERVER_PORT"); ok {
		c.ServerPort = v
	}
	if v, ok := lookupEnv("DEFAULT_ACTION"); ok {
		c.DefaultAction = v
	}
	if v, ok := lookupEnv("REQUEST_TIMEOUT"); ok {
		c.RequestTimeout = v
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	for name, dst := range map[string]*bool{
		"HANDLE_CORS":  &c.HandleCORS,
		"ALLOW_REINIT": &c.AllowReinit,
		"TRACE":        &c.Log.Trace,
	} {
		v, ok := lookupEnv(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %v", EnvPrefix, name, err)
		}
		*dst = b
	}
	if v, ok := lookupEnv("MAX_REQUEST_BODY_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_REQUEST_BODY_SIZE: %v", EnvPrefix, err)
		}
		c.MaxRequestBodySize = n
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
