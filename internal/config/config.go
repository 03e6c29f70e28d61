// Package config loads server configuration with the precedence
// defaults < YAML file < environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that YAML-encodes as a human-readable
// string ("30s") and accepts either a string or an integer nanosecond
// count when decoding.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete server configuration.
type Config struct {
	Terra   TerraConfig   `yaml:"terra"`
	Storage StorageConfig `yaml:"storage"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// TerraConfig holds the workflow platform API settings.
type TerraConfig struct {
	BaseURL        string   `yaml:"base_url" env:"TERRAMCP_TERRA_BASE_URL"`
	RequestTimeout Duration `yaml:"request_timeout" env:"TERRAMCP_TERRA_REQUEST_TIMEOUT"`
}

// StorageConfig holds the object-storage log fetcher settings.
type StorageConfig struct {
	Endpoint       string   `yaml:"endpoint" env:"TERRAMCP_STORAGE_ENDPOINT"`
	RequestTimeout Duration `yaml:"request_timeout" env:"TERRAMCP_STORAGE_REQUEST_TIMEOUT"`
}

// JobsConfig holds the backend job-status client settings.
type JobsConfig struct {
	Endpoint       string   `yaml:"endpoint" env:"TERRAMCP_JOBS_ENDPOINT"`
	RequestTimeout Duration `yaml:"request_timeout" env:"TERRAMCP_JOBS_REQUEST_TIMEOUT"`
}

// ServerConfig holds the MCP server and control-surface settings.
type ServerConfig struct {
	// Transport selects "stdio" or "http".
	Transport string `yaml:"transport" env:"TERRAMCP_TRANSPORT"`

	// HTTPAddress is used by the http transport.
	HTTPAddress string `yaml:"http_address" env:"TERRAMCP_HTTP_ADDRESS"`

	// ControlAddress serves healthz/readyz/version; empty disables it.
	ControlAddress string `yaml:"control_address" env:"TERRAMCP_CONTROL_ADDRESS"`

	// EnableWrites opens the mutating tools (submit, abort, upload,
	// update, copy). The server is read-only by default.
	EnableWrites bool `yaml:"enable_writes" env:"TERRAMCP_ENABLE_WRITES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" env:"TERRAMCP_LOG_LEVEL"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Terra: TerraConfig{
			BaseURL:        "https://api.firecloud.org",
			RequestTimeout: Duration(60 * time.Second),
		},
		Storage: StorageConfig{
			Endpoint:       "https://storage.googleapis.com",
			RequestTimeout: Duration(60 * time.Second),
		},
		Jobs: JobsConfig{
			Endpoint:       "https://lifesciences.googleapis.com/v2beta",
			RequestTimeout: Duration(60 * time.Second),
		},
		Server: ServerConfig{
			Transport:      "stdio",
			HTTPAddress:    ":8765",
			ControlAddress: "",
			EnableWrites:   false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (if any), then environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Terra.BaseURL == "" {
		return fmt.Errorf("terra.base_url must not be empty")
	}
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be \"stdio\" or \"http\", got %q", c.Server.Transport)
	}
	if c.Server.Transport == "http" && c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address must be set for the http transport")
	}
	return nil
}

// Serialize renders the config back to YAML.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyEnvOverrides walks struct fields tagged `env` and applies any
// set environment variables.
func applyEnvOverrides(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			if err := applyEnvOverrides(field); err != nil {
				return err
			}
			continue
		}
		envName := t.Field(i).Tag.Get("env")
		if envName == "" {
			continue
		}
		raw, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("%s: %w", envName, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Interface().(type) {
	case Duration, time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	default:
		return fmt.Errorf("unsupported config field kind %s", field.Kind())
	}
	return nil
}
