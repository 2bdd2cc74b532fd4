// Package config provides configuration management for the askql CLI.
//
// Values are merged from four sources with the usual precedence:
// flags > environment variables (ASKQL_ prefix) > config file
// (askql.yaml) > defaults.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/askql-labs/askql/internal/backend"
)

// Default configuration values.
const (
	DefaultServerURL   = "http://localhost:8000"
	DefaultModel       = "primary"
	DefaultOutput      = "table"
	DefaultHistoryFile = ".askql_history"
	DefaultServePort   = 8787
)

// envPrefix is the prefix for environment variable overrides,
// e.g. ASKQL_SERVER_URL.
const envPrefix = "ASKQL_"

// ServeConfig holds configuration for the facade server.
type ServeConfig struct {
	Port int `koanf:"port"`
}

// Config holds all CLI configuration options.
type Config struct {
	ServerURL      string       `koanf:"server_url"`
	Model          string       `koanf:"model"`
	OutputFormat   string       `koanf:"output"`
	TimeoutSeconds int          `koanf:"timeout_seconds"`
	HistoryFile    string       `koanf:"history_file"`
	Verbose        bool         `koanf:"verbose"`
	Serve          *ServeConfig `koanf:"serve"`
}

// loggerKey is used to store the logger in context.
type loggerKey struct{}

var (
	configFileUsed string
	currentConfig  *Config
)

// findConfigFile finds the config file to use.
// Priority: explicit path > askql.yaml > askql.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"askql.yaml", "askql.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadConfig loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file
// > defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server_url":      DefaultServerURL,
		"model":           DefaultModel,
		"output":          DefaultOutput,
		"timeout_seconds": 0,
		"history_file":    DefaultHistoryFile,
		"verbose":         false,
		"serve.port":      DefaultServePort,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: ASKQL_SERVER_URL -> server_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case flag names to snake_case config keys.
			key := strings.ReplaceAll(f.Name, "-", "_")
			// The CLI uses --server for brevity; the config key is server_url.
			if key == "server" {
				return "server_url", posflag.FlagVal(flags, f)
			}
			if key == "timeout" {
				return "timeout_seconds", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig = &cfg
	return &cfg, nil
}

// GetCurrentConfig returns the most recently loaded config, nil when
// LoadConfig has not run.
func GetCurrentConfig() *Config {
	return currentConfig
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context, discarding when none
// was stored.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if !backend.ModelType(c.Model).Valid() {
		return fmt.Errorf("invalid model %q: must be %q or %q", c.Model, backend.ModelPrimary, backend.ModelSecondary)
	}
	switch c.OutputFormat {
	case "table", "json", "csv", "md", "markdown":
	default:
		return fmt.Errorf("invalid output format %q: must be table, json, csv, or md", c.OutputFormat)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	return nil
}

// ModelType returns the configured model selector.
func (c *Config) ModelType() backend.ModelType {
	return backend.ModelType(c.Model)
}

// Timeout returns the configured request timeout. Zero means calls run
// until the service settles them.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ServePort returns the facade server port with the default applied.
func (c *Config) ServePort() int {
	if c.Serve == nil || c.Serve.Port == 0 {
		return DefaultServePort
	}
	return c.Serve.Port
}

// GetConfigFileUsed returns the path of the config file that was read,
// if any.
func GetConfigFileUsed() string {
	return configFileUsed
}
