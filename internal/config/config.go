// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package config loads RosterCraft settings from defaults, an optional YAML
// file, ROSTERCRAFT_* environment variables and command-line flags, in that
// order of precedence (flags win).
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROSTERCRAFT_"

// Error codes.
const (
	CodeLoadFailed    = "CONFIG_LOAD_FAILED"
	CodeInvalidConfig = "CONFIG_INVALID"
)

// Default values.
const (
	DefaultAPIAddr        = "127.0.0.1:8080"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultRemoteURL      = "http://127.0.0.1:8080"
	DefaultWriteLimit     = 60
	DefaultConnectTimeout = 30 * time.Second
	DefaultRemoteTimeout  = 10 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// Config is the full RosterCraft configuration.
type Config struct {
	Database Database `koanf:"database"`
	API      API      `koanf:"api"`
	Metrics  Metrics  `koanf:"metrics"`
	Remote   Remote   `koanf:"remote"`
	Log      Log      `koanf:"log"`
}

// Database configures the PostgreSQL connection.
type Database struct {
	URL string `koanf:"url"`
	// ConnectTimeout bounds the retries made while the database comes up.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// API configures the HTTP API listener.
type API struct {
	Addr string `koanf:"addr"`
	// WriteLimit is the number of write requests allowed per client per minute.
	WriteLimit int `koanf:"write_limit"`
}

// Metrics configures the observability listener. An empty Addr disables it.
type Metrics struct {
	Addr string `koanf:"addr"`
}

// Remote configures the API client used by the CLI.
type Remote struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// Log configures logging.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() map[string]any {
	return map[string]any{
		"database.url":             os.Getenv("DATABASE_URL"),
		"database.connect_timeout": DefaultConnectTimeout.String(),
		"api.addr":                 DefaultAPIAddr,
		"api.write_limit":          DefaultWriteLimit,
		"metrics.addr":             DefaultMetricsAddr,
		"remote.url":               DefaultRemoteURL,
		"remote.timeout":           DefaultRemoteTimeout.String(),
		"log.level":                DefaultLogLevel,
		"log.format":               DefaultLogFormat,
	}
}

// Load builds a Config. path may be empty, and flags may be nil. Flag names
// map to keys by turning the first dash into a dot and the rest into
// underscores, so --database-connect-timeout sets database.connect_timeout.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code(CodeLoadFailed).With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeLoadFailed).With("path", path).Wrapf(err, "read config file")
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code(CodeLoadFailed).Wrapf(err, "read environment")
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeLoadFailed).Wrapf(err, "read flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeLoadFailed).Wrapf(err, "decode config")
	}
	return &cfg, nil
}

// envKey maps ROSTERCRAFT_API_WRITE_LIMIT to api.write_limit.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.Replace(name, "_", ".", 1)
}

func flagKey(name string) string {
	section, rest, found := strings.Cut(name, "-")
	if !found {
		return name
	}
	return section + "." + strings.ReplaceAll(rest, "-", "_")
}

// Validate checks the settings every command relies on. Command-specific
// requirements, such as a database URL, are checked by RequireDatabase.
func (c *Config) Validate() error {
	errb := oops.Code(CodeInvalidConfig)
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return errb.With("log_format", c.Log.Format).Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.API.Addr == "" {
		return errb.Errorf("api.addr is required")
	}
	if c.API.WriteLimit <= 0 {
		return errb.With("write_limit", c.API.WriteLimit).Errorf("api.write_limit must be positive")
	}
	if c.Remote.Timeout <= 0 {
		return errb.Errorf("remote.timeout must be positive")
	}
	if c.Database.ConnectTimeout <= 0 {
		return errb.Errorf("database.connect_timeout must be positive")
	}
	u, err := url.Parse(c.Remote.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errb.With("remote_url", c.Remote.URL).Errorf("remote.url must be an http(s) URL")
	}
	return nil
}

// RequireDatabase fails when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return oops.Code(CodeInvalidConfig).
			Errorf("database URL is required (set --database-url, %sDATABASE_URL or DATABASE_URL)", EnvPrefix)
	}
	return nil
}
