// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development against a dev server.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "CHATSYNC_CONFIG"

// Config is the master configuration for a chatsync client.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Server configures the HTTP API and the realtime channel endpoint.
	Server ServerConfig `yaml:"server"`

	// Chat configures conversation behavior.
	Chat ChatConfig `yaml:"chat"`

	// Channel configures the realtime channel client.
	Channel ChannelConfig `yaml:"channel"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the sections that can be overridden per
// environment. Zero values in an override leave the base value alone.
type ConfigOverrides struct {
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Chat    *ChatConfig    `yaml:"chat,omitempty"`
	Channel *ChannelConfig `yaml:"channel,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// ServerConfig configures the remote endpoints.
type ServerConfig struct {
	// APIURL is the base URL of the history and roster HTTP API.
	APIURL string `yaml:"api_url"`

	// APITokenEnv names the environment variable holding the bearer
	// token. Default: CHATSYNC_TOKEN
	APITokenEnv string `yaml:"api_token_env"`

	// ChannelNetwork is "tcp" or "unix".
	ChannelNetwork string `yaml:"channel_network"`

	// ChannelAddress is the host:port or socket path of the realtime
	// channel.
	ChannelAddress string `yaml:"channel_address"`

	// Compression is "none" or "zstd".
	Compression string `yaml:"compression"`
}

// ChatConfig configures conversation behavior.
type ChatConfig struct {
	// PageSize is the number of messages requested per history page.
	PageSize int `yaml:"page_size"`

	// TypingIdle is how long the composer must be quiet before a
	// stop-typing intent is sent. Default: 1s
	TypingIdle time.Duration `yaml:"typing_idle"`

	// TypingMaxAge evicts a peer from the typing set when no stop event
	// arrives within this window. Zero disables eviction. Default: 5s
	TypingMaxAge time.Duration `yaml:"typing_max_age"`

	// Timezone is the IANA zone used for date bucket labels. Empty
	// means the local zone.
	Timezone string `yaml:"timezone"`
}

// ChannelConfig configures the realtime channel client.
type ChannelConfig struct {
	// IntentRate is the sustained outbound intents per second.
	IntentRate float64 `yaml:"intent_rate"`

	// IntentBurst is the outbound intent burst size.
	IntentBurst int `yaml:"intent_burst"`

	// ReconnectInitial is the first reconnect delay. Default: 1s
	ReconnectInitial time.Duration `yaml:"reconnect_initial"`

	// ReconnectMax caps the exponential reconnect delay. Default: 30s
	ReconnectMax time.Duration `yaml:"reconnect_max"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Output is an optional path for a JSON log file.
	Output string `yaml:"output"`
}

// Default returns the default configuration, used as the base before
// the config file is applied. The file itself is still required.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			APIURL:         "http://localhost:8080",
			APITokenEnv:    "CHATSYNC_TOKEN",
			ChannelNetwork: "tcp",
			ChannelAddress: "localhost:8081",
			Compression:    "none",
		},
		Chat: ChatConfig{
			PageSize:     50,
			TypingIdle:   time.Second,
			TypingMaxAge: 5 * time.Second,
		},
		Channel: ChannelConfig{
			IntentRate:       10,
			IntentBurst:      20,
			ReconnectInitial: time.Second,
			ReconnectMax:     30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the CHATSYNC_CONFIG environment
// variable. There is no fallback when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your chatsync.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, applies the
// environment overrides, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder serves both once
		// comments and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			// Production without an explicit section keeps logging quiet.
			overrides = &ConfigOverrides{Log: &LogConfig{Level: "warn"}}
		}
	}
	if overrides == nil {
		return
	}

	if server := overrides.Server; server != nil {
		overrideString(&c.Server.APIURL, server.APIURL)
		overrideString(&c.Server.APITokenEnv, server.APITokenEnv)
		overrideString(&c.Server.ChannelNetwork, server.ChannelNetwork)
		overrideString(&c.Server.ChannelAddress, server.ChannelAddress)
		overrideString(&c.Server.Compression, server.Compression)
	}
	if chat := overrides.Chat; chat != nil {
		if chat.PageSize != 0 {
			c.Chat.PageSize = chat.PageSize
		}
		overrideDuration(&c.Chat.TypingIdle, chat.TypingIdle)
		overrideDuration(&c.Chat.TypingMaxAge, chat.TypingMaxAge)
		overrideString(&c.Chat.Timezone, chat.Timezone)
	}
	if channel := overrides.Channel; channel != nil {
		if channel.IntentRate != 0 {
			c.Channel.IntentRate = channel.IntentRate
		}
		if channel.IntentBurst != 0 {
			c.Channel.IntentBurst = channel.IntentBurst
		}
		overrideDuration(&c.Channel.ReconnectInitial, channel.ReconnectInitial)
		overrideDuration(&c.Channel.ReconnectMax, channel.ReconnectMax)
	}
	if log := overrides.Log; log != nil {
		overrideString(&c.Log.Level, log.Level)
		overrideString(&c.Log.Output, log.Output)
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func overrideDuration(target *time.Duration, value time.Duration) {
	if value != 0 {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Server.APIURL = expandVars(c.Server.APIURL, vars)
	c.Server.ChannelAddress = expandVars(c.Server.ChannelAddress, vars)
	c.Log.Output = expandVars(c.Log.Output, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Server.APIURL == "" {
		errs = append(errs, errors.New("server.api_url is required"))
	} else if !strings.HasPrefix(c.Server.APIURL, "http://") && !strings.HasPrefix(c.Server.APIURL, "https://") {
		errs = append(errs, fmt.Errorf("server.api_url must be an http or https URL: %s", c.Server.APIURL))
	}
	if c.Server.ChannelNetwork != "tcp" && c.Server.ChannelNetwork != "unix" {
		errs = append(errs, fmt.Errorf("server.channel_network must be tcp or unix, got %q", c.Server.ChannelNetwork))
	}
	if c.Server.ChannelAddress == "" {
		errs = append(errs, errors.New("server.channel_address is required"))
	}
	if c.Server.Compression != "none" && c.Server.Compression != "zstd" {
		errs = append(errs, fmt.Errorf("server.compression must be none or zstd, got %q", c.Server.Compression))
	}

	if c.Chat.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("chat.page_size must be positive, got %d", c.Chat.PageSize))
	}
	if c.Chat.TypingIdle <= 0 {
		errs = append(errs, fmt.Errorf("chat.typing_idle must be positive, got %s", c.Chat.TypingIdle))
	}
	if c.Chat.TypingMaxAge < 0 {
		errs = append(errs, fmt.Errorf("chat.typing_max_age must not be negative, got %s", c.Chat.TypingMaxAge))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	if c.Channel.IntentRate <= 0 {
		errs = append(errs, fmt.Errorf("channel.intent_rate must be positive, got %v", c.Channel.IntentRate))
	}
	if c.Channel.IntentBurst <= 0 {
		errs = append(errs, fmt.Errorf("channel.intent_burst must be positive, got %d", c.Channel.IntentBurst))
	}
	if c.Channel.ReconnectInitial <= 0 || c.Channel.ReconnectMax < c.Channel.ReconnectInitial {
		errs = append(errs, fmt.Errorf("channel reconnect backoff must satisfy 0 < reconnect_initial (%s) <= reconnect_max (%s)",
			c.Channel.ReconnectInitial, c.Channel.ReconnectMax))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location returns the time zone for date bucket labels.
func (c *Config) Location() (*time.Location, error) {
	if c.Chat.Timezone == "" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(c.Chat.Timezone)
	if err != nil {
		return nil, fmt.Errorf("chat.timezone: %w", err)
	}
	return location, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// APIToken returns the bearer token from the environment variable
// named by Server.APITokenEnv. An unset variable yields "".
func (c *Config) APIToken() string {
	if c.Server.APITokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Server.APITokenEnv)
}
