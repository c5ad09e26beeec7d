package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"coinfeed/internal/scheduler"
)

// Config holds all configuration for the coinfeed application.
type Config struct {
	// Quote source
	Endpoint     string        `mapstructure:"endpoint"`
	NameField    string        `mapstructure:"name_field"`
	PriceField   string        `mapstructure:"price_field"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	UserAgent    string        `mapstructure:"user_agent"`

	// Refresh triggers
	RefreshSchedule        string `mapstructure:"refresh_schedule"`
	ManualRefreshPerMinute int    `mapstructure:"manual_refresh_per_minute"`

	// HTTP surface; empty disables it
	ListenAddr string `mapstructure:"listen_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory or $HOME/.coinfeed.
// Environment variables take precedence over config file values.
//
// Recognised environment variables:
//   - COINFEED_ENDPOINT
//   - COINFEED_NAME_FIELD, COINFEED_PRICE_FIELD
//   - COINFEED_FETCH_TIMEOUT (Go duration, e.g. 10s)
//   - COINFEED_USER_AGENT
//   - COINFEED_REFRESH_SCHEDULE (cron spec, @every descriptor, or seconds; empty disables)
//   - COINFEED_MANUAL_REFRESH_PER_MINUTE
//   - COINFEED_LISTEN_ADDR (empty disables the HTTP server)
//   - COINFEED_LOG_LEVEL, COINFEED_LOG_FORMAT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.coinfeed")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFile reads configuration from an explicit YAML file, still letting
// environment variables override it.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("endpoint", "http://www.coincap.io/front")
	v.SetDefault("name_field", "long")
	v.SetDefault("price_field", "price")
	v.SetDefault("fetch_timeout", "15s")
	v.SetDefault("user_agent", "coinfeed/1.0")
	v.SetDefault("refresh_schedule", "@every 1m")
	v.SetDefault("manual_refresh_per_minute", 6)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("coinfeed")
	v.AllowEmptyEnv(true)
	for _, key := range []string{
		"endpoint",
		"name_field",
		"price_field",
		"fetch_timeout",
		"user_agent",
		"refresh_schedule",
		"manual_refresh_per_minute",
		"listen_addr",
		"log_level",
		"log_format",
	} {
		v.BindEnv(key)
	}

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.Endpoint); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("endpoint %q must be an absolute http(s) URL", c.Endpoint))
	}
	if strings.TrimSpace(c.NameField) == "" {
		problems = append(problems, "name_field must not be empty")
	}
	if strings.TrimSpace(c.PriceField) == "" {
		problems = append(problems, "price_field must not be empty")
	}
	if c.FetchTimeout <= 0 {
		problems = append(problems, "fetch_timeout must be positive")
	}
	if c.RefreshSchedule != "" {
		if _, err := scheduler.ParseSpec(c.RefreshSchedule); err != nil {
			problems = append(problems, fmt.Sprintf("refresh_schedule: %v", err))
		}
	}
	if c.ManualRefreshPerMinute < 0 {
		problems = append(problems, "manual_refresh_per_minute must not be negative")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		problems = append(problems, fmt.Sprintf("log_level %q is not a valid level", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log_format %q must be text or json", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
