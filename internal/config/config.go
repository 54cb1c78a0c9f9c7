// Package config loads sanitizr settings from defaults, an optional YAML file
// and SANITIZR_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. SANITIZR_SERVER_ADDR.
const EnvPrefix = "SANITIZR"

// Config is the complete sanitizr configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sanitize SanitizeConfig `mapstructure:"sanitize"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins lists websocket origins accepted besides same-origin.
	// "*" accepts any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig configures the SQLite record store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// SchemaConfig points at the CUE type definitions.
type SchemaConfig struct {
	Dir string `mapstructure:"dir"`
}

// RedisConfig enables cross-instance broadcasting.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SanitizeConfig holds defaults for sanitizing operations.
type SanitizeConfig struct {
	DefaultUserClass string `mapstructure:"default_user_class"`
	MaxDepth         int    `mapstructure:"max_depth"`
}

// Load reads configuration. An empty path looks for sanitizr.yaml in the
// working directory and falls back to defaults when there is none; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sanitizr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration Load produces without file or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("store.path", "sanitizr.db")
	v.SetDefault("schema.dir", "./types")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sanitizr:")
	v.SetDefault("sanitize.default_user_class", "user")
	v.SetDefault("sanitize.max_depth", 64)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("server.addr must not be empty")
	case c.Server.ShutdownTimeout < 0:
		return fmt.Errorf("server.shutdown_timeout must not be negative, got: %s", c.Server.ShutdownTimeout)
	case c.Store.Path == "":
		return fmt.Errorf("store.path must not be empty")
	case c.Schema.Dir == "":
		return fmt.Errorf("schema.dir must not be empty")
	case c.Redis.Enabled && c.Redis.Addr == "":
		return fmt.Errorf("redis.addr is required when redis.enabled is set")
	case c.Redis.DB < 0:
		return fmt.Errorf("redis.db must not be negative, got: %d", c.Redis.DB)
	case c.Sanitize.DefaultUserClass == "":
		return fmt.Errorf("sanitize.default_user_class must not be empty")
	case c.Sanitize.MaxDepth < 0:
		return fmt.Errorf("sanitize.max_depth must not be negative, got: %d", c.Sanitize.MaxDepth)
	}
	return nil
}
