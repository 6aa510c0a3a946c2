// Package config reads the configuration from an ini file and BUZZ_* environment variables, which take precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/ini.v1"
)

type Config struct {
	Listen        string        `ini:"listen" envconfig:"LISTEN"`
	Database      string        `ini:"database" envconfig:"DATABASE"` // "memory:", "mongodb://..." or a url understood by github.com/xo/dburl
	MongoDatabase string        `ini:"mongo_database" envconfig:"MONGO_DATABASE"`
	AuthURI       string        `ini:"auth_uri" envconfig:"AUTH_URI"`
	AuthPingURI   string        `ini:"auth_ping_uri" envconfig:"AUTH_PING_URI"`
	AuthTimeout   time.Duration `ini:"auth_timeout" envconfig:"AUTH_TIMEOUT"`
	PolicyFile    string        `ini:"policy_file" envconfig:"POLICY_FILE"` // optional
	Environment   string        `ini:"environment" envconfig:"ENVIRONMENT"` // "development" or "production"
	LogLevel      string        `ini:"log_level" envconfig:"LOG_LEVEL"`
}

func Default() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		Database:      "sqlite3:buzz.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL",
		MongoDatabase: "buzz",
		AuthTimeout:   10 * time.Second,
		Environment:   "development",
		LogLevel:      "info",
	}
}

// Load reads the ini file, if path is not empty, and then the environment.
func Load(path string) (*Config, error) {

	var c = Default()

	if path != "" {
		file, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		if err := file.MapTo(c); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := envconfig.Process("buzz", c); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen is required")
	}
	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.AuthURI == "" {
		return errors.New("auth_uri is required")
	}
	if c.AuthPingURI == "" {
		return errors.New("auth_ping_uri is required")
	}
	if c.AuthTimeout <= 0 {
		return errors.New("auth_timeout must be positive")
	}
	if c.Environment != "development" && c.Environment != "production" {
		return fmt.Errorf(`environment must be "development" or "production", got %q`, c.Environment)
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
