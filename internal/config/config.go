// Package config holds forgeone's runtime configuration: defaults, optional
// .env files and FORGEONE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lazypower/forgeone/internal/logging"
)

// Environment variables read by Load.
const (
	EnvBind      = "FORGEONE_BIND"
	EnvPort      = "FORGEONE_PORT"
	EnvDB        = "FORGEONE_DB"
	EnvJWTSecret = "FORGEONE_JWT_SECRET"
	EnvTimezone  = "FORGEONE_TIMEZONE"
	EnvLogLevel  = "FORGEONE_LOG_LEVEL"
	EnvLogFormat = "FORGEONE_LOG_FORMAT"
)

// Config holds all forgeone configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Engine   EngineConfig
	Log      LogConfig
}

type ServerConfig struct {
	Bind            string
	Port            int
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Path string // empty means store.DefaultDBPath()
}

type AuthConfig struct {
	// JWTSecret is the HS256 key bearer tokens are verified with.
	JWTSecret string
}

type EngineConfig struct {
	// Timezone is the IANA zone calendar dates are evaluated in.
	Timezone string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1",
			Port:            3001,
			ShutdownTimeout: 5 * time.Second,
		},
		Engine: EngineConfig{Timezone: "UTC"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load returns the defaults overlaid with the given .env files and then the
// process environment. With no paths, ./.env is read if present. Variables
// already set in the environment win over .env values.
func Load(paths ...string) (Config, error) {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(paths...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvBind); ok {
		c.Server.Bind = v
	}
	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a port number", EnvPort, v)
		}
		c.Server.Port = port
	}
	if v, ok := get(EnvDB); ok {
		c.Database.Path = v
	}
	if v, ok := get(EnvJWTSecret); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := get(EnvTimezone); ok {
		c.Engine.Timezone = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		c.Log.Format = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" || strings.EqualFold(c.Engine.Timezone, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Engine.Timezone, err)
	}
	return loc, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
