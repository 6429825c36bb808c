// Package config loads runtime settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Live-state distribution modes for clients
const (
	DistributionSSE  = "sse"
	DistributionWS   = "ws"
	DistributionPoll = "poll"
)

// Config holds all runtime settings
type Config struct {
	Port          int           `env:"PITCHVOTE_PORT" envDefault:"8081"`
	DBPath        string        `env:"PITCHVOTE_DB" envDefault:"pitchvote.db"`
	Store         string        `env:"PITCHVOTE_STORE" envDefault:"sqlite"`
	MongoURI      string        `env:"PITCHVOTE_MONGO_URI"`
	MongoDB       string        `env:"PITCHVOTE_MONGO_DB" envDefault:"pitchvote"`
	AdminPassword string        `env:"PITCHVOTE_ADMIN_PASSWORD"`
	LogLevel      string        `env:"PITCHVOTE_LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"PITCHVOTE_LOG_FORMAT" envDefault:"text"`
	Distribution  string        `env:"PITCHVOTE_DISTRIBUTION" envDefault:"sse"`
	PollInterval  time.Duration `env:"PITCHVOTE_POLL_INTERVAL" envDefault:"3s"`
	Heartbeat     time.Duration `env:"PITCHVOTE_HEARTBEAT" envDefault:"25s"`
	BaseURL       string        `env:"PITCHVOTE_BASE_URL"`
	EnvFile       string        `env:"PITCHVOTE_ENV_FILE" envDefault:".env"`
	NoBrowser     bool          `env:"PITCHVOTE_NO_BROWSER"`
	NoKeyboard    bool          `env:"PITCHVOTE_NO_KEYBOARD"`
	NoAnimate     bool          `env:"PITCHVOTE_NO_ANIMATE"`

	// ShowVersion is flag-only
	ShowVersion bool
}

// Load reads .env (if present), then the environment, then args.
// Flags given on the command line win over both.
func Load(args []string, stderr io.Writer) (*Config, error) {
	envFile := os.Getenv("PITCHVOTE_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env is normal
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("pitchvote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "Storage backend (sqlite, mongo)")
	fs.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection URI")
	fs.StringVar(&cfg.MongoDB, "mongo-db", cfg.MongoDB, "MongoDB database name")
	fs.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "Admin password (auto-generated if empty)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	fs.StringVar(&cfg.Distribution, "distribution", cfg.Distribution, "Live-state distribution for clients (sse, ws, poll)")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Client polling interval")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Stream heartbeat interval")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Public base URL used in the audience QR code")
	fs.BoolVar(&cfg.NoBrowser, "no-browser", cfg.NoBrowser, "Do not open the admin page on startup")
	fs.BoolVar(&cfg.NoKeyboard, "no-keyboard", cfg.NoKeyboard, "Disable keyboard shortcuts")
	fs.BoolVar(&cfg.NoAnimate, "no-animate", cfg.NoAnimate, "Skip the startup animation")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.EnvFile = envFile
	if cfg.ShowVersion {
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	c.Store = strings.ToLower(c.Store)
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("database path is required for the sqlite store")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("PITCHVOTE_MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	c.Distribution = strings.ToLower(c.Distribution)
	switch c.Distribution {
	case DistributionSSE, DistributionWS, DistributionPoll:
	default:
		return fmt.Errorf("unknown distribution %q", c.Distribution)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive")
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AudienceBaseURL returns BaseURL, or a localhost URL when it is unset
func (c *Config) AudienceBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}
