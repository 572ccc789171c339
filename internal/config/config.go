// Package config loads the application configuration.
//
// The YAML file path comes from (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Any field can be overridden by its env:"..." variable. The parsed values
// are returned as a *Config so one struct is shared by reference.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration structure. env-required:"true" fields
// make the app refuse to start when they are missing.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StoragePath is the filesystem path to the SQLite .db file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`

	// HTTPServer is embedded so its fields promote: cfg.Addr works as well
	// as cfg.HTTPServer.Addr.
	HTTPServer    `yaml:"http_server"`
	SMTP          SMTP          `yaml:"smtp"`
	Verification  Verification  `yaml:"verification"`
	Redis         Redis         `yaml:"redis"`
	ReferenceData ReferenceData `yaml:"reference_data"`
}

// HTTPServer holds settings for the HTTP server, nested under http_server:
// in the YAML file. The timeouts guard against slow clients holding
// connections open.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr         string        `yaml:"address"       env:"HTTP_SERVER_ADDR" env-required:"true"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  env:"HTTP_SERVER_READ_TIMEOUT"  env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"  env:"HTTP_SERVER_IDLE_TIMEOUT"  env-default:"60s"`
}

// SMTP is the outgoing mail server used for verification emails.
type SMTP struct {
	Host     string `yaml:"host"     env:"SMTP_HOST"     env-required:"true"`
	Port     int    `yaml:"port"     env:"SMTP_PORT"     env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from"     env:"SMTP_FROM"     env-required:"true"`
}

// Verification configures the account verification link sent to new
// students. The token is appended to BaseURL as the last path segment.
type Verification struct {
	BaseURL  string        `yaml:"base_url"  env:"VERIFICATION_BASE_URL"  env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"VERIFICATION_TOKEN_TTL" env-default:"24h"`
}

// Redis configures the class/section lookup cache. An empty Addr disables it.
type Redis struct {
	Addr     string        `yaml:"address"  env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"       env:"REDIS_DB"  env-default:"0"`
	TTL      time.Duration `yaml:"ttl"      env:"REDIS_TTL" env-default:"10m"`
}

// ReferenceData lists class and section names created at startup if missing.
type ReferenceData struct {
	Classes  []string `yaml:"classes"  env:"REFERENCE_CLASSES"  env-separator:","`
	Sections []string `yaml:"sections" env:"REFERENCE_SECTIONS" env-separator:","`
}

// ─────────────────────────────────────────────────────────────────────────────
// Load reads and validates the config file at path.
//
// cleanenv.ReadConfig parses the YAML, applies env overrides and
// env-default values, then checks env-required fields, in that order.
// ─────────────────────────────────────────────────────────────────────────────
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// MustLoad resolves the config path and returns the config, exiting the
// process if anything is wrong. If it returns, the config is valid.
//
// The "Must" prefix is the Go convention for functions that terminate
// instead of returning an error, like regexp.MustCompile.
// ─────────────────────────────────────────────────────────────────────────────
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		// flag.Parse reads os.Args, so --config works like any other CLI flag.
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}
