// Package config loads tutor settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application settings shared by every command.
type Config struct {
	DataDir      string `env:"TUTOR_DATA_DIR"      envDefault:"data"`
	DBPath       string `env:"TUTOR_DB"`
	PersonasFile string `env:"TUTOR_PERSONAS_FILE"`

	HTTPAddr string `env:"TUTOR_HTTP_ADDR" envDefault:":8080"`
	LogMode  string `env:"TUTOR_LOG_MODE"  envDefault:"dev"`

	ContentTimeout time.Duration `env:"TUTOR_CONTENT_TIMEOUT" envDefault:"45s"`
	SessionTTL     time.Duration `env:"TUTOR_SESSION_TTL"     envDefault:"2h"`
	IdleInterval   time.Duration `env:"TUTOR_IDLE_INTERVAL"   envDefault:"15s"`
	EventBuffer    int           `env:"TUTOR_EVENT_BUFFER"    envDefault:"256"`

	// ConfirmAdvance asks before leaving a point that was understood.
	ConfirmAdvance bool `env:"TUTOR_CONFIRM_ADVANCE" envDefault:"false"`
	// TraceStdout prints spans to stderr.
	TraceStdout bool `env:"TUTOR_TRACE_STDOUT" envDefault:"false"`
	// OTelEndpoint, when set, exports spans over OTLP/HTTP.
	OTelEndpoint string `env:"TUTOR_OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads .env and then the environment.
func Load() (Config, error) {
	var cfg Config
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.PersonasFile == "" {
		c.PersonasFile = defaultPersonasFile(c.DataDir)
	}
	if c.EventBuffer < 1 {
		c.EventBuffer = 1
	}
	return c
}

// WithDataDir moves the data root. A personas file derived from the old
// root follows it.
func (c Config) WithDataDir(dir string) Config {
	if c.PersonasFile == defaultPersonasFile(c.DataDir) {
		c.PersonasFile = defaultPersonasFile(dir)
	}
	c.DataDir = dir
	return c
}

func defaultPersonasFile(dataDir string) string {
	return filepath.Join(dataDir, "config", "personas_v1.yaml")
}

// BooksDir is the root of the book library.
func (c Config) BooksDir() string {
	return filepath.Join(c.DataDir, "books")
}

// StateDir holds the students document.
func (c Config) StateDir() string {
	return filepath.Join(c.DataDir, "state")
}
