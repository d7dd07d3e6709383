package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port int `env:"TUTOR_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("TUTOR_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TUTOR_DATA_DIR", "/srv/tutor")
	t.Setenv("TUTOR_CONTENT_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ContentTimeout != 5*time.Second {
		t.Errorf("ContentTimeout = %v, want 5s", cfg.ContentTimeout)
	}
	if cfg.SessionTTL != 2*time.Hour || cfg.EventBuffer != 256 || cfg.HTTPAddr != ":8080" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if want := filepath.Join("/srv/tutor", "config", "personas_v1.yaml"); cfg.PersonasFile != want {
		t.Errorf("PersonasFile = %q, want %q", cfg.PersonasFile, want)
	}
	if want := filepath.Join("/srv/tutor", "books"); cfg.BooksDir() != want {
		t.Errorf("BooksDir() = %q, want %q", cfg.BooksDir(), want)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TUTOR_HTTP_ADDR=:9999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("TUTOR_HTTP_ADDR") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want :9999", cfg.HTTPAddr)
	}
}

func TestWithDataDir(t *testing.T) {
	cfg := Config{DataDir: "data"}.withDefaults()
	moved := cfg.WithDataDir("/srv/books")
	if want := filepath.Join("/srv/books", "config", "personas_v1.yaml"); moved.PersonasFile != want {
		t.Errorf("PersonasFile = %q, want %q", moved.PersonasFile, want)
	}
	if moved.StateDir() != filepath.Join("/srv/books", "state") {
		t.Errorf("StateDir() = %q", moved.StateDir())
	}

	custom := Config{DataDir: "data", PersonasFile: "/etc/tutor/personas.yaml"}.WithDataDir("/srv/books")
	if custom.PersonasFile != "/etc/tutor/personas.yaml" {
		t.Errorf("explicit PersonasFile moved to %q", custom.PersonasFile)
	}
}
