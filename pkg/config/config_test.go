package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Retrieval.K1 != 1.2 || cfg.Retrieval.B != 0.75 || cfg.Retrieval.Epsilon != 0.25 {
		t.Errorf("retrieval constants = %v/%v/%v, want 1.2/0.75/0.25",
			cfg.Retrieval.K1, cfg.Retrieval.B, cfg.Retrieval.Epsilon)
	}
	if cfg.Retrieval.RRFK != 60 {
		t.Errorf("Retrieval.RRFK = %d, want 60", cfg.Retrieval.RRFK)
	}
	if cfg.Vector.Backend != "tfidf" {
		t.Errorf("Vector.Backend = %q, want tfidf", cfg.Vector.Backend)
	}
	if cfg.LLM.Provider != "none" {
		t.Errorf("LLM.Provider = %q, want none", cfg.LLM.Provider)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9999
retrieval:
  k1: 1.5
vector:
  backend: sqlitevec
  timeout: 45s
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Retrieval.K1 != 1.5 {
		t.Errorf("Retrieval.K1 = %v, want 1.5", cfg.Retrieval.K1)
	}
	// Unset retrieval fields still pick up defaults.
	if cfg.Retrieval.B != 0.75 {
		t.Errorf("Retrieval.B = %v, want default 0.75", cfg.Retrieval.B)
	}
	if cfg.Vector.Backend != "sqlitevec" {
		t.Errorf("Vector.Backend = %q, want sqlitevec", cfg.Vector.Backend)
	}
	if cfg.Vector.Timeout != 45*time.Second {
		t.Errorf("Vector.Timeout = %v, want 45s", cfg.Vector.Timeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PA_SERVER_PORT", "7070")
	t.Setenv("PA_VECTOR_BACKEND", "sqlitevec")
	t.Setenv("PA_LLM_PROVIDER", "openai")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Vector.Backend != "sqlitevec" {
		t.Errorf("Vector.Backend = %q, want sqlitevec", cfg.Vector.Backend)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("LLM.Provider = %q, want openai", cfg.LLM.Provider)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5433, User: "u", Password: "p",
		Database: "d", SSLMode: "disable",
	}
	want := "host=db port=5433 user=u password=p dbname=d sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
