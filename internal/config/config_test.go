package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guppy.json")
	data := `{"think_ms": 1500, "workers": 3, "book_file": "openings.txt", "tablebase": false}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Default()
	want.ThinkMs = 1500
	want.Workers = 3
	want.BookFile = "openings.txt"
	want.Tablebase = false
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
	if got.Think() != 1500*time.Millisecond {
		t.Errorf("Think() = %v", got.Think())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed JSON")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Empty path should give defaults (-want +got):\n%s", diff)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GUPPY_THINK_MS":      "250",
		"GUPPY_LOG_LEVEL":     "debug",
		"GUPPY_TABLEBASE":     "false",
		"GUPPY_LISTEN_ADDR":   "127.0.0.1:9000",
		"GUPPY_PLAYOUT_PLIES": "80",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}
	if cfg.ThinkMs != 250 || cfg.LogLevel != "debug" || cfg.Tablebase || cfg.ListenAddr != "127.0.0.1:9000" || cfg.PlayoutPlies != 80 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}

	env = map[string]string{"GUPPY_WORKERS": "many", "GUPPY_STORED_BOOK": "perhaps"}
	err := cfg.ApplyEnv(lookup)
	if err == nil {
		t.Fatal("Expected errors for malformed values")
	}
	for _, name := range []string{"GUPPY_WORKERS", "GUPPY_STORED_BOOK"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Error %q does not mention %s", err, name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"plies", func(c *Config) { c.PlayoutPlies = -1 }},
		{"think", func(c *Config) { c.ThinkMs = -5 }},
		{"tablebase pieces", func(c *Config) { c.TablebaseMaxPieces = 9 }},
		{"external depth", func(c *Config) { c.ExternalEngine = "stockfish"; c.ExternalDepth = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestStore(t *testing.T) {
	s := NewStore(Default())

	c := s.Get()
	c.ThinkMs = 100
	if err := s.Update(c); err != nil {
		t.Fatal(err)
	}
	if s.Get().ThinkMs != 100 {
		t.Errorf("Update not visible: %+v", s.Get())
	}

	c.Workers = 0
	if err := s.Update(c); err == nil {
		t.Error("Expected invalid update to fail")
	}
	if s.Get().Workers == 0 {
		t.Error("Invalid update was applied")
	}
}
