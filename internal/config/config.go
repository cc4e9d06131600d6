// Package config holds the settings of the guppy commands: defaults, a JSON
// file, and GUPPY_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	LogLevel   string `json:"log_level"`
	LogConsole bool   `json:"log_console"`

	DataDir    string `json:"data_dir"`
	BookFile   string `json:"book_file"`
	StoredBook bool   `json:"stored_book"`
	DiagramDir string `json:"diagram_dir"`

	Tablebase          bool   `json:"tablebase"`
	TablebaseURL       string `json:"tablebase_url"`
	TablebaseMaxPieces int    `json:"tablebase_max_pieces"`
	TablebaseTimeoutMs int    `json:"tablebase_timeout_ms"`

	Workers      int `json:"workers"`
	PlayoutPlies int `json:"playout_plies"`
	ThinkMs      int `json:"think_ms"`

	ExternalEngine  string `json:"external_engine"`
	ExternalDepth   int    `json:"external_depth"`
	ExternalThreads int    `json:"external_threads"`
	ExternalHashMB  int    `json:"external_hash_mb"`

	ListenAddr string `json:"listen_addr"`
}

func Default() Config {
	return Config{
		LogLevel: "info",

		StoredBook: true,

		Tablebase:          true,
		TablebaseURL:       "http://syzygy-tables.info/api/v2",
		TablebaseMaxPieces: 7,
		TablebaseTimeoutMs: 5000,

		Workers:      runtime.GOMAXPROCS(0),
		PlayoutPlies: 200,
		ThinkMs:      5000,

		ExternalDepth:   12,
		ExternalThreads: 1,
		ExternalHashMB:  64,

		ListenAddr: ":8080",
	}
}

// Load reads a JSON file over the defaults. A missing file is not an error
// when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from GUPPY_<JSON NAME> variables, e.g.
// GUPPY_THINK_MS=2000. lookup is normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup("GUPPY_" + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup("GUPPY_" + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("GUPPY_%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup("GUPPY_" + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("GUPPY_%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	flag("LOG_CONSOLE", &c.LogConsole)
	str("DATA_DIR", &c.DataDir)
	str("BOOK_FILE", &c.BookFile)
	flag("STORED_BOOK", &c.StoredBook)
	str("DIAGRAM_DIR", &c.DiagramDir)
	flag("TABLEBASE", &c.Tablebase)
	str("TABLEBASE_URL", &c.TablebaseURL)
	num("TABLEBASE_MAX_PIECES", &c.TablebaseMaxPieces)
	num("TABLEBASE_TIMEOUT_MS", &c.TablebaseTimeoutMs)
	num("WORKERS", &c.Workers)
	num("PLAYOUT_PLIES", &c.PlayoutPlies)
	num("THINK_MS", &c.ThinkMs)
	str("EXTERNAL_ENGINE", &c.ExternalEngine)
	num("EXTERNAL_DEPTH", &c.ExternalDepth)
	num("EXTERNAL_THREADS", &c.ExternalThreads)
	num("EXTERNAL_HASH_MB", &c.ExternalHashMB)
	str("LISTEN_ADDR", &c.ListenAddr)

	return errors.Join(errs...)
}

// Validate reports every field that holds an unusable value.
func (c Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.PlayoutPlies < 1 {
		errs = append(errs, fmt.Errorf("playout_plies must be positive, got %d", c.PlayoutPlies))
	}
	if c.ThinkMs < 0 {
		errs = append(errs, fmt.Errorf("think_ms must not be negative, got %d", c.ThinkMs))
	}
	if c.Tablebase && (c.TablebaseMaxPieces < 3 || c.TablebaseMaxPieces > 7) {
		errs = append(errs, fmt.Errorf("tablebase_max_pieces must be within 3..7, got %d", c.TablebaseMaxPieces))
	}
	if c.ExternalEngine != "" && c.ExternalDepth < 1 {
		errs = append(errs, fmt.Errorf("external_depth must be positive, got %d", c.ExternalDepth))
	}
	return errors.Join(errs...)
}

// Think returns the default think time.
func (c Config) Think() time.Duration {
	return time.Duration(c.ThinkMs) * time.Millisecond
}

// TablebaseTimeout returns the tablebase request timeout.
func (c Config) TablebaseTimeout() time.Duration {
	return time.Duration(c.TablebaseTimeoutMs) * time.Millisecond
}

// Store holds the live configuration of a running server.
type Store struct {
	mu     sync.RWMutex
	config Config
}

func NewStore(c Config) *Store {
	return &Store{config: c}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Update replaces the configuration if it is valid.
func (s *Store) Update(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = c
	s.mu.Unlock()
	return nil
}
