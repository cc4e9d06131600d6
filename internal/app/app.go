// Package app wires storage, lookup tables and the engine together from a
// configuration, for the guppy commands.
package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hailam/guppy/internal/book"
	"github.com/hailam/guppy/internal/config"
	"github.com/hailam/guppy/internal/engine"
	"github.com/hailam/guppy/internal/logging"
	"github.com/hailam/guppy/internal/storage"
	"github.com/hailam/guppy/internal/tablebase"
	"github.com/rs/zerolog"
)

// App holds the long-lived resources of a command.
type App struct {
	Config config.Config
	Log    zerolog.Logger

	// Store is nil when the database could not be opened.
	Store *storage.Store
	// Book combines the book file and the stored book. May be nil.
	Book engine.LookupTable
	// Tablebase is nil when disabled.
	Tablebase engine.LookupTable

	probes *tablebase.Cached
}

// Open builds an App. A database that cannot be opened is logged and the
// features depending on it are disabled; a book file that cannot be read is
// an error.
func Open(cfg config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log}

	store, err := openStore(cfg, logging.Component(log, "storage"))
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable, stored book and probe cache disabled")
	} else {
		a.Store = store
	}

	var books book.Composite
	if cfg.BookFile != "" {
		s, err := book.LoadFile(cfg.BookFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load book: %w", err)
		}
		log.Info().Str("file", cfg.BookFile).Int("positions", s.Size()).Msg("book loaded")
		books = append(books, s)
	}
	if cfg.StoredBook && a.Store != nil {
		books = append(books, book.NewStored(a.Store, logging.Component(log, "book")))
	}
	if len(books) > 0 {
		a.Book = books
	}

	if cfg.Tablebase {
		a.Tablebase = a.newTablebase()
	}
	return a, nil
}

func openStore(cfg config.Config, log zerolog.Logger) (*storage.Store, error) {
	if cfg.DataDir == "" {
		return storage.OpenDefault(log)
	}
	return storage.Open(filepath.Join(cfg.DataDir, "db"), log)
}

// prober is what the tablebase services have in common.
type prober interface {
	tablebase.Prober
	SetMaxPieces(n int)
}

func (a *App) newTablebase() engine.LookupTable {
	log := logging.Component(a.Log, "tablebase")

	var p prober
	if strings.Contains(a.Config.TablebaseURL, "lichess") {
		p = tablebase.NewLichess(a.Config.TablebaseURL, a.Config.TablebaseTimeout())
	} else {
		p = tablebase.NewSyzygy(a.Config.TablebaseURL, a.Config.TablebaseTimeout())
	}
	p.SetMaxPieces(a.Config.TablebaseMaxPieces)

	var store tablebase.Store
	if a.Store != nil {
		store = a.Store
	}
	a.probes = tablebase.NewCached(p, store, tablebase.DefaultCacheSize, log)
	return tablebase.NewTable(a.probes, log)
}

// Lookup returns the book followed by the tablebase, or nil when neither is
// configured.
func (a *App) Lookup() engine.LookupTable {
	var tables book.Composite
	if a.Book != nil {
		tables = append(tables, a.Book)
	}
	if a.Tablebase != nil {
		tables = append(tables, a.Tablebase)
	}
	if len(tables) == 0 {
		return nil
	}
	return tables
}

// EngineOptions returns the engine settings of the configuration, without
// a lookup table.
func (a *App) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(logging.Component(a.Log, "engine")),
		engine.WithWorkers(a.Config.Workers),
		engine.WithPlayoutPlies(a.Config.PlayoutPlies),
	}
	if a.Config.DiagramDir != "" {
		opts = append(opts, engine.WithDiagrams(a.Config.DiagramDir))
	}
	return opts
}

// Close releases the database.
func (a *App) Close() error {
	if a.probes != nil {
		a.Log.Debug().
			Int("cached", a.probes.CacheSize()).
			Float64("hit_rate", a.probes.HitRate()).
			Msg("tablebase cache")
	}
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}
