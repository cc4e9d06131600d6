package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/config"
	"github.com/hailam/guppy/internal/storage"
	"github.com/rs/zerolog"
)

func TestOpenWithBook(t *testing.T) {
	dir := t.TempDir()
	bookFile := filepath.Join(dir, "book.txt")
	if err := os.WriteFile(bookFile, []byte("d2d4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.BookFile = bookFile
	cfg.Tablebase = false

	a, err := Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer a.Close()

	if a.Store == nil || a.Book == nil || a.Tablebase != nil {
		t.Fatalf("App = %+v", a)
	}
	move, ok := a.Lookup().Lookup(context.Background(), board.NewStartBoard())
	if !ok || move != "d2d4" {
		t.Errorf("Lookup() = %q, %v; want d2d4", move, ok)
	}
	if len(a.EngineOptions()) != 3 {
		t.Errorf("EngineOptions() has %d options, want 3 without diagrams", len(a.EngineOptions()))
	}
}

func TestOpenStoredBook(t *testing.T) {
	dir := t.TempDir()
	s, err := storage.Open(filepath.Join(dir, "db"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	fen := board.NewStartBoard().FEN()
	if err := s.AddRecommendation(fen, storage.Recommendation{Move: "c2c4", Weight: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Tablebase = false
	a, err := Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	move, ok := a.Lookup().Lookup(context.Background(), board.NewStartBoard())
	if !ok || move != "c2c4" {
		t.Errorf("Lookup() = %q, %v; want the stored c2c4", move, ok)
	}
}

func TestOpenTablebase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bestmove": "c1c8", "wdl": 2}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.StoredBook = false
	cfg.TablebaseURL = srv.URL
	cfg.DiagramDir = t.TempDir()
	a, err := Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Book != nil {
		t.Error("Book configured without a book file or stored book")
	}
	b := board.NewBoard()
	if err := b.SetFEN("4k3/8/8/8/8/8/3K4/2Q5 w"); err != nil {
		t.Fatal(err)
	}
	move, ok := a.Lookup().Lookup(context.Background(), b)
	if !ok || move != "c1c8" {
		t.Errorf("Lookup() = %q, %v; want c1c8", move, ok)
	}
	if len(a.EngineOptions()) != 4 {
		t.Errorf("EngineOptions() has %d options, want 4 with diagrams", len(a.EngineOptions()))
	}
}

func TestOpenErrors(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.BookFile = filepath.Join(cfg.DataDir, "missing.txt")
	if _, err := Open(cfg, zerolog.Nop()); err == nil {
		t.Error("Expected error for a missing book file")
	}

	cfg = config.Default()
	cfg.Workers = 0
	if _, err := Open(cfg, zerolog.Nop()); err == nil {
		t.Error("Expected error for an invalid config")
	}
}

func TestNoLookup(t *testing.T) {
	a := &App{}
	if a.Lookup() != nil {
		t.Error("Lookup() should be nil without tables")
	}
	if err := a.Close(); err != nil {
		t.Error(err)
	}
}
