package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/config"
	"github.com/hailam/guppy/internal/diagram"
	"github.com/hailam/guppy/internal/storage"
	"github.com/rs/zerolog"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Tablebase = false
	cfg.Workers = 2
	cfg.PlayoutPlies = 20
	return cfg
}

func TestEvalStatic(t *testing.T) {
	var out bytes.Buffer
	stdin := strings.NewReader("# positions\n" + board.StartFEN + "\n\n4k3/8/8/8/8/8/8/3QK3 w\n")
	err := dispatch(context.Background(), testConfig(t), zerolog.Nop(), []string{"eval", "-static", "-"}, stdin, &out)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Got %d lines, want 2:\n%s", len(lines), out.String())
	}
	if !strings.HasSuffix(lines[0], "\t"+board.StartFEN) {
		t.Errorf("First line is not the start position:\n%s", out.String())
	}
	value, _, _ := strings.Cut(lines[1], "\t")
	if v, err := strconv.ParseFloat(value, 64); err != nil || v < 3 {
		t.Errorf("Extra queen scored %q, want a clear white advantage", value)
	}
}

func TestEvalPlaying(t *testing.T) {
	var out bytes.Buffer
	err := dispatch(context.Background(), testConfig(t), zerolog.Nop(),
		[]string{"eval", "-games", "10", "7k/8/8/8/8/8/8/K6R w", "not/a/fen x"}, nil, &out)
	if err == nil {
		t.Error("Expected error for the bad FEN")
	}
	if !strings.Contains(out.String(), "1.0000\t7k/8/8/8/8/8/8/K6R w") {
		t.Errorf("Winning position not scored 1:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "error\tnot/a/fen x") {
		t.Errorf("Bad FEN not reported:\n%s", out.String())
	}
}

func TestDiagramCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	err := dispatch(context.Background(), testConfig(t), zerolog.Nop(),
		[]string{"diagram", "-o", path, "-size", "24", "-think", "50", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", "w"}, nil, nil)
	if err != nil {
		t.Fatalf("diagram error: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("Output is not a PNG: %v", err)
	}
}

func TestDiagramDefaultDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.DiagramDir = t.TempDir()
	if err := dispatch(context.Background(), cfg, zerolog.Nop(), []string{"diagram", "-values"}, nil, nil); err != nil {
		t.Fatalf("diagram error: %v", err)
	}
	want := filepath.Join(cfg.DiagramDir, diagram.FileName(board.NewStartBoard()))
	if _, err := os.Stat(want); err != nil {
		t.Errorf("Diagram not written to %s: %v", want, err)
	}
}

func TestImportBook(t *testing.T) {
	cfg := testConfig(t)
	file := filepath.Join(t.TempDir(), "book.txt")
	if err := os.WriteFile(file, []byte("e2e4 2\n. e7e5\nd2d4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := dispatch(context.Background(), cfg, zerolog.Nop(), []string{"import-book", file}, nil, nil); err != nil {
		t.Fatalf("import-book error: %v", err)
	}

	s, err := storage.Open(filepath.Join(cfg.DataDir, "db"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	recs, err := s.Recommendations(board.NewStartBoard().FEN())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("Start position has %d stored moves, want 2: %+v", len(recs), recs)
	}
}

func TestDispatchErrors(t *testing.T) {
	cfg := testConfig(t)
	for _, args := range [][]string{
		{"fly"},
		{"import-book"},
		{"eval"},
		{"diagram", "-o", filepath.Join(t.TempDir(), "x.png"), "9/9", "w"},
	} {
		if err := dispatch(context.Background(), cfg, zerolog.Nop(), args, strings.NewReader(""), &bytes.Buffer{}); err == nil {
			t.Errorf("dispatch(%q) succeeded", args)
		}
	}
}
