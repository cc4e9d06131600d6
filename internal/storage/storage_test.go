package storage

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w"

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecommendations(t *testing.T) {
	s := openTemp(t)

	recs, err := s.Recommendations(startFEN)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no recommendations, got %v", recs)
	}

	for _, r := range []Recommendation{{"e2e4", 1}, {"d2d4", 0.5}, {"e2e4", 2}} {
		if err := s.AddRecommendation(startFEN, r); err != nil {
			t.Fatalf("AddRecommendation(%v): %v", r, err)
		}
	}

	recs, err = s.Recommendations(startFEN)
	if err != nil {
		t.Fatal(err)
	}
	want := []Recommendation{{"e2e4", 2}, {"d2d4", 0.5}}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("Recommendations mismatch (-want +got):\n%s", diff)
	}

	if err := s.AddRecommendation("8/8/8/8/8/8/8/K6k w", Recommendation{"a1a2", 1}); err != nil {
		t.Fatal(err)
	}
	fens, err := s.BookPositions()
	if err != nil {
		t.Fatal(err)
	}
	if len(fens) != 2 {
		t.Errorf("Expected 2 book positions, got %v", fens)
	}
}

func TestProbeRoundTrip(t *testing.T) {
	s := openTemp(t)

	type answer struct {
		WDL      int    `json:"wdl"`
		BestMove string `json:"bestmove"`
	}

	var got answer
	found, err := s.Probe("4k3/8/8/8/8/8/8/4K2Q w", &got)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("Expected no stored probe")
	}

	want := answer{WDL: 2, BestMove: "h1h7"}
	if err := s.PutProbe("4k3/8/8/8/8/8/8/4K2Q w", want); err != nil {
		t.Fatal(err)
	}
	found, err = s.Probe("4k3/8/8/8/8/8/8/4K2Q w", &got)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("Expected stored probe")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Probe mismatch (-want +got):\n%s", diff)
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddRecommendation(startFEN, Recommendation{"g1f3", 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	recs, err := s.Recommendations(startFEN)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Move != "g1f3" {
		t.Errorf("Recommendation lost across reopen: %v", recs)
	}
}

func TestInMemory(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.AddRecommendation(startFEN, Recommendation{"c2c4", 1}); err != nil {
		t.Fatal(err)
	}
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("DataDir returned empty path")
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	for _, f := range []func() (string, error){DatabaseDir, DiagramDir} {
		dir, err := f()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("Directory %s: %v", dir, err)
		}
	}
	t.Logf("Data directory: %s", dataDir)
}
