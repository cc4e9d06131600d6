package uci

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/engine"
	"github.com/rs/zerolog"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// run feeds commands to a fresh handler and returns its output.
func run(t *testing.T, opts Options, commands ...string) string {
	t.Helper()
	opts.Log = zerolog.Nop()
	u := New(engine.New(engine.WithSeed(11), engine.WithPlayoutPlies(20)), opts)
	var out syncBuffer
	in := strings.NewReader(strings.Join(commands, "\n") + "\n")
	if err := u.Run(context.Background(), in, &out); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return out.String()
}

func bestMove(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if m, ok := strings.CutPrefix(line, "bestmove "); ok {
			return m
		}
	}
	t.Fatalf("No bestmove in output:\n%s", out)
	return ""
}

func TestHandshake(t *testing.T) {
	out := run(t, Options{}, "uci", "isready", "quit", "isready")

	for _, want := range []string{"id name guppy 0.1", "option name Threads", "option name BookFile", "uciok", "readyok"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output does not contain %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "readyok") != 1 {
		t.Errorf("Commands after quit were handled:\n%s", out)
	}
}

func TestPositionAndGo(t *testing.T) {
	out := run(t, Options{}, "position startpos moves e2e4 e7e5", "d", "go movetime 100", "isready")

	if !strings.Contains(out, "FEN: rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w") {
		t.Errorf("Position not set up:\n%s", out)
	}

	b := board.NewStartBoard()
	for _, m := range []string{"e2e4", "e7e5"} {
		if err := b.MoveUCI(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := applyMove(b, bestMove(t, out)); err != nil {
		t.Errorf("bestmove is not legal: %v", err)
	}
	if !strings.Contains(out, "info score cp ") {
		t.Errorf("No score reported:\n%s", out)
	}
}

func TestPositionFEN(t *testing.T) {
	out := run(t, Options{}, "position fen 4k3/8/8/8/8/8/8/4K2R w KQkq - 0 1 moves h1h8", "d")
	if !strings.Contains(out, "FEN: 4k2R/8/8/8/8/8/8/4K3 b") {
		t.Errorf("Move not applied:\n%s", out)
	}
}

func TestPositionGUIMoves(t *testing.T) {
	tests := []struct {
		name     string
		position string
		want     string
	}{
		{
			"castling",
			"position startpos moves e2e4 e7e5 g1f3 b8c6 f1c4 g8f6 e1g1",
			"r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 b",
		},
		{
			"check answered by capture",
			"position fen 4k3/8/8/8/8/8/3q4/3QK3 w moves d1d2",
			"4k3/8/8/8/8/8/3Q4/4K3 b",
		},
		{
			"check answered by block",
			"position fen 4k3/8/8/8/8/8/1N6/r3K3 w moves b2d1",
			"4k3/8/8/8/8/8/8/r2NK3 b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, Options{}, tt.position, "d")
			if strings.Contains(out, "invalid move") {
				t.Errorf("Move rejected:\n%s", out)
			}
			if !strings.Contains(out, "FEN: "+tt.want) {
				t.Errorf("Output does not contain FEN %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestInvalidPositionKeepsBoard(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"bad fen", "position fen 9/8 w", "info string invalid FEN"},
		{"illegal move", "position startpos moves e2e5", "info string invalid move"},
		{"missing piece", "position startpos moves e3e4", "info string invalid move"},
		{"own piece", "position startpos moves e2e4 e7e5 a1a2", "info string invalid move"},
		{"wrong side", "position startpos moves e7e5", "info string invalid move"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, Options{}, "position startpos moves d2d4", tt.command, "d")
			if !strings.Contains(out, tt.want) {
				t.Errorf("Output does not contain %q:\n%s", tt.want, out)
			}
			if !strings.Contains(out, "FEN: rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b") {
				t.Errorf("Previous position was replaced:\n%s", out)
			}
		})
	}
}

func TestNoLegalMoves(t *testing.T) {
	// Black is stalemated.
	out := run(t, Options{}, "position fen 7k/5Q2/6K1/8/8/8/8/8 b", "go movetime 50")
	if got := bestMove(t, out); got != "0000" {
		t.Errorf("bestmove = %s, want 0000", got)
	}
}

func TestBookFileOption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.txt")
	if err := os.WriteFile(path, []byte("e2e4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	out := run(t, Options{}, "setoption name BookFile value "+path, "position startpos", "go movetime 5000")
	if got := bestMove(t, out); got != "e2e4" {
		t.Errorf("bestmove = %s, want e2e4 from the book", got)
	}
	if !strings.Contains(out, "info string lookup e2e4") {
		t.Errorf("Lookup not reported:\n%s", out)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Book move should not wait for the think time")
	}

	out = run(t, Options{}, "setoption name BookFile value "+filepath.Join(t.TempDir(), "missing.txt"))
	if !strings.Contains(out, "info string cannot load book") {
		t.Errorf("Missing book not reported:\n%s", out)
	}
}

type fixedTable string

func (f fixedTable) Lookup(context.Context, *board.Board) (string, bool) {
	return string(f), true
}

func TestTablebaseOption(t *testing.T) {
	opts := Options{Tablebase: fixedTable("d2d4")}

	out := run(t, opts, "uci", "go movetime 5000")
	if !strings.Contains(out, "option name Tablebase type check default true") {
		t.Errorf("Tablebase option not advertised as on:\n%s", out)
	}
	if got := bestMove(t, out); got != "d2d4" {
		t.Errorf("bestmove = %s, want the tablebase move", got)
	}

	out = run(t, opts, "setoption name Tablebase value false", "go movetime 1")
	if strings.Contains(out, "info string lookup") {
		t.Errorf("Tablebase consulted after it was switched off:\n%s", out)
	}
}

func TestParseGoOptions(t *testing.T) {
	got := parseGoOptions(strings.Fields("wtime 60000 btime 30000 winc 100 binc 100 movestogo 20 depth"))
	want := GoOptions{WTime: 60 * time.Second, BTime: 30 * time.Second, MovesToGo: 20}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseGoOptions mismatch (-want +got):\n%s", diff)
	}
}

func TestThinkTime(t *testing.T) {
	u := New(engine.New(), Options{Think: 3 * time.Second, Log: zerolog.Nop()})

	tests := []struct {
		name string
		args string
		side board.Side
		want time.Duration
	}{
		{"movetime", "movetime 1500", board.White, 1500 * time.Millisecond},
		{"depth", "depth 7", board.White, 700 * time.Millisecond},
		{"infinite", "infinite", board.White, infiniteThink},
		{"default", "", board.White, 3 * time.Second},
		{"white clock", "wtime 60000 btime 1000", board.White, 3 * time.Second},
		{"black clock", "wtime 60000 btime 20000 movestogo 8", board.Black, 5 * time.Second},
		{"two moves left", "wtime 10000 movestogo 2", board.White, 10 * time.Second},
		{"three moves left", "wtime 12000 movestogo 3", board.White, 8 * time.Second},
		{"last move capped", "wtime 10000 movestogo 1", board.White, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u.board.SetSideToMove(tt.side)
			if got := u.thinkTime(parseGoOptions(strings.Fields(tt.args))); got != tt.want {
				t.Errorf("thinkTime(%q) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
