// Package tablebase asks online endgame tablebases for the best move in
// positions with few pieces.
package tablebase

import (
	"context"

	"github.com/hailam/guppy/internal/board"
	"github.com/rs/zerolog"
)

// DefaultMaxPieces is the largest piece count the online tablebases cover.
const DefaultMaxPieces = 7

// WDL represents Win/Draw/Loss result from the side to move's view.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // Loss, but the 50-move rule may save it
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // Win, but the 50-move rule may spoil it
	WDLWin         WDL = 2
)

// String returns the lowercase name of the result.
func (w WDL) String() string {
	switch w {
	case WDLLoss:
		return "loss"
	case WDLBlessedLoss:
		return "blessed-loss"
	case WDLCursedWin:
		return "cursed-win"
	case WDLWin:
		return "win"
	default:
		return "draw"
	}
}

// Result is the answer of a tablebase probe.
type Result struct {
	Found    bool   `json:"found"`
	WDL      WDL    `json:"wdl"`
	DTZ      int    `json:"dtz"`
	DTM      int    `json:"dtm,omitempty"`
	BestMove string `json:"bestmove,omitempty"`
}

// Prober looks positions up in a tablebase.
type Prober interface {
	// Probe returns what the tablebase knows about b. A position outside
	// the tablebase yields a Result with Found == false and no error.
	Probe(ctx context.Context, b *board.Board) (Result, error)

	// MaxPieces returns the maximum number of pieces supported.
	MaxPieces() int
}

// Table turns a Prober into a move lookup table.
type Table struct {
	prober Prober
	log    zerolog.Logger
}

// NewTable returns a lookup table that recommends the tablebase's best move.
func NewTable(p Prober, log zerolog.Logger) *Table {
	return &Table{prober: p, log: log}
}

// Lookup recommends the tablebase's best move for b. Positions with too many
// pieces are not probed; probe failures are logged and yield nothing.
func (t *Table) Lookup(ctx context.Context, b *board.Board) (string, bool) {
	if b.PieceCount() > t.prober.MaxPieces() {
		return "", false
	}
	r, err := t.prober.Probe(ctx, b)
	if err != nil {
		t.log.Warn().Err(err).Str("fen", b.FEN()).Msg("tablebase probe failed")
		return "", false
	}
	if !r.Found || r.BestMove == "" {
		return "", false
	}
	t.log.Debug().Str("fen", b.FEN()).Str("move", r.BestMove).Stringer("wdl", r.WDL).Msg("tablebase hit")
	return r.BestMove, true
}

// fullFEN extends the board FEN with the castling, en passant and move
// counter fields the tablebase services expect.
func fullFEN(b *board.Board) string {
	return b.FEN() + " - - 0 1"
}
