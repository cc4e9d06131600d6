package engine

import (
	"cmp"
	"slices"

	"github.com/hailam/guppy/internal/board"
	"golang.org/x/sync/errgroup"
)

// RankedPosition is a piece together with its value in the analysed board.
type RankedPosition struct {
	Position board.Position
	Value    float64
}

// EvaluatePlaying plays games random playouts from b and returns
// (whiteWins - blackWins) / games.
func (e *Engine) EvaluatePlaying(b *board.Board, games int) float64 {
	if games <= 0 {
		return 0
	}
	root := b.Clone()
	root.LegalMoves()

	seeds := e.seeds(games)
	results := make([]board.Side, games)
	decided := make([]bool, games)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range games {
		g.Go(func() error {
			results[i], decided[i] = e.playout(root.Clone(), newRand(seeds[i]))
			return nil
		})
	}
	_ = g.Wait()

	var s MoveStatistic
	for i := range games {
		s.record(results[i], decided[i])
	}
	return s.Value()
}

// RankedMoves returns the legal moves of b, highest intrinsic value first.
func (e *Engine) RankedMoves(b *board.Board) []board.Move {
	moves := slices.Clone(b.LegalMoves())
	slices.SortStableFunc(moves, func(x, y board.Move) int {
		return cmp.Compare(y.Value(), x.Value())
	})
	return moves
}

// RankedPositions returns every piece on b, most valuable first.
func (e *Engine) RankedPositions(b *board.Board) []RankedPosition {
	var ranked []RankedPosition
	for _, p := range b.Positions() {
		ranked = append(ranked, RankedPosition{Position: p, Value: b.PositionValue(p.X, p.Y)})
	}
	slices.SortStableFunc(ranked, func(x, y RankedPosition) int {
		return cmp.Compare(y.Value, x.Value)
	})
	return ranked
}
