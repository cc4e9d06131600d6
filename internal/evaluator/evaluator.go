// Package evaluator scores positions given as FEN strings, either with the
// Monte-Carlo engine or with an external UCI engine.
package evaluator

import (
	"context"
	"fmt"

	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/engine"
	"golang.org/x/sync/errgroup"
)

// DefaultGames is the number of playouts per position of a Playing evaluator.
const DefaultGames = 100

// Evaluator scores a position in pawns from white's point of view.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string) (float64, error)
}

// Playing evaluates with random playouts of the Monte-Carlo engine, or with
// the static board value when Static is set.
type Playing struct {
	Engine *engine.Engine
	Games  int
	Static bool
}

// NewPlaying returns a playout evaluator running games playouts per position.
func NewPlaying(e *engine.Engine, games int) *Playing {
	if games <= 0 {
		games = DefaultGames
	}
	return &Playing{Engine: e, Games: games}
}

// Evaluate returns (white wins - black wins) / games, or the board value in
// static mode.
func (p *Playing) Evaluate(ctx context.Context, fen string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b := board.NewBoard()
	if err := b.SetFEN(fen); err != nil {
		return 0, err
	}
	if p.Static {
		return b.Value(), nil
	}
	return p.Engine.EvaluatePlaying(b, p.Games), nil
}

// Scored is the evaluation of one position in a batch.
type Scored struct {
	FEN   string  `json:"fen"`
	Value float64 `json:"value"`
	Err   error   `json:"-"`
}

// EvaluateAll scores fens with at most workers concurrent evaluations and
// returns the results in input order. A failing position is reported in its
// Scored entry; only context cancellation aborts the batch.
func EvaluateAll(ctx context.Context, ev Evaluator, fens []string, workers int) ([]Scored, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]Scored, len(fens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, fen := range fens {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := ev.Evaluate(gctx, fen)
			results[i] = Scored{FEN: fen, Value: v, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate batch: %w", err)
	}
	return results, nil
}
