// Package engine implements a Monte-Carlo move search on top of the board
// package: candidate moves are scored by value-weighted random playouts
// under a wall-clock budget.
package engine

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/diagram"
	"github.com/rs/zerolog"
)

// DefaultPlayoutPlies is the ply budget of a single playout.
const DefaultPlayoutPlies = 200

// InfoLogger receives progress lines and the final score of a search.
type InfoLogger interface {
	Info(text string)
	Score(centipawns int)
}

// LookupTable recommends a move for a position without searching.
type LookupTable interface {
	Lookup(ctx context.Context, b *board.Board) (string, bool)
}

type nopInfo struct{}

func (nopInfo) Info(string) {}
func (nopInfo) Score(int)   {}

// Option configures an Engine.
type Option func(*Engine)

// WithLookup consults table before every search.
func WithLookup(table LookupTable) Option {
	return func(e *Engine) { e.lookup = table }
}

// WithInfo reports search progress to info.
func WithInfo(info InfoLogger) Option {
	return func(e *Engine) {
		if info != nil {
			e.info = info
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithWorkers limits the number of concurrent playouts.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPlayoutPlies sets the ply budget of a playout.
func WithPlayoutPlies(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.plies = n
		}
	}
}

// WithSeed makes the random move choice reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = newRand(seed) }
}

// WithDiagrams writes a PNG diagram of every finished search into dir.
func WithDiagrams(dir string) Option {
	return func(e *Engine) { e.diagramDir = dir }
}

// Engine is the Monte-Carlo chess engine. Its settings may be changed
// between searches; a single Engine can run one search at a time.
type Engine struct {
	lookup     LookupTable
	info       InfoLogger
	log        zerolog.Logger
	workers    int
	plies      int
	diagramDir string

	mu  sync.Mutex // guards rng
	rng *rand.Rand

	playouts atomic.Int64
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		info:    nopInfo{},
		log:     zerolog.Nop(),
		workers: runtime.GOMAXPROCS(0),
		plies:   DefaultPlayoutPlies,
		rng:     newRand(rand.Uint64()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configure applies options to an existing engine.
func (e *Engine) Configure(opts ...Option) {
	for _, opt := range opts {
		opt(e)
	}
}

// Playouts returns the number of playouts run since the engine was created.
func (e *Engine) Playouts() int64 {
	return e.playouts.Load()
}

// seeds draws n seeds from the master source.
func (e *Engine) seeds(n int) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = e.rng.Uint64()
	}
	return seeds
}

// newRand returns a private random source seeded from the master source.
func (e *Engine) newRand() *rand.Rand {
	return newRand(e.seeds(1)[0])
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// BestMove starts a search of b for the side to move and returns a handle
// to it. The board is cloned, so the caller may keep using b.
//
// A lookup-table recommendation is returned without searching. With a zero
// think time one move is picked at random, weighted by move value, before
// BestMove returns. Otherwise playouts run on a separate goroutine until
// think has elapsed or the calculation is stopped.
func (e *Engine) BestMove(b *board.Board, think time.Duration) *Calculation {
	root := b.Clone()
	root.LegalMoves()

	c := newCalculation()
	if think <= 0 {
		e.run(c, root, 0)
		return c
	}
	go e.run(c, root, think)
	return c
}

func (e *Engine) run(c *Calculation, root *board.Board, think time.Duration) {
	var (
		best  board.Move
		stats []*MoveStatistic
	)
	defer func() {
		e.reportScore(root, best)
		c.finish(best, stats)
	}()

	if m, ok := e.lookupMove(c.ctx, root); ok {
		best = m
		return
	}

	moves := root.LegalMoves()
	if len(moves) == 0 {
		e.log.Debug().Str("fen", root.FEN()).Msg("no legal moves")
		return
	}

	if think <= 0 {
		best, _ = pickMove(e.newRand(), moves)
		return
	}

	stats = e.search(c, root, moves, think)
	for _, s := range stats {
		e.info.Info("statistics " + s.String())
	}
	best = stats[0].Move
	e.writeDiagram(root, stats)
}

// lookupMove asks the lookup table for a recommendation that applies to
// the board.
func (e *Engine) lookupMove(ctx context.Context, root *board.Board) (board.Move, bool) {
	if e.lookup == nil {
		return board.NoMove, false
	}
	text, ok := e.lookup.Lookup(ctx, root)
	if !ok {
		return board.NoMove, false
	}
	m, err := root.ParseMove(text)
	if err != nil {
		e.log.Warn().Err(err).Str("move", text).Str("fen", root.FEN()).Msg("ignoring lookup recommendation")
		return board.NoMove, false
	}
	e.info.Info("lookup " + m.UCI())
	return m, true
}

// reportScore emits the centipawn value of the position after m, from the
// point of view of the side making m.
func (e *Engine) reportScore(root *board.Board, m board.Move) {
	after := root.Clone()
	if !m.IsZero() {
		if err := after.Move(m); err != nil {
			e.log.Error().Err(err).Str("move", m.UCI()).Msg("cannot score move")
			return
		}
	}
	e.info.Score(int(after.Value() * root.SideToMove().Sign() * 100))
}

// writeDiagram draws the searched position with one arrow per surviving
// candidate, when diagrams are enabled.
func (e *Engine) writeDiagram(root *board.Board, stats []*MoveStatistic) {
	if e.diagramDir == "" {
		return
	}
	arrows := make([]diagram.Arrow, len(stats))
	for i, s := range stats {
		arrows[i] = diagram.Arrow{Move: s.Move, Value: s.Value()}
	}
	path, err := diagram.WriteFile(e.diagramDir, root, diagram.Options{Arrows: arrows, Values: true})
	if err != nil {
		e.log.Error().Err(err).Msg("cannot write diagram")
		return
	}
	e.log.Debug().Str("path", path).Msg("diagram written")
}
