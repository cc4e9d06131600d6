package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/freeeve/uci"
	"github.com/hailam/guppy/internal/board"
	"github.com/rs/zerolog"
)

// ExternalOptions configure the external engine process.
type ExternalOptions struct {
	Path    string
	Depth   int
	Threads int
	HashMB  int
}

// scoreLine is one reported search line of the external engine, from the
// point of view of the side to move.
type scoreLine struct {
	depth int
	score int
	mate  bool
}

// analyser runs a fixed-depth search of a position.
type analyser interface {
	analyse(fen string, depth int) ([]scoreLine, error)
	close()
}

type uciAnalyser struct {
	engine *uci.Engine
}

func startUCI(opts ExternalOptions) (analyser, error) {
	eng, err := uci.NewEngine(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Path, err)
	}
	err = eng.SetOptions(uci.Options{
		Hash:    opts.HashMB,
		Threads: opts.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	})
	if err != nil {
		eng.Close()
		return nil, fmt.Errorf("set engine options: %w", err)
	}
	return &uciAnalyser{engine: eng}, nil
}

func (a *uciAnalyser) analyse(fen string, depth int) ([]scoreLine, error) {
	if err := a.engine.SetFEN(fen); err != nil {
		return nil, fmt.Errorf("set FEN: %w", err)
	}
	results, err := a.engine.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return nil, err
	}
	lines := make([]scoreLine, 0, len(results.Results))
	for _, r := range results.Results {
		lines = append(lines, scoreLine{depth: r.Depth, score: r.Score, mate: r.Mate})
	}
	return lines, nil
}

func (a *uciAnalyser) close() {
	a.engine.Close()
}

// External evaluates positions with an external UCI engine such as
// stockfish. The engine process is shared, so evaluations are serialized.
type External struct {
	opts  ExternalOptions
	log   zerolog.Logger
	start func(ExternalOptions) (analyser, error)

	mu  sync.Mutex
	eng analyser
}

// NewExternal starts the engine at opts.Path.
func NewExternal(opts ExternalOptions, log zerolog.Logger) (*External, error) {
	return newExternal(opts, log, startUCI)
}

func newExternal(opts ExternalOptions, log zerolog.Logger, start func(ExternalOptions) (analyser, error)) (*External, error) {
	if opts.Depth < 1 {
		opts.Depth = 12
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.HashMB < 1 {
		opts.HashMB = 64
	}
	x := &External{
		opts:  opts,
		log:   log.With().Str("engine", opts.Path).Logger(),
		start: start,
	}
	eng, err := start(opts)
	if err != nil {
		return nil, err
	}
	x.eng = eng
	x.log.Info().Int("depth", opts.Depth).Int("threads", opts.Threads).Msg("external engine started")
	return x, nil
}

// Evaluate searches fen to the configured depth. A mate score maps to
// ±board.MateValue. When the engine fails it is restarted once and the
// position is tried again.
func (x *External) Evaluate(ctx context.Context, fen string) (float64, error) {
	b := board.NewBoard()
	if err := b.SetFEN(fen); err != nil {
		return 0, err
	}
	full := b.FEN() + " - - 0 1"

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lines, err := x.analyse(full)
	if err != nil {
		x.log.Warn().Err(err).Str("fen", full).Msg("external engine failed, restarting")
		if rerr := x.restart(); rerr != nil {
			return 0, errors.Join(err, rerr)
		}
		if lines, err = x.analyse(full); err != nil {
			return 0, fmt.Errorf("evaluate %s: %w", full, err)
		}
	}

	best := lines[0]
	for _, l := range lines {
		if l.depth > best.depth {
			best = l
		}
	}
	v := float64(best.score) / 100
	if best.mate {
		v = board.MateValue
		if best.score <= 0 {
			v = -v
		}
	}
	return v * b.SideToMove().Sign(), nil
}

func (x *External) analyse(fen string) ([]scoreLine, error) {
	if x.eng == nil {
		return nil, errors.New("external engine not running")
	}
	lines, err := x.eng.analyse(fen, x.opts.Depth)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("no results from engine")
	}
	return lines, nil
}

func (x *External) restart() error {
	if x.eng != nil {
		x.eng.close()
		x.eng = nil
	}
	eng, err := x.start(x.opts)
	if err != nil {
		return err
	}
	x.eng = eng
	return nil
}

// Close stops the engine process.
func (x *External) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.eng != nil {
		x.eng.close()
		x.eng = nil
	}
}
