package engine

import (
	"context"
	"sync/atomic"

	"github.com/hailam/guppy/internal/board"
)

// Calculation is a handle to a running or finished search.
type Calculation struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   atomic.Bool
	done   chan struct{}

	result board.Move
	stats  []MoveStatistic
}

func newCalculation() *Calculation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Calculation{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Stop asks the search to finish. The round in progress still completes;
// Result then returns the best move found so far.
func (c *Calculation) Stop() {
	c.stop.Store(true)
	c.cancel()
}

func (c *Calculation) stopped() bool {
	return c.stop.Load()
}

// Finished reports whether the search is over, without blocking.
func (c *Calculation) Finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed when the search is over.
func (c *Calculation) Done() <-chan struct{} {
	return c.done
}

// Result blocks until the search is over and returns the chosen move, or
// board.NoMove when the side to move has none.
func (c *Calculation) Result() board.Move {
	<-c.done
	return c.result
}

// Wait is like Result but gives up when ctx is done. It does not stop the
// search.
func (c *Calculation) Wait(ctx context.Context) (board.Move, error) {
	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		return board.NoMove, ctx.Err()
	}
}

// Statistics blocks until the search is over and returns the final ranking
// of the candidates still under evaluation, best first. It is empty when no
// playouts were run.
func (c *Calculation) Statistics() []MoveStatistic {
	<-c.done
	return c.stats
}

func (c *Calculation) finish(m board.Move, stats []*MoveStatistic) {
	c.result = m
	for _, s := range stats {
		c.stats = append(c.stats, *s)
	}
	c.cancel()
	close(c.done)
}
