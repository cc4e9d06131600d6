package engine

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/hailam/guppy/internal/board"
	"golang.org/x/sync/errgroup"
)

const (
	minCandidates  = 5
	initialPlayAvg = 10 * time.Millisecond
)

// MoveStatistic accumulates playout outcomes for one candidate move.
type MoveStatistic struct {
	Move      board.Move
	PlayCount int
	WhiteWins int
	BlackWins int
}

// Value returns (WhiteWins - BlackWins) / PlayCount, in [-1, 1]. It is 0
// before the first playout.
func (s *MoveStatistic) Value() float64 {
	if s.PlayCount == 0 {
		return 0
	}
	return float64(s.WhiteWins-s.BlackWins) / float64(s.PlayCount)
}

func (s *MoveStatistic) record(winner board.Side, decided bool) {
	s.PlayCount++
	if !decided {
		return
	}
	if winner == board.White {
		s.WhiteWins++
	} else {
		s.BlackWins++
	}
}

// String returns a one-line summary of the statistic.
func (s *MoveStatistic) String() string {
	return fmt.Sprintf("%s value=%.4f after %d games (%d white, %d black wins, %d draws)",
		s.Move.UCI(), s.Value(), s.PlayCount, s.WhiteWins, s.BlackWins,
		s.PlayCount-s.WhiteWins-s.BlackWins)
}

// sortStatistics orders stats best first for side: descending by Value for
// White, ascending for Black.
func sortStatistics(stats []*MoveStatistic, side board.Side) {
	sign := side.Sign()
	slices.SortStableFunc(stats, func(a, b *MoveStatistic) int {
		va, vb := a.Value()*sign, b.Value()*sign
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		default:
			return 0
		}
	})
}

// reducedSize returns how many of n candidates to keep for the next round.
// All are kept while a full round, estimated from avg, fits twice into both
// the remaining time and the reduction window; otherwise the worse half is
// dropped, never going below minCandidates.
func reducedSize(n int, avg, remaining, window time.Duration) int {
	if avg*time.Duration(n)*2 < min(remaining, window) {
		return n
	}
	return min(n, max(minCandidates, n/2))
}

// search runs playout rounds on the candidates until think has elapsed or
// c is stopped, and returns the surviving candidates best first.
func (e *Engine) search(c *Calculation, root *board.Board, moves []board.Move, think time.Duration) []*MoveStatistic {
	side := root.SideToMove()
	stats := make([]*MoveStatistic, len(moves))
	for i, m := range moves {
		stats[i] = &MoveStatistic{Move: m}
	}

	start := time.Now()
	window := think * 2 / 3
	avg := initialPlayAvg
	log := e.log.With().Str("fen", root.FEN()).Int("candidates", len(stats)).Logger()

	rounds := 0
	for !c.stopped() {
		remaining := think - time.Since(start)
		if remaining <= 0 {
			break
		}

		sortStatistics(stats, side)
		if n := reducedSize(len(stats), avg, remaining, window); n < len(stats) {
			log.Debug().Int("from", len(stats)).Int("to", n).Dur("avg", avg).Msg("reducing candidates")
			stats = stats[:n]
		}

		roundStart := time.Now()
		if err := e.playRound(root, stats); err != nil {
			log.Error().Err(err).Msg("playout round failed")
			break
		}
		avg = time.Since(roundStart) / time.Duration(len(stats))
		rounds++
	}

	sortStatistics(stats, side)
	log.Info().
		Int("rounds", rounds).
		Int("survivors", len(stats)).
		Dur("elapsed", time.Since(start)).
		Str("best", stats[0].Move.UCI()).
		Float64("value", stats[0].Value()).
		Msg("search finished")
	return stats
}

// playRound runs one playout per candidate. Each playout works on its own
// clone of root and writes only its own statistic.
func (e *Engine) playRound(root *board.Board, stats []*MoveStatistic) error {
	seeds := e.seeds(len(stats))

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, s := range stats {
		g.Go(func() error {
			b := root.Clone()
			if err := b.Move(s.Move); err != nil {
				return fmt.Errorf("apply %s: %w", s.Move.UCI(), err)
			}
			s.record(e.playout(b, newRand(seeds[i])))
			return nil
		})
	}
	return g.Wait()
}

// playout plays value-weighted random moves on b and returns the winner.
// A side without moves loses. When the ply budget runs out the sign of the
// board value decides; a zero value decides nothing.
func (e *Engine) playout(b *board.Board, rng *rand.Rand) (board.Side, bool) {
	e.playouts.Add(1)

	for ply := 0; ply < e.plies; ply++ {
		moves := b.LegalMoves()
		if len(moves) == 0 {
			return b.SideToMove().Other(), true
		}
		// Pinned pieces are not filtered, so a king can be left en prise.
		for _, m := range moves {
			if m.Killed.Piece == board.King {
				return b.SideToMove(), true
			}
		}

		m, _ := pickMove(rng, moves)
		if err := b.Move(m); err != nil {
			e.log.Error().Err(err).Str("fen", b.FEN()).Str("move", m.UCI()).Msg("playout move rejected")
			return board.White, false
		}
	}

	switch v := b.Value(); {
	case v > 0:
		return board.White, true
	case v < 0:
		return board.Black, true
	default:
		return board.White, false
	}
}

// pickMove picks a move with probability proportional to its value.
func pickMove(rng *rand.Rand, moves []board.Move) (board.Move, bool) {
	return pickWeighted(rng, moves, board.Move.Value)
}

// pickWeighted picks an item with probability proportional to its value.
// When some values are negative, all are shifted up so the smallest is
// zero.
func pickWeighted[T any](rng *rand.Rand, items []T, value func(T) float64) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}

	total, lowest := 0.0, 0.0
	for _, it := range items {
		v := value(it)
		total += v
		lowest = min(lowest, v)
	}
	offset := -lowest
	total += offset * float64(len(items))
	if total <= 0 {
		return items[rng.IntN(len(items))], true
	}

	r := rng.Float64() * total
	sum := 0.0
	for _, it := range items {
		sum += value(it) + offset
		if r <= sum {
			return it, true
		}
	}
	return items[len(items)-1], true
}
