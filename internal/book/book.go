// Package book provides lookup tables that recommend moves for known
// positions: a text opening book, a book persisted in storage, and a
// composite that consults several tables in order.
package book

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/storage"
	"github.com/rs/zerolog"
)

// Table recommends a move for a position.
type Table interface {
	Lookup(ctx context.Context, b *board.Board) (string, bool)
}

// picker draws weighted random recommendations.
type picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newPicker() *picker {
	return &picker{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (p *picker) seed(seed uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng = rand.New(rand.NewPCG(seed, seed))
}

// pick selects a recommendation with probability proportional to its
// weight. With no positive weight the first entry is returned.
func (p *picker) pick(recs []storage.Recommendation) (string, bool) {
	if len(recs) == 0 {
		return "", false
	}

	total := 0.0
	for _, r := range recs {
		total += max(r.Weight, 0)
	}
	if total <= 0 {
		return recs[0].Move, true
	}

	p.mu.Lock()
	x := p.rng.Float64() * total
	p.mu.Unlock()

	cumulative := 0.0
	for _, r := range recs {
		cumulative += max(r.Weight, 0)
		if x < cumulative {
			return r.Move, true
		}
	}
	return recs[0].Move, true
}

// Simple is an in-memory book read from text. Each line holds one
// recommendation: leading "." tokens replay the previous line's move at
// that ply, then comes the recommended move with an optional weight, either
// as a separate token or after a colon. Nothing else may follow the move:
//
//	e2e4 2
//	. e7e5
//	. . g1f3:0.5
//	d2d4   # weight 1
type Simple struct {
	entries map[string][]storage.Recommendation
	*picker
}

// NewSimple returns an empty book.
func NewSimple() *Simple {
	return &Simple{
		entries: make(map[string][]storage.Recommendation),
		picker:  newPicker(),
	}
}

// LoadFile reads a text book from a file.
func LoadFile(path string) (*Simple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a text book.
func Parse(r io.Reader) (*Simple, error) {
	s := NewSimple()
	var last []string

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		var err error
		last, err = s.parseLine(tokens, last)
		if err != nil {
			return nil, fmt.Errorf("book line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// parseLine records the recommendation of one line and returns the moves
// leading to it, for the next line to replay.
func (s *Simple) parseLine(tokens, last []string) ([]string, error) {
	b := board.NewStartBoard()
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "." {
			if i >= len(last) {
				return nil, fmt.Errorf("no previous move at ply %d", i+1)
			}
			if err := b.MoveUCI(last[i]); err != nil {
				return nil, fmt.Errorf("replay %s: %w", last[i], err)
			}
			continue
		}

		move, weight, err := splitWeight(tok)
		if err != nil {
			return nil, err
		}
		switch rest := tokens[i+1:]; {
		case len(rest) > 1, len(rest) == 1 && strings.Contains(tok, ":"):
			return nil, fmt.Errorf("unexpected %q after %s", rest[len(rest)-1], tok)
		case len(rest) == 1:
			if weight, err = strconv.ParseFloat(rest[0], 64); err != nil {
				return nil, fmt.Errorf("bad weight %q: %w", rest[0], err)
			}
		}
		if _, err := b.ParseMove(move); err != nil {
			return nil, err
		}
		s.Add(b.FEN(), storage.Recommendation{Move: move, Weight: weight})
		return append(last[:i:i], move), nil
	}
	return last, nil
}

func splitWeight(tok string) (string, float64, error) {
	move, w, ok := strings.Cut(tok, ":")
	if !ok {
		return tok, 1, nil
	}
	weight, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad weight in %q: %w", tok, err)
	}
	return move, weight, nil
}

// Add records a recommendation, replacing the weight of a move already
// known for fen.
func (s *Simple) Add(fen string, r storage.Recommendation) {
	recs := s.entries[fen]
	for i := range recs {
		if recs[i].Move == r.Move {
			recs[i].Weight = r.Weight
			return
		}
	}
	s.entries[fen] = append(recs, r)
}

// Entries returns the recommendations for fen.
func (s *Simple) Entries(fen string) []storage.Recommendation {
	return s.entries[fen]
}

// Positions returns every FEN in the book, sorted.
func (s *Simple) Positions() []string {
	fens := make([]string, 0, len(s.entries))
	for fen := range s.entries {
		fens = append(fens, fen)
	}
	sort.Strings(fens)
	return fens
}

// Size returns the number of positions in the book.
func (s *Simple) Size() int {
	return len(s.entries)
}

// Seed makes Lookup reproducible.
func (s *Simple) Seed(seed uint64) {
	s.seed(seed)
}

// Lookup picks one of the recommendations for b by weight.
func (s *Simple) Lookup(ctx context.Context, b *board.Board) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	return s.pick(s.entries[b.FEN()])
}

// Stored is a book kept in storage.
type Stored struct {
	store *storage.Store
	log   zerolog.Logger
	*picker
}

// NewStored returns a book backed by store.
func NewStored(store *storage.Store, log zerolog.Logger) *Stored {
	return &Stored{store: store, log: log, picker: newPicker()}
}

// Import copies every recommendation of s into storage.
func (st *Stored) Import(s *Simple) (int, error) {
	n := 0
	for _, fen := range s.Positions() {
		for _, r := range s.Entries(fen) {
			if err := st.store.AddRecommendation(fen, r); err != nil {
				return n, fmt.Errorf("import %s: %w", fen, err)
			}
			n++
		}
	}
	st.log.Info().Int("positions", s.Size()).Int("moves", n).Msg("book imported")
	return n, nil
}

// Lookup picks one of the stored recommendations for b by weight.
func (st *Stored) Lookup(ctx context.Context, b *board.Board) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	fen := b.FEN()
	recs, err := st.store.Recommendations(fen)
	if err != nil {
		st.log.Error().Err(err).Str("fen", fen).Msg("book lookup failed")
		return "", false
	}
	return st.pick(recs)
}

// Composite consults its tables in order; the first answer wins.
type Composite []Table

// Lookup returns the first recommendation of any table.
func (c Composite) Lookup(ctx context.Context, b *board.Board) (string, bool) {
	for _, t := range c {
		if ctx.Err() != nil {
			return "", false
		}
		if move, ok := t.Lookup(ctx, b); ok {
			return move, true
		}
	}
	return "", false
}
