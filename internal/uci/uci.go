// Package uci drives the Monte-Carlo engine over the Universal Chess
// Interface line protocol.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/book"
	"github.com/hailam/guppy/internal/engine"
	"github.com/rs/zerolog"
)

const (
	name          = "guppy 0.1"
	author        = "guppy developers"
	infiniteThink = 24 * time.Hour

	defaultMovesToGo = 40
)

// Options configure a UCI handler.
type Options struct {
	// Book is consulted before the book file and the tablebase. May be nil.
	Book engine.LookupTable
	// Tablebase is consulted while the Tablebase option is on. May be nil.
	Tablebase engine.LookupTable
	// Think is used when "go" carries no time limit.
	Think time.Duration
	Log   zerolog.Logger
}

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine *engine.Engine
	board  *board.Board
	opts   Options
	log    zerolog.Logger

	fileBook    engine.LookupTable
	tablebaseOn bool

	outMu sync.Mutex
	out   io.Writer

	// Search state
	calc       *engine.Calculation
	searchDone chan struct{}
}

// New creates a UCI protocol handler. The engine reports its progress
// through the handler from now on.
func New(eng *engine.Engine, opts Options) *UCI {
	if opts.Think <= 0 {
		opts.Think = 5 * time.Second
	}
	u := &UCI{
		engine:      eng,
		board:       board.NewStartBoard(),
		opts:        opts,
		log:         opts.Log,
		tablebaseOn: opts.Tablebase != nil,
		out:         io.Discard,
	}
	eng.Configure(engine.WithInfo(u))
	u.configureLookup()
	return u
}

// Run reads commands from r and writes responses to w until "quit", the end
// of input or cancellation of ctx.
func (u *UCI) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	u.outMu.Lock()
	u.out = w
	u.outMu.Unlock()
	defer u.handleStop()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.println(u.board.String())
		default:
			u.log.Debug().Str("command", line).Msg("unknown command")
		}
	}
	return scanner.Err()
}

// Info implements engine.InfoLogger.
func (u *UCI) Info(text string) {
	u.println("info string " + text)
}

// Score implements engine.InfoLogger.
func (u *UCI) Score(centipawns int) {
	u.println("info score cp " + strconv.Itoa(centipawns))
}

func (u *UCI) println(line string) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintln(u.out, line)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.println("id name " + name)
	u.println("id author " + author)
	u.println("")
	u.println("option name Threads type spin default 1 min 1 max 512")
	u.println(fmt.Sprintf("option name PlayoutPlies type spin default %d min 1 max 10000", engine.DefaultPlayoutPlies))
	u.println("option name BookFile type string default <empty>")
	u.println(fmt.Sprintf("option name Tablebase type check default %t", u.tablebaseOn))
	u.println("uciok")
}

// handleNewGame resets the board.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.board = board.NewStartBoard()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// On any error the previous position is kept.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	fenEnd, moveStart := len(args), len(args)
	if i := slices.Index(args, "moves"); i >= 0 {
		fenEnd, moveStart = i, i+1
	}

	var b *board.Board
	switch args[0] {
	case "startpos":
		b = board.NewStartBoard()
	case "fen":
		b = board.NewBoard()
		if err := b.SetFEN(strings.Join(args[1:fenEnd], " ")); err != nil {
			u.Info("invalid FEN: " + err.Error())
			return
		}
	default:
		return
	}

	for _, text := range args[moveStart:] {
		if err := applyMove(b, text); err != nil {
			u.Info("invalid move: " + err.Error())
			return
		}
	}
	u.board = b
}

// applyMove plays a coordinate-notation move sent by the GUI. The move must
// be castling or one the piece has in the board analysis, so captures and
// blocks that answer a check are accepted.
func applyMove(b *board.Board, text string) error {
	m, err := b.ParseMove(text)
	if err != nil {
		return err
	}
	if m.IsCastling() || slices.ContainsFunc(b.Analysis().Moves(m.From()), func(pm board.Move) bool {
		return pm.UCI() == m.UCI()
	}) {
		return b.Move(m)
	}
	return fmt.Errorf("%w: %s", board.ErrIllegalMove, text)
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	MovesToGo int
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	think := u.thinkTime(parseGoOptions(args))
	u.log.Debug().Dur("think", think).Str("fen", u.board.FEN()).Msg("go")

	calc := u.engine.BestMove(u.board, think)
	done := make(chan struct{})
	u.calc = calc
	u.searchDone = done

	go func() {
		defer close(done)
		<-calc.Done()
		u.println("bestmove " + calc.Result().UCI())
	}()
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}
	millis := func(i int) time.Duration {
		ms, _ := strconv.Atoi(args[i])
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			opts.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			break
		}
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(args[i+1])
			i++
		case "movetime":
			opts.MoveTime = millis(i + 1)
			i++
		case "wtime":
			opts.WTime = millis(i + 1)
			i++
		case "btime":
			opts.BTime = millis(i + 1)
			i++
		case "movestogo":
			opts.MovesToGo, _ = strconv.Atoi(args[i+1])
			i++
		case "winc", "binc", "nodes", "mate":
			i++
		}
	}
	return opts
}

// thinkTime converts GoOptions into the wall-clock budget of a search.
func (u *UCI) thinkTime(opts GoOptions) time.Duration {
	switch {
	case opts.Infinite:
		return infiniteThink
	case opts.MoveTime > 0:
		return opts.MoveTime
	case opts.Depth > 0:
		return time.Duration(opts.Depth) * 100 * time.Millisecond
	}

	ourTime := opts.WTime
	if u.board.SideToMove() == board.Black {
		ourTime = opts.BTime
	}
	if ourTime <= 0 {
		return u.opts.Think
	}
	movesToGo := opts.MovesToGo
	if movesToGo <= 0 {
		movesToGo = defaultMovesToGo
	}
	return min(ourTime, time.Duration(float64(ourTime)/2/(float64(movesToGo)/4)))
}

// handleStop stops the current search and waits for its bestmove line.
func (u *UCI) handleStop() {
	if u.calc == nil {
		return
	}
	u.calc.Stop()
	<-u.searchDone
	u.calc = nil
	u.searchDone = nil
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value []string
	var target *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				*target = append(*target, arg)
			}
		}
	}
	key := strings.ToLower(strings.Join(name, " "))
	val := strings.Join(value, " ")

	u.handleStop()
	switch key {
	case "threads":
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			u.engine.Configure(engine.WithWorkers(n))
		}
	case "playoutplies":
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			u.engine.Configure(engine.WithPlayoutPlies(n))
		}
	case "bookfile":
		if val == "" || val == "<empty>" {
			u.fileBook = nil
			u.configureLookup()
			return
		}
		s, err := book.LoadFile(val)
		if err != nil {
			u.Info("cannot load book: " + err.Error())
			return
		}
		u.fileBook = s
		u.configureLookup()
		u.Info(fmt.Sprintf("book %s loaded with %d positions", val, s.Size()))
	case "tablebase":
		u.tablebaseOn = strings.EqualFold(val, "true") && u.opts.Tablebase != nil
		u.configureLookup()
	default:
		u.log.Debug().Str("name", key).Msg("unknown option")
	}
}

// configureLookup rebuilds the engine's lookup chain: configured book, book
// file, then tablebase.
func (u *UCI) configureLookup() {
	var tables book.Composite
	if u.opts.Book != nil {
		tables = append(tables, u.opts.Book)
	}
	if u.fileBook != nil {
		tables = append(tables, u.fileBook)
	}
	if u.tablebaseOn {
		tables = append(tables, u.opts.Tablebase)
	}
	if len(tables) == 0 {
		u.engine.Configure(engine.WithLookup(nil))
		return
	}
	u.engine.Configure(engine.WithLookup(tables))
}
