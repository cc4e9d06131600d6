// guppy-tool evaluates positions, draws diagrams, imports books and serves
// the HTTP API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hailam/guppy/internal/app"
	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/book"
	"github.com/hailam/guppy/internal/config"
	"github.com/hailam/guppy/internal/diagram"
	"github.com/hailam/guppy/internal/engine"
	"github.com/hailam/guppy/internal/evaluator"
	"github.com/hailam/guppy/internal/logging"
	"github.com/hailam/guppy/internal/server"
	"github.com/hailam/guppy/internal/storage"
	"github.com/rs/zerolog"
)

const usage = `usage: guppy-tool [-config file] [-log-level level] <command> [flags] [args]

commands:
  eval [-external path] [-games n] [-static] <fen>...   score positions ("-" reads FENs from stdin)
  diagram [-o out.png] [-size px] [-values] [-think ms] <fen>
  serve [-addr host:port]                               run the HTTP API
  import-book <file>                                    copy a text book into the database
`

func main() {
	configPath := flag.String("config", "", "JSON configuration file")
	logLevel := flag.String("log-level", "", "log level (overrides the configuration)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.ApplyEnv(os.LookupEnv)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "guppy-tool:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogConsole)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, cfg, log, flag.Args(), os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return flag.ErrHelp
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "eval":
		return runEval(ctx, cfg, log, args, stdin, stdout)
	case "diagram":
		return runDiagram(cfg, log, args)
	case "serve":
		return runServe(ctx, cfg, log, args)
	case "import-book":
		return runImportBook(cfg, log, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runEval(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	external := fs.String("external", cfg.ExternalEngine, "UCI engine to evaluate with instead of playouts")
	games := fs.Int("games", evaluator.DefaultGames, "playouts per position")
	static := fs.Bool("static", false, "use the static board value instead of playouts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fens, err := readFENs(fs.Args(), stdin)
	if err != nil {
		return err
	}
	if len(fens) == 0 {
		return errors.New("eval: no positions given")
	}

	var (
		ev      evaluator.Evaluator
		workers = cfg.Workers
	)
	if *external != "" {
		x, err := evaluator.NewExternal(evaluator.ExternalOptions{
			Path:    *external,
			Depth:   cfg.ExternalDepth,
			Threads: cfg.ExternalThreads,
			HashMB:  cfg.ExternalHashMB,
		}, logging.Component(log, "evaluator"))
		if err != nil {
			return err
		}
		defer x.Close()
		ev, workers = x, 1
	} else {
		eng := engine.New(
			engine.WithLogger(logging.Component(log, "engine")),
			engine.WithWorkers(cfg.Workers),
			engine.WithPlayoutPlies(cfg.PlayoutPlies),
		)
		p := evaluator.NewPlaying(eng, *games)
		p.Static = *static
		ev = p
	}

	start := time.Now()
	results, err := evaluator.EvaluateAll(ctx, ev, fens, workers)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(stdout, "error\t%s\t%v\n", r.FEN, r.Err)
			continue
		}
		fmt.Fprintf(stdout, "%.4f\t%s\n", r.Value, r.FEN)
	}
	log.Info().Int("positions", len(results)).Int("failed", failed).Dur("took", time.Since(start)).Msg("evaluated")
	if failed > 0 {
		return fmt.Errorf("eval: %d of %d positions failed", failed, len(results))
	}
	return nil
}

// readFENs returns args, or one FEN per non-empty line of stdin when args
// is "-".
func readFENs(args []string, stdin io.Reader) ([]string, error) {
	if len(args) != 1 || args[0] != "-" {
		return args, nil
	}
	var fens []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			fens = append(fens, line)
		}
	}
	return fens, scanner.Err()
}

func runDiagram(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("diagram", flag.ContinueOnError)
	out := fs.String("o", "", "output PNG file (default: derived from the FEN)")
	size := fs.Int("size", diagram.DefaultSquareSize, "square size in pixels")
	values := fs.Bool("values", false, "draw piece value bars")
	think := fs.Int("think", 0, "search for this many milliseconds and draw the candidate moves")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b := board.NewStartBoard()
	if fs.NArg() > 0 {
		b = board.NewBoard()
		if err := b.SetFEN(strings.Join(fs.Args(), " ")); err != nil {
			return err
		}
	}

	opts := diagram.Options{SquareSize: *size, Values: *values}
	if *think > 0 {
		eng := engine.New(
			engine.WithLogger(logging.Component(log, "engine")),
			engine.WithWorkers(cfg.Workers),
			engine.WithPlayoutPlies(cfg.PlayoutPlies),
		)
		calc := eng.BestMove(b, time.Duration(*think)*time.Millisecond)
		for _, st := range calc.Statistics() {
			opts.Arrows = append(opts.Arrows, diagram.Arrow{Move: st.Move, Value: st.Value()})
		}
		log.Info().Str("move", calc.Result().UCI()).Int("candidates", len(opts.Arrows)).Msg("searched")
	}

	path := *out
	if path == "" {
		dir, err := diagramDir(cfg)
		if err != nil {
			return err
		}
		if path, err = diagram.WriteFile(dir, b, opts); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("diagram written")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := diagram.Render(f, b, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("diagram written")
	return nil
}

// diagramDir is the configured diagram directory, or the per-user default.
func diagramDir(cfg config.Config) (string, error) {
	if cfg.DiagramDir != "" {
		return cfg.DiagramDir, nil
	}
	return storage.DiagramDir()
}

func runServe(ctx context.Context, cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.ListenAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(config.NewStore(cfg), a.Lookup(), logging.Component(log, "server"))
	return srv.ListenAndServe(ctx, *addr)
}

func runImportBook(cfg config.Config, log zerolog.Logger, args []string) error {
	if len(args) != 1 {
		return errors.New("import-book: expected one book file")
	}
	s, err := book.LoadFile(args[0])
	if err != nil {
		return err
	}

	cfg.BookFile = ""
	cfg.Tablebase = false
	a, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Store == nil {
		return errors.New("import-book: database unavailable")
	}

	n, err := book.NewStored(a.Store, logging.Component(log, "book")).Import(s)
	if err != nil {
		return err
	}
	fens, err := a.Store.BookPositions()
	if err != nil {
		return err
	}
	log.Info().Str("file", args[0]).Int("moves", n).Int("positions", len(fens)).Msg("import finished")
	return nil
}
