// guppy is a Monte-Carlo chess engine speaking UCI on stdin/stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/hailam/guppy/internal/app"
	"github.com/hailam/guppy/internal/config"
	"github.com/hailam/guppy/internal/engine"
	"github.com/hailam/guppy/internal/logging"
	"github.com/hailam/guppy/internal/uci"
)

var (
	configPath = flag.String("config", "", "JSON configuration file")
	logLevel   = flag.String("log-level", "", "log level (overrides the configuration)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "guppy:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// stdout belongs to the protocol.
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogConsole)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	a, err := app.Open(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	eng := engine.New(a.EngineOptions()...)
	protocol := uci.New(eng, uci.Options{
		Book:      a.Book,
		Tablebase: a.Tablebase,
		Think:     cfg.Think(),
		Log:       logging.Component(log, "uci"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("workers", cfg.Workers).Int("plies", cfg.PlayoutPlies).Msg("guppy ready")
	err = protocol.Run(ctx, os.Stdin, os.Stdout)
	log.Info().Int64("playouts", eng.Playouts()).Msg("guppy stopped")
	return err
}
