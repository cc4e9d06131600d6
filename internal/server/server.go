// Package server exposes the engine over HTTP: best-move searches, static
// analysis, diagrams, live configuration and a websocket that streams the
// progress of a search.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hailam/guppy/internal/board"
	"github.com/hailam/guppy/internal/config"
	"github.com/hailam/guppy/internal/diagram"
	"github.com/hailam/guppy/internal/engine"
	"github.com/rs/zerolog"
)

// MaxThink caps the think time a client may ask for.
const MaxThink = time.Minute

// Server serves the HTTP API. Every search runs on its own engine.
type Server struct {
	cfg    *config.Store
	lookup engine.LookupTable
	log    zerolog.Logger
	router chi.Router
}

// New builds the router. lookup may be nil.
func New(cfg *config.Store, lookup engine.LookupTable, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, lookup: lookup, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Post("/api/bestmove", s.handleBestMove)
	r.Get("/api/analysis", s.handleAnalysis)
	r.Get("/api/diagram", s.handleDiagram)
	r.Get("/api/config", s.handleGetConfig)
	r.Put("/api/config", s.handlePutConfig)
	r.Get("/ws/search", s.handleSearchWS)

	s.router = r
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	s.log.Info().Str("addr", addr).Msg("listening")
	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down")
	case err, ok := <-serverErrCh:
		if ok {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error().Err(err).Msg("graceful shutdown failed")
		return server.Close()
	}
	return nil
}

// newEngine creates an engine configured from the current settings.
func (s *Server) newEngine(info engine.InfoLogger) *engine.Engine {
	cfg := s.cfg.Get()
	opts := []engine.Option{
		engine.WithLogger(s.log),
		engine.WithWorkers(cfg.Workers),
		engine.WithPlayoutPlies(cfg.PlayoutPlies),
		engine.WithInfo(info),
	}
	if s.lookup != nil {
		opts = append(opts, engine.WithLookup(s.lookup))
	}
	return engine.New(opts...)
}

// thinkTime returns the requested think time, or the configured default
// when ms is negative.
func (s *Server) thinkTime(ms int) time.Duration {
	if ms < 0 {
		return s.cfg.Get().Think()
	}
	return min(time.Duration(ms)*time.Millisecond, MaxThink)
}

type statisticDTO struct {
	Move      string  `json:"move"`
	Value     float64 `json:"value"`
	PlayCount int     `json:"play_count"`
	WhiteWins int     `json:"white_wins"`
	BlackWins int     `json:"black_wins"`
}

type bestMoveResponse struct {
	FEN        string         `json:"fen"`
	Move       string         `json:"move"`
	Statistics []statisticDTO `json:"statistics"`
}

func newBestMoveResponse(fen string, calc *engine.Calculation) bestMoveResponse {
	resp := bestMoveResponse{FEN: fen, Move: calc.Result().UCI(), Statistics: []statisticDTO{}}
	for _, st := range calc.Statistics() {
		resp.Statistics = append(resp.Statistics, statisticDTO{
			Move:      st.Move.UCI(),
			Value:     st.Value(),
			PlayCount: st.PlayCount,
			WhiteWins: st.WhiteWins,
			BlackWins: st.BlackWins,
		})
	}
	return resp
}

func (s *Server) handleBestMove(w http.ResponseWriter, r *http.Request) {
	payload := struct {
		FEN     string `json:"fen"`
		ThinkMs *int   `json:"think_ms"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	b, err := parseBoard(payload.FEN)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ms := -1
	if payload.ThinkMs != nil {
		ms = *payload.ThinkMs
	}

	calc := s.newEngine(nil).BestMove(b, s.thinkTime(ms))
	if _, err := calc.Wait(r.Context()); err != nil {
		calc.Stop()
		s.log.Debug().Err(err).Msg("client gone before search finished")
		return
	}
	writeJSON(w, http.StatusOK, newBestMoveResponse(b.FEN(), calc))
}

type moveDTO struct {
	Move     string  `json:"move"`
	Notation string  `json:"notation"`
	Value    float64 `json:"value"`
}

type pieceDTO struct {
	Piece  string  `json:"piece"`
	Side   string  `json:"side"`
	Square string  `json:"square"`
	Value  float64 `json:"value"`
}

type analysisResponse struct {
	FEN       string     `json:"fen"`
	Side      string     `json:"side"`
	Check     bool       `json:"check"`
	Mate      bool       `json:"mate"`
	Stalemate bool       `json:"stalemate"`
	Value     float64    `json:"value"`
	Moves     []moveDTO  `json:"moves"`
	Pieces    []pieceDTO `json:"pieces"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	b, err := parseBoard(r.URL.Query().Get("fen"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	eng := s.newEngine(nil)
	resp := analysisResponse{
		FEN:       b.FEN(),
		Side:      b.SideToMove().String(),
		Check:     b.IsCheck(),
		Mate:      b.IsMate(),
		Stalemate: b.IsStalemate(),
		Value:     b.Value(),
		Moves:     []moveDTO{},
		Pieces:    []pieceDTO{},
	}
	for _, m := range eng.RankedMoves(b) {
		resp.Moves = append(resp.Moves, moveDTO{Move: m.UCI(), Notation: m.Notation(), Value: m.Value()})
	}
	for _, p := range eng.RankedPositions(b) {
		resp.Pieces = append(resp.Pieces, pieceDTO{
			Piece:  p.Position.Piece.String(),
			Side:   p.Position.Side.String(),
			Square: p.Position.Square().String(),
			Value:  p.Value,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := parseBoard(q.Get("fen"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := diagram.Options{Values: q.Get("values") == "true"}
	if size := q.Get("size"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 16 || n > 200 {
			writeError(w, http.StatusBadRequest, "size must be within 16..200")
			return
		}
		opts.SquareSize = n
	}
	for _, text := range q["arrow"] {
		m, err := b.ParseMove(text)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Arrows = append(opts.Arrows, diagram.Arrow{Move: m, Value: m.Value()})
	}

	var buf bytes.Buffer
	if err := diagram.Render(&buf, b, opts); err != nil {
		s.log.Error().Err(err).Msg("cannot draw diagram")
		writeError(w, http.StatusInternalServerError, "cannot draw diagram")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Debug().Err(err).Msg("cannot send diagram")
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Get())
}

// handlePutConfig merges the posted fields into the current settings.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Get()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.cfg.Update(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info().Msg("configuration updated")
	writeJSON(w, http.StatusOK, s.cfg.Get())
}

func parseBoard(fen string) (*board.Board, error) {
	if fen == "" {
		return board.NewStartBoard(), nil
	}
	b := board.NewBoard()
	if err := b.SetFEN(fen); err != nil {
		return nil, err
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
