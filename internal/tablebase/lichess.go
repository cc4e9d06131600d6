package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hailam/guppy/internal/board"
)

// DefaultLichessURL is the Lichess standard-chess tablebase endpoint.
const DefaultLichessURL = "https://tablebase.lichess.ovh/standard"

// Lichess uses the Lichess tablebase API for online lookups.
// Note: This requires network access and has rate limits.
type Lichess struct {
	client    *http.Client
	baseURL   string
	maxPieces int
}

// NewLichess creates a prober for the API at baseURL, or DefaultLichessURL
// when baseURL is empty.
func NewLichess(baseURL string, timeout time.Duration) *Lichess {
	if baseURL == "" {
		baseURL = DefaultLichessURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Lichess{
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		maxPieces: DefaultMaxPieces,
	}
}

// Lichess API response structure
type lichessResponse struct {
	Category string `json:"category"` // "win", "draw", "maybe-win", "maybe-draw", "loss", ...
	DTZ      *int   `json:"dtz"`
	DTM      *int   `json:"dtm"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
	} `json:"moves"`
}

// Probe queries the API for b. Moves are listed best first, so the first
// one is the recommendation.
func (l *Lichess) Probe(ctx context.Context, b *board.Board) (Result, error) {
	if b.PieceCount() > l.maxPieces {
		return Result{}, nil
	}

	// Lichess accepts underscores for the spaces in a FEN.
	fen := strings.ReplaceAll(fullFEN(b), " ", "_")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"?fen="+fen, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("lichess request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("lichess request: %s", resp.Status)
	}

	var r lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Result{}, fmt.Errorf("lichess response: %w", err)
	}
	if r.Category == "" || r.Category == "unknown" {
		return Result{}, nil
	}

	res := Result{Found: true, WDL: categoryToWDL(r.Category)}
	if r.DTZ != nil {
		res.DTZ = *r.DTZ
	}
	if r.DTM != nil {
		res.DTM = *r.DTM
	}
	if len(r.Moves) > 0 {
		res.BestMove = r.Moves[0].UCI
	}
	return res, nil
}

// SetMaxPieces lowers the piece limit below which positions are probed.
// Values outside 3..DefaultMaxPieces are ignored.
func (l *Lichess) SetMaxPieces(n int) {
	if n >= 3 && n <= DefaultMaxPieces {
		l.maxPieces = n
	}
}

// MaxPieces returns the maximum number of pieces supported.
func (l *Lichess) MaxPieces() int {
	return l.maxPieces
}

func categoryToWDL(category string) WDL {
	switch category {
	case "win":
		return WDLWin
	case "maybe-win", "cursed-win":
		return WDLCursedWin
	case "maybe-loss", "blessed-loss":
		return WDLBlessedLoss
	case "loss":
		return WDLLoss
	default:
		return WDLDraw
	}
}
