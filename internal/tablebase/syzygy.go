package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hailam/guppy/internal/board"
)

// DefaultSyzygyURL is the syzygy-tables.info probing endpoint.
const DefaultSyzygyURL = "http://syzygy-tables.info/api/v2"

// Syzygy probes the syzygy-tables.info REST API.
type Syzygy struct {
	client    *http.Client
	baseURL   string
	maxPieces int
}

// NewSyzygy creates a prober for the API at baseURL, or DefaultSyzygyURL
// when baseURL is empty.
func NewSyzygy(baseURL string, timeout time.Duration) *Syzygy {
	if baseURL == "" {
		baseURL = DefaultSyzygyURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Syzygy{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "?"),
		maxPieces: DefaultMaxPieces,
	}
}

// syzygy-tables.info response, e.g.
//
//	{"bestmove": "e8d7", "wdl": -2, "dtz": -44, "dtm": -52, "moves": {...}}
type syzygyResponse struct {
	BestMove string `json:"bestmove"`
	WDL      *int   `json:"wdl"`
	DTZ      *int   `json:"dtz"`
	DTM      *int   `json:"dtm"`
}

// Probe queries the API for b.
func (s *Syzygy) Probe(ctx context.Context, b *board.Board) (Result, error) {
	if b.PieceCount() > s.maxPieces {
		return Result{}, nil
	}

	u := s.baseURL + "?" + url.Values{"fen": {fullFEN(b)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("syzygy request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Result{}, nil
	default:
		return Result{}, fmt.Errorf("syzygy request: %s", resp.Status)
	}

	var r syzygyResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Result{}, fmt.Errorf("syzygy response: %w", err)
	}
	if r.WDL == nil && r.BestMove == "" {
		return Result{}, nil
	}

	res := Result{Found: true, BestMove: r.BestMove}
	if r.WDL != nil {
		res.WDL = WDL(*r.WDL)
	}
	if r.DTZ != nil {
		res.DTZ = *r.DTZ
	}
	if r.DTM != nil {
		res.DTM = *r.DTM
	}
	return res, nil
}

// SetMaxPieces lowers the piece limit below which positions are probed.
// Values outside 3..DefaultMaxPieces are ignored.
func (s *Syzygy) SetMaxPieces(n int) {
	if n >= 3 && n <= DefaultMaxPieces {
		s.maxPieces = n
	}
}

// MaxPieces returns the maximum number of pieces supported.
func (s *Syzygy) MaxPieces() int {
	return s.maxPieces
}
