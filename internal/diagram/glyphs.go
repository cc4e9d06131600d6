package diagram

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/hailam/guppy/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece outlines on a 45x45 canvas. %[1]s is the fill colour and %[2]s the
// outline colour.
var glyphShapes = map[board.Piece]string{
	board.Pawn: `
<circle cx="22.5" cy="14" r="5"/>
<path d="M 18 20 L 27 20 L 30 34 L 15 34 Z"/>
<rect x="12" y="34" width="21" height="5"/>`,

	board.Knight: `
<path d="M 14 39 L 31 39 L 31 33 C 31 24 30 15 23 10 L 21 6 L 19 10 C 14 13 10 19 10 24
L 13 26 L 18 22 C 19 26 16 30 14 33 Z"/>
<circle cx="17" cy="15" r="1.5"/>`,

	board.Bishop: `
<circle cx="22.5" cy="8" r="2.5"/>
<ellipse cx="22.5" cy="20" rx="7" ry="9"/>
<path d="M 17 28 L 28 28 L 30 33 L 15 33 Z"/>
<rect x="11" y="34" width="23" height="5"/>`,

	board.Rook: `
<path d="M 12 9 L 16 9 L 16 12 L 20 12 L 20 9 L 25 9 L 25 12 L 29 12 L 29 9 L 33 9 L 33 15
L 29 18 L 29 30 L 32 33 L 13 33 L 16 30 L 16 18 L 12 15 Z"/>
<rect x="10" y="34" width="25" height="5"/>`,

	board.Queen: `
<path d="M 9 13 L 14 28 L 16 12 L 20 27 L 22.5 10 L 25 27 L 29 12 L 31 28 L 36 13 L 33 33 L 12 33 Z"/>
<circle cx="9" cy="12" r="2"/>
<circle cx="16" cy="10" r="2"/>
<circle cx="22.5" cy="8" r="2"/>
<circle cx="29" cy="10" r="2"/>
<circle cx="36" cy="12" r="2"/>
<rect x="11" y="34" width="23" height="5"/>`,

	board.King: `
<path d="M 21 4 L 24 4 L 24 7 L 27 7 L 27 10 L 24 10 L 24 14 L 21 14 L 21 10 L 18 10 L 18 7 L 21 7 Z"/>
<path d="M 22.5 15 C 30 15 37 19 35 25 L 31 33 L 14 33 L 10 25 C 8 19 15 15 22.5 15 Z"/>
<rect x="11" y="34" width="23" height="5"/>`,
}

type glyphKey struct {
	piece board.Piece
	side  board.Side
}

var (
	glyphMu    sync.Mutex
	glyphCache = map[glyphKey]map[int]*image.RGBA{}
)

// glyphSVG returns the SVG document of one piece.
func glyphSVG(p board.Piece, side board.Side) string {
	fill, stroke := "#ffffff", "#000000"
	if side == board.Black {
		fill, stroke = "#000000", "#ffffff"
	}
	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`)
	fmt.Fprintf(&sb, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	sb.WriteString(glyphShapes[p])
	sb.WriteString(`</g></svg>`)
	return sb.String()
}

// glyph returns the piece rendered into a size×size image. Images are
// cached per size.
func glyph(p board.Piece, side board.Side, size int) (*image.RGBA, error) {
	key := glyphKey{p, side}

	glyphMu.Lock()
	defer glyphMu.Unlock()
	if img, ok := glyphCache[key][size]; ok {
		return img, nil
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(glyphSVG(p, side)))
	if err != nil {
		return nil, fmt.Errorf("parse %s glyph: %w", p, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	if glyphCache[key] == nil {
		glyphCache[key] = map[int]*image.RGBA{}
	}
	glyphCache[key][size] = img
	return img, nil
}
