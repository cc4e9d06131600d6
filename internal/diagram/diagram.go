// Package diagram draws a board as a PNG image, optionally overlaid with
// move arrows and per-piece value bars.
package diagram

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hailam/guppy/internal/board"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultSquareSize is the edge of one square in pixels.
	DefaultSquareSize = 55

	renderScale    = 3
	labelMargin    = 16
	arrowFactor    = 40
	valuePixels    = 5
	valueOffset    = 4
	dotRadius      = 3
	glyphSquareMul = 45.0 / 55.0
)

// Square colours.
var (
	LightSquare = color.RGBA{240, 217, 181, 255}
	DarkSquare  = color.RGBA{181, 136, 99, 255}
)

var (
	positiveArrow = color.NRGBA{0, 255, 0, 150}
	negativeArrow = color.NRGBA{255, 0, 0, 150}
	labelColor    = color.RGBA{60, 60, 60, 255}
	background    = color.RGBA{255, 255, 255, 255}
)

// Arrow is a move drawn with a thickness proportional to |Value|: green
// when Value >= 0, red otherwise.
type Arrow struct {
	Move  board.Move
	Value float64
}

// Options controls what is drawn on top of the pieces.
type Options struct {
	SquareSize int
	Arrows     []Arrow
	// Values draws one bar per piece: its value in the position, with a
	// tick at its base value.
	Values bool
}

// Render writes b as a PNG image to w.
func Render(w io.Writer, b *board.Board, opts Options) error {
	img, err := Draw(b, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteFile renders b into dir under FileName(b) and returns the path.
func WriteFile(dir string, b *board.Board, opts Options) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagram dir: %w", err)
	}
	path = filepath.Join(dir, FileName(b))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create diagram: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return path, Render(f, b, opts)
}

// FileName returns a file name derived from the FEN of b.
func FileName(b *board.Board) string {
	r := strings.NewReplacer("/", "_", " ", "_")
	return "diagram_" + r.Replace(b.FEN()) + ".png"
}

type canvas struct {
	img  *image.RGBA
	size int
}

// Draw renders b into a new image.
func Draw(b *board.Board, opts Options) (*image.RGBA, error) {
	size := opts.SquareSize
	if size <= 0 {
		size = DefaultSquareSize
	}
	c := &canvas{
		img:  image.NewRGBA(image.Rect(0, 0, labelMargin+8*size, 8*size+labelMargin)),
		size: size,
	}
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	c.squares()
	c.labels()
	if err := c.pieces(b); err != nil {
		return nil, err
	}
	if opts.Values {
		c.values(b)
	}
	for _, a := range opts.Arrows {
		c.arrow(a)
	}
	return c.img, nil
}

// origin returns the top-left pixel of square (x, y). Rank 8 is at the top.
func (c *canvas) origin(x, y int) image.Point {
	return image.Pt(labelMargin+x*c.size, (7-y)*c.size)
}

func (c *canvas) center(x, y int) (float64, float64) {
	o := c.origin(x, y)
	return float64(o.X) + float64(c.size)/2, float64(o.Y) + float64(c.size)/2
}

func (c *canvas) squares() {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			col := DarkSquare
			if (x+y)%2 != 0 {
				col = LightSquare
			}
			o := c.origin(x, y)
			r := image.Rect(o.X, o.Y, o.X+c.size, o.Y+c.size)
			draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
		}
	}
}

func (c *canvas) labels() {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
	}
	for i := 0; i < 8; i++ {
		o := c.origin(i, 0)
		d.Dot = fixed.P(o.X+c.size/2-3, 8*c.size+labelMargin-3)
		d.DrawString(string(rune('a' + i)))

		o = c.origin(0, i)
		d.Dot = fixed.P(4, o.Y+c.size/2+5)
		d.DrawString(string(rune('1' + i)))
	}
}

func (c *canvas) pieces(b *board.Board) error {
	side := int(float64(c.size) * glyphSquareMul)
	inset := (c.size - side) / 2
	for _, p := range b.Positions() {
		g, err := glyph(p.Piece, p.Side, side*renderScale)
		if err != nil {
			return err
		}
		o := c.origin(p.X, p.Y).Add(image.Pt(inset, inset))
		draw.CatmullRom.Scale(c.img, image.Rect(o.X, o.Y, o.X+side, o.Y+side), g, g.Bounds(), draw.Over, nil)
	}
	return nil
}

func (c *canvas) filler() *rasterx.Filler {
	w, h := c.img.Bounds().Dx(), c.img.Bounds().Dy()
	return rasterx.NewFiller(w, h, rasterx.NewScannerGV(w, h, c.img, c.img.Bounds()))
}

func (c *canvas) fillRect(col color.Color, minX, minY, maxX, maxY float64) {
	f := c.filler()
	f.SetColor(col)
	rasterx.AddRect(minX, minY, maxX, maxY, 0, f)
	f.Draw()
}

func (c *canvas) values(b *board.Board) {
	for _, p := range b.Positions() {
		o := c.origin(p.X, p.Y)
		x := float64(o.X)
		y := float64(o.Y + c.size - valueOffset)

		bar, tick := color.Color(color.RGBA{255, 255, 0, 255}), color.Color(color.RGBA{64, 64, 64, 255})
		if p.Side == board.Black {
			bar, tick = color.Black, color.RGBA{255, 255, 0, 255}
		}
		length := math.Min(b.PositionValue(p.X, p.Y)*valuePixels, float64(c.size))
		c.fillRect(bar, x, y-1, x+math.Max(length, 1), y+1)

		base := math.Min(p.Piece.BaseValue()*valuePixels, float64(c.size-1))
		c.fillRect(tick, x+base, y-2, x+base+1, y+2)
	}
}

// thickness returns the half-width of an arrow's base for value v.
func (c *canvas) thickness(v float64) float64 {
	return math.Max(1, math.Round(math.Min(float64(c.size/2), math.Abs(v)*arrowFactor)))
}

func (c *canvas) arrow(a Arrow) {
	m := a.Move
	if m.IsZero() {
		return
	}
	col := positiveArrow
	if a.Value < 0 {
		col = negativeArrow
	}

	sx, sy := c.center(m.Source.X, m.Source.Y)
	tx, ty := c.center(m.ToX, m.ToY)
	angle := math.Atan2(ty-sy, tx-sx)
	t := c.thickness(a.Value)

	f := c.filler()
	f.SetColor(col)
	f.Start(rasterx.ToFixedP(sx+t*math.Cos(angle-math.Pi/2), sy+t*math.Sin(angle-math.Pi/2)))
	f.Line(rasterx.ToFixedP(sx+t*math.Cos(angle+math.Pi/2), sy+t*math.Sin(angle+math.Pi/2)))
	f.Line(rasterx.ToFixedP(tx, ty))
	f.Stop(true)
	rasterx.AddCircle(tx, ty, dotRadius, f)
	f.Draw()
}
