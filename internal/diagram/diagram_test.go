package diagram

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hailam/guppy/internal/board"
)

func TestRenderStartPosition(t *testing.T) {
	b := board.NewStartBoard()
	var arrows []Arrow
	for i, m := range b.LegalMoves() {
		v := 0.5
		if i%2 == 1 {
			v = -0.25
		}
		arrows = append(arrows, Arrow{Move: m, Value: v})
	}

	var buf bytes.Buffer
	if err := Render(&buf, b, Options{Arrows: arrows, Values: true}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	want := labelMargin + 8*DefaultSquareSize
	if got := img.Bounds().Dx(); got != want {
		t.Errorf("Width = %d, want %d", got, want)
	}
	if got := img.Bounds().Dy(); got != want {
		t.Errorf("Height = %d, want %d", got, want)
	}
}

func TestSquareColours(t *testing.T) {
	img, err := Draw(board.NewBoard(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		x, y int
		want [3]uint8
	}{
		{"a1 dark", 0, 0, [3]uint8{181, 136, 99}},
		{"b1 light", 1, 0, [3]uint8{240, 217, 181}},
		{"h8 dark", 7, 7, [3]uint8{181, 136, 99}},
	}
	c := &canvas{size: DefaultSquareSize}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := c.origin(tt.x, tt.y)
			got := img.RGBAAt(o.X+2, o.Y+2)
			if [3]uint8{got.R, got.G, got.B} != tt.want {
				t.Errorf("Pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGlyphsRender(t *testing.T) {
	for _, side := range []board.Side{board.White, board.Black} {
		for p := board.Pawn; p <= board.King; p++ {
			img, err := glyph(p, side, 45)
			if err != nil {
				t.Fatalf("glyph(%v, %v): %v", p, side, err)
			}
			opaque := 0
			for i := 3; i < len(img.Pix); i += 4 {
				if img.Pix[i] > 0 {
					opaque++
				}
			}
			if opaque == 0 {
				t.Errorf("glyph(%v, %v) is empty", p, side)
			}
		}
	}
}

func TestArrowThickness(t *testing.T) {
	c := &canvas{size: DefaultSquareSize}
	tests := []struct {
		value float64
		want  float64
	}{
		{0, 1},
		{0.1, 4},
		{-0.5, 20},
		{1, 27},
		{-3, 27},
	}
	for _, tt := range tests {
		if got := c.thickness(tt.value); got != tt.want {
			t.Errorf("thickness(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	b := board.NewStartBoard()

	path, err := WriteFile(filepath.Join(dir, "out"), b, Options{})
	if err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if filepath.Base(path) != FileName(b) {
		t.Errorf("Path %q does not use FileName %q", path, FileName(b))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("Diagram file is empty")
	}
}
