// Package board implements the chess board, its FEN codec, move analysis
// and heuristic valuation.
package board

import "fmt"

// Square represents a square on the chess board (0-63).
// Uses Little-Endian Rank-File Mapping: A1=0, H1=7, A8=56, H8=63.
type Square uint8

// NoSquare marks an absent square.
const NoSquare Square = 64

// NewSquare creates a square from x (file) and y (rank), both 0-indexed.
func NewSquare(x, y int) Square {
	return Square(y*8 + x)
}

// X returns the file of the square (0=a, 7=h).
func (sq Square) X() int {
	return int(sq) & 7
}

// Y returns the rank of the square (0=1, 7=8).
func (sq Square) Y() int {
	return int(sq) >> 3
}

// String returns the algebraic notation for the square (e.g., "e4").
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.X(), '1'+sq.Y())
}

// ParseSquare parses algebraic notation (e.g., "e4") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}

	x := int(s[0]) - 'a'
	y := int(s[1]) - '1'
	if !onBoard(x, y) {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}

	return NewSquare(x, y), nil
}

func onBoard(x, y int) bool {
	return x >= 0 && x < 8 && y >= 0 && y < 8
}
