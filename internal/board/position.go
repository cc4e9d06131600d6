package board

import "fmt"

// Position records one piece standing on one square. It is a plain value:
// moving a piece produces a new Position rather than changing an old one.
// The zero Position (Piece == NoPiece) means "no piece".
type Position struct {
	Piece Piece
	Side  Side
	X     int
	Y     int
}

// NewPosition creates a Position, rejecting coordinates outside the board.
func NewPosition(piece Piece, side Side, x, y int) (Position, error) {
	if !onBoard(x, y) {
		return Position{}, fmt.Errorf("%w: (%d,%d)", ErrInvalidSquare, x, y)
	}
	if piece == NoPiece || piece > King {
		return Position{}, fmt.Errorf("invalid piece %d", piece)
	}
	return Position{Piece: piece, Side: side, X: x, Y: y}, nil
}

// IsZero reports whether p is the empty Position.
func (p Position) IsZero() bool {
	return p.Piece == NoPiece
}

// Square returns the square the piece stands on.
func (p Position) Square() Square {
	return NewSquare(p.X, p.Y)
}

// Value returns the positional value of the piece on its square.
func (p Position) Value() float64 {
	return p.Piece.ValueAt(p.Side, p.X, p.Y)
}

// moveTo returns the same piece standing on another square.
func (p Position) moveTo(x, y int) Position {
	p.X, p.Y = x, y
	return p
}

// String returns the FEN letter followed by the square, e.g. "Pe2".
func (p Position) String() string {
	if p.IsZero() {
		return "-"
	}
	return string(p.Piece.Letter(p.Side)) + p.Square().String()
}
