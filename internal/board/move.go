package board

import (
	"fmt"
	"strings"
)

// Move is an immutable move of one piece. Killed is the zero Position when
// nothing is captured and Promotion is NoPiece unless a pawn promotes.
// The heuristic value is computed once, at construction.
type Move struct {
	Source    Position
	ToX       int
	ToY       int
	Killed    Position
	Promotion Piece

	value float64
}

// NoMove is returned when no move is available. It renders as "0000".
var NoMove Move

// NewMove creates a move, rejecting targets outside the board.
func NewMove(source Position, toX, toY int, killed Position, promotion Piece) (Move, error) {
	if !onBoard(toX, toY) {
		return NoMove, fmt.Errorf("%w: target (%d,%d)", ErrInvalidSquare, toX, toY)
	}
	if source.IsZero() {
		return NoMove, fmt.Errorf("%w: no piece to move", ErrIllegalMove)
	}
	return newMove(source, toX, toY, killed, promotion), nil
}

// newMove builds a move whose coordinates are already known to be valid.
func newMove(source Position, toX, toY int, killed Position, promotion Piece) Move {
	m := Move{
		Source:    source,
		ToX:       toX,
		ToY:       toY,
		Killed:    killed,
		Promotion: promotion,
	}
	m.value = moveValue(m)
	return m
}

// Value returns the intrinsic heuristic value of the move.
func (m Move) Value() float64 {
	return m.value
}

// IsZero reports whether m is NoMove.
func (m Move) IsZero() bool {
	return m.Source.IsZero()
}

// From returns the origin square.
func (m Move) From() Square {
	return m.Source.Square()
}

// To returns the target square.
func (m Move) To() Square {
	return NewSquare(m.ToX, m.ToY)
}

// IsCapture reports whether the move removes a piece.
func (m Move) IsCapture() bool {
	return !m.Killed.IsZero()
}

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Promotion != NoPiece
}

// IsCastling reports whether the move is a king moving onto its own rook.
func (m Move) IsCastling() bool {
	return m.Source.Piece == King && m.Killed.Piece == Rook && m.Killed.Side == m.Source.Side
}

// UCI returns the move in coordinate notation (e.g., "e2e4", "e7e8q").
// Castling is written as the king moving two files ("e1g1").
func (m Move) UCI() string {
	if m.IsZero() {
		return "0000"
	}
	to := m.To()
	if m.IsCastling() {
		x := 6
		if m.ToX < m.Source.X {
			x = 2
		}
		to = NewSquare(x, m.Source.Y)
	}
	s := m.From().String() + to.String()
	if m.IsPromotion() {
		s += string(m.Promotion.Letter(Black))
	}
	return s
}

// String returns the move in coordinate notation.
func (m Move) String() string {
	return m.UCI()
}

// Notation returns a descriptive form such as "Pe2-e4", "Nb1xc3" or
// "Pe7-e8=Q", followed by the move value.
func (m Move) Notation() string {
	if m.IsZero() {
		return "(none)"
	}
	var sb strings.Builder
	sb.WriteString(m.Source.String())
	if m.IsCapture() {
		sb.WriteByte('x')
	} else {
		sb.WriteByte('-')
	}
	sb.WriteString(m.To().String())
	if m.IsPromotion() {
		sb.WriteByte('=')
		sb.WriteByte(m.Promotion.Letter(White))
	}
	fmt.Fprintf(&sb, "(%.3f)", m.value)
	return sb.String()
}
