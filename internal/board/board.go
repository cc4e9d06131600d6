package board

import (
	"fmt"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w"

// Board holds piece placements and the side to move. Its Analysis is built
// lazily and cleared by every mutation.
//
// A Board is not safe for concurrent mutation. Search isolates work by
// cloning; a clone may be read and analysed concurrently with the original
// as long as neither is mutated.
type Board struct {
	squares  [64]Position
	side     Side
	analysis *Analysis
}

// NewBoard returns an empty board with White to move.
func NewBoard() *Board {
	return &Board{}
}

// NewStartBoard returns a board set up in the standard starting position.
func NewStartBoard() *Board {
	b := NewBoard()
	if err := b.SetFEN(StartFEN); err != nil {
		panic(err)
	}
	return b
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

func (b *Board) invalidate() {
	b.analysis = nil
}

// Analysis returns the analysis of the current state, building it if needed.
func (b *Board) Analysis() *Analysis {
	if b.analysis == nil {
		b.analysis = newAnalysis(&b.squares, b.side)
	}
	return b.analysis
}

// SideToMove returns the side whose turn it is.
func (b *Board) SideToMove() Side {
	return b.side
}

// SetSideToMove changes the side to move.
func (b *Board) SetSideToMove(s Side) {
	b.side = s
	b.invalidate()
}

// At returns the piece on (x, y), if any.
func (b *Board) At(x, y int) (Position, bool) {
	if !onBoard(x, y) {
		return Position{}, false
	}
	p := b.squares[NewSquare(x, y)]
	return p, !p.IsZero()
}

// Place puts a piece on the board, replacing whatever stood on its square.
func (b *Board) Place(p Position) error {
	if !onBoard(p.X, p.Y) || p.IsZero() {
		return fmt.Errorf("%w: cannot place %v at (%d,%d)", ErrInvalidSquare, p.Piece, p.X, p.Y)
	}
	b.squares[p.Square()] = p
	b.invalidate()
	return nil
}

// Remove clears the square (x, y).
func (b *Board) Remove(x, y int) {
	if !onBoard(x, y) {
		return
	}
	b.squares[NewSquare(x, y)] = Position{}
	b.invalidate()
}

// Clear removes every piece and gives the move to White.
func (b *Board) Clear() {
	*b = Board{}
}

// Positions returns every piece on the board in square order.
func (b *Board) Positions() []Position {
	var positions []Position
	for _, p := range b.squares {
		if !p.IsZero() {
			positions = append(positions, p)
		}
	}
	return positions
}

// PieceCount returns the number of pieces on the board.
func (b *Board) PieceCount() int {
	n := 0
	for _, p := range b.squares {
		if !p.IsZero() {
			n++
		}
	}
	return n
}

// IsCheck reports whether the side to move is in check.
func (b *Board) IsCheck() bool {
	return b.Analysis().KingInCheck()
}

// IsMate reports whether the side to move is checkmated.
func (b *Board) IsMate() bool {
	return b.IsCheck() && !b.hasMoves()
}

// IsStalemate reports whether the side to move has no moves while not in
// check.
func (b *Board) IsStalemate() bool {
	return !b.IsCheck() && !b.hasMoves()
}

// IsFinished reports whether the game is over.
func (b *Board) IsFinished() bool {
	return !b.hasMoves()
}

func (b *Board) hasMoves() bool {
	return len(b.LegalMoves()) > 0
}

// LegalMoves returns the moves available to the side to move.
//
// In check only king moves are generated, so a check can never be answered
// by capturing or blocking the checking piece. Outside check, moves of
// pinned pieces are not filtered.
func (b *Board) LegalMoves() []Move {
	a := b.Analysis()
	if a.KingInCheck() {
		k, _ := a.kingOf(b.side)
		var moves []Move
		for _, m := range a.moves[k.Square()] {
			if !b.stillInCheck(m) {
				moves = append(moves, m)
			}
		}
		return moves
	}

	var moves []Move
	for sq, p := range b.squares {
		if !p.IsZero() && p.Side == b.side {
			moves = append(moves, a.moves[sq]...)
		}
	}
	return moves
}

// MovesFrom returns the legal moves of the piece on (x, y).
func (b *Board) MovesFrom(x, y int) []Move {
	var moves []Move
	for _, m := range b.LegalMoves() {
		if m.Source.X == x && m.Source.Y == y {
			moves = append(moves, m)
		}
	}
	return moves
}

// stillInCheck reports whether the mover's king is attacked after m.
func (b *Board) stillInCheck(m Move) bool {
	c := b.Clone()
	if err := c.Move(m); err != nil {
		return true
	}
	k, ok := c.Analysis().kingOf(b.side)
	if !ok {
		return true
	}
	return c.Analysis().AttackedBy(b.side.Other()).Has(k.Square())
}

// Move applies m and passes the turn. A king moving onto a rook of its own
// side castles: the king lands on the g or c file and the rook next to it.
// Capturing any king is rejected with ErrKingCaptured, and capturing an own
// piece other than by castling with ErrIllegalMove. Both leave the board
// unchanged.
func (b *Board) Move(m Move) error {
	if m.IsZero() {
		return fmt.Errorf("%w: no move", ErrIllegalMove)
	}
	if m.Killed.Piece == King {
		return fmt.Errorf("%w: %s takes %s", ErrKingCaptured, m.Source, m.Killed)
	}
	if m.IsCapture() && m.Killed.Side == m.Source.Side && !m.IsCastling() {
		return fmt.Errorf("%w: %s takes own %s", ErrIllegalMove, m.Source, m.Killed)
	}

	src := m.Source
	b.squares[src.Square()] = Position{}
	if m.IsCapture() {
		b.squares[m.Killed.Square()] = Position{}
	}

	if m.IsCastling() {
		kingX, rookX := 6, 5
		if m.Killed.X < src.X {
			kingX, rookX = 2, 3
		}
		b.squares[NewSquare(kingX, src.Y)] = src.moveTo(kingX, src.Y)
		b.squares[NewSquare(rookX, src.Y)] = m.Killed.moveTo(rookX, src.Y)
	} else {
		placed := src.moveTo(m.ToX, m.ToY)
		if m.IsPromotion() {
			placed.Piece = m.Promotion
		}
		b.squares[placed.Square()] = placed
	}

	b.side = b.side.Other()
	b.invalidate()
	return nil
}

// MoveUCI applies a move given in coordinate notation, e.g. "e2e4" or
// "e7e8q". Castling may be written either as the king moving onto its rook
// ("e1h1") or as the king moving two files ("e1g1").
func (b *Board) MoveUCI(text string) error {
	m, err := b.ParseMove(text)
	if err != nil {
		return err
	}
	return b.Move(m)
}

// ParseMove converts coordinate notation into a Move on this board without
// applying it.
func (b *Board) ParseMove(text string) (Move, error) {
	if len(text) != 4 && len(text) != 5 {
		return NoMove, &ParseError{Err: ErrInvalidMove, Input: text}
	}
	from, err := ParseSquare(text[0:2])
	if err != nil {
		return NoMove, &ParseError{Err: ErrInvalidMove, Input: text, Offset: 0, Token: text[0:2]}
	}
	to, err := ParseSquare(text[2:4])
	if err != nil {
		return NoMove, &ParseError{Err: ErrInvalidMove, Input: text, Offset: 2, Token: text[2:4]}
	}

	if from == to {
		return NoMove, fmt.Errorf("%w: %s does not move", ErrIllegalMove, text)
	}
	src := b.squares[from]
	if src.IsZero() {
		return NoMove, fmt.Errorf("%w: no piece on %s", ErrIllegalMove, from)
	}
	if src.Side != b.side {
		return NoMove, fmt.Errorf("%w: %s is not %s to move", ErrIllegalMove, src, b.side)
	}

	promotion := NoPiece
	if len(text) == 5 {
		p, _, ok := PieceFromLetter(text[4])
		if !ok || p == Pawn || p == King {
			return NoMove, &ParseError{Err: ErrInvalidMove, Input: text, Offset: 4, Token: text[4:]}
		}
		promotion = p
	}

	if src.Piece == King && to.Y() == from.Y() && abs(to.X()-from.X()) == 2 {
		if rook, ok := b.castlingRook(src, to.X()-from.X()); ok {
			return newMove(src, rook.X, rook.Y, rook, NoPiece), nil
		}
	}

	killed := b.squares[to]
	if !killed.IsZero() && killed.Side == src.Side && !(src.Piece == King && killed.Piece == Rook) {
		return NoMove, fmt.Errorf("%w: %s cannot take own %s", ErrIllegalMove, src, killed)
	}
	return newMove(src, to.X(), to.Y(), killed, promotion), nil
}

// castlingRook finds the first own rook from the king towards dir.
func (b *Board) castlingRook(king Position, dir int) (Position, bool) {
	step := 1
	if dir < 0 {
		step = -1
	}
	for x := king.X + step; x >= 0 && x < 8; x += step {
		p := b.squares[NewSquare(x, king.Y)]
		if p.IsZero() {
			continue
		}
		if p.Piece == Rook && p.Side == king.Side {
			return p, true
		}
		break
	}
	return Position{}, false
}

// String returns an ASCII diagram of the board followed by its FEN.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("  +-----------------+\n")
	for y := 7; y >= 0; y-- {
		fmt.Fprintf(&sb, "%d | ", y+1)
		for x := 0; x < 8; x++ {
			p := b.squares[NewSquare(x, y)]
			if p.IsZero() {
				sb.WriteString(". ")
			} else {
				sb.WriteByte(p.Piece.Letter(p.Side))
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("  +-----------------+\n")
	sb.WriteString("    a b c d e f g h\n")
	sb.WriteString("FEN: ")
	sb.WriteString(b.FEN())
	return sb.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
