package board

import (
	"strings"
)

// SetFEN loads a position from FEN. The layout must describe eight ranks of
// eight squares each. Only the piece layout and the optional
// side-to-move field are used; castling rights, en-passant square and move
// counters are accepted and ignored. On error the board is left unchanged.
func (b *Board) SetFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return &ParseError{Err: ErrInvalidFEN, Input: fen}
	}

	layout := fields[0]
	offset := strings.Index(fen, layout)

	var squares [64]Position
	x, y := 0, 7
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		switch {
		case c == '/':
			if x != 8 || y == 0 {
				return &ParseError{Err: ErrInvalidFEN, Input: fen, Offset: offset + i, Token: "/"}
			}
			x = 0
			y--
		case c >= '1' && c <= '9':
			x += int(c - '0')
			if x > 8 {
				return &ParseError{Err: ErrInvalidFEN, Input: fen, Offset: offset + i, Token: string(c)}
			}
		default:
			piece, side, ok := PieceFromLetter(c)
			if !ok || x > 7 {
				return &ParseError{Err: ErrInvalidFEN, Input: fen, Offset: offset + i, Token: string(c)}
			}
			squares[NewSquare(x, y)] = Position{Piece: piece, Side: side, X: x, Y: y}
			x++
		}
	}

	if x != 8 || y != 0 {
		return &ParseError{Err: ErrInvalidFEN, Input: fen, Offset: offset + len(layout)}
	}

	side := White
	if len(fields) > 1 {
		switch fields[1] {
		case "w":
		case "b":
			side = Black
		default:
			return &ParseError{
				Err:    ErrInvalidFEN,
				Input:  fen,
				Offset: strings.Index(fen[offset+len(layout):], fields[1]) + offset + len(layout),
				Token:  fields[1],
			}
		}
	}

	b.squares = squares
	b.side = side
	b.invalidate()
	return nil
}

// FEN returns the piece layout followed by the side to move.
func (b *Board) FEN() string {
	var sb strings.Builder

	for y := 7; y >= 0; y-- {
		empty := 0
		for x := 0; x < 8; x++ {
			p := b.squares[NewSquare(x, y)]
			if p.IsZero() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Piece.Letter(p.Side))
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if y > 0 {
			sb.WriteByte('/')
		}
	}

	if b.side == White {
		sb.WriteString(" w")
	} else {
		sb.WriteString(" b")
	}

	return sb.String()
}
