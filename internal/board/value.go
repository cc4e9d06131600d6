package board

import "math"

// Valuation weights.
const (
	KillFactor      = 2.0 // Multiplier on the captured piece's value
	PromotionFactor = 3.0 // Multiplier on the promotion piece's value

	MateValue       = 1000.0 // Side value of the side to move when mated (negated)
	TempoBonus      = 0.5    // Awarded to the side to move
	CheckTempoBonus = 1.0    // Awarded instead of TempoBonus when in check

	attackerCeiling = 16.0
)

// reach[piece][square] is the number of moves the piece has from the square
// on an otherwise empty board.
var reach [King + 1][64]int

func init() {
	for sq := Square(0); sq < 64; sq++ {
		x, y := sq.X(), sq.Y()
		for _, d := range knightOffsets {
			if onBoard(x+d[0], y+d[1]) {
				reach[Knight][sq]++
			}
		}
		for _, d := range kingOffsets {
			if onBoard(x+d[0], y+d[1]) {
				reach[King][sq]++
			}
		}
		reach[Bishop][sq] = rayLength(x, y, bishopDirections[:])
		reach[Rook][sq] = rayLength(x, y, rookDirections[:])
		reach[Queen][sq] = reach[Bishop][sq] + reach[Rook][sq]
	}
}

func rayLength(x, y int, dirs [][2]int) int {
	n := 0
	for _, d := range dirs {
		for tx, ty := x+d[0], y+d[1]; onBoard(tx, ty); tx, ty = tx+d[0], ty+d[1] {
			n++
		}
	}
	return n
}

// ValueAt returns the positional value of the piece standing on (x, y).
// Pawns gain with advancement and slightly towards the centre files; other
// pieces except the king scale with their open-board mobility from the
// square.
func (p Piece) ValueAt(s Side, x, y int) float64 {
	base := p.BaseValue()
	switch p {
	case Pawn:
		advance := y
		if s == Black {
			advance = 7 - y
		}
		centre := 1 - math.Abs(float64(x)-3.5)/3.5
		return base * (1 + 0.1*float64(advance-1)) * (1 + 0.05*centre)
	case Knight, Bishop, Rook, Queen:
		ratio := float64(reach[p][NewSquare(x, y)]) / float64(p.MaxMoves())
		return base * (0.9 + 0.2*ratio)
	case King:
		return base
	default:
		return 0
	}
}

func moveValue(m Move) float64 {
	src := m.Source
	v := 1.0
	v -= src.Piece.ValueAt(src.Side, src.X, src.Y)
	v += src.Piece.ValueAt(src.Side, m.ToX, m.ToY)
	if m.IsCapture() {
		v += m.Killed.Value() * KillFactor
	}
	if m.IsPromotion() {
		v += m.Promotion.ValueAt(src.Side, m.ToX, m.ToY) * PromotionFactor
	}
	return v
}

// Value returns the heuristic value of the board. Positive favours White.
func (b *Board) Value() float64 {
	return b.SideValue(White) - b.SideValue(Black)
}

// SideValue returns the heuristic value of one side's pieces.
func (b *Board) SideValue(side Side) float64 {
	value := 0.0
	if side == b.side {
		switch {
		case b.IsMate():
			return -MateValue
		case b.IsStalemate():
			return 0
		case b.IsCheck():
			value += CheckTempoBonus
		default:
			value += TempoBonus
		}
	} else if b.IsMate() || b.IsStalemate() {
		return 0
	}

	a := b.Analysis()
	for sq := Square(0); sq < 64; sq++ {
		p := b.squares[sq]
		if p.IsZero() || p.Side != side {
			continue
		}
		value += a.pieceValue(p)
	}
	return value
}

// PositionValue returns the value of the piece on (x, y) within the current
// analysis, or 0 for an empty square.
func (b *Board) PositionValue(x, y int) float64 {
	p, ok := b.At(x, y)
	if !ok {
		return 0
	}
	return b.Analysis().pieceValue(p)
}

// pieceValue scales the positional value of p by its mobility, the pieces
// it attacks and defends, and the pieces attacking it.
func (a *Analysis) pieceValue(p Position) float64 {
	sq := p.Square()
	maxAttacks := float64(p.Piece.MaxAttacks())

	v := p.Value()
	switch p.Piece {
	case Knight, Bishop, Rook, Queen:
		v *= 1 + 0.1*ratio(len(a.moves[sq]), float64(p.Piece.MaxMoves()))
	}
	v *= 1 + 0.2*ratio(len(a.attacks[sq]), maxAttacks)
	v *= 1 + 0.15*ratio(len(a.defends[sq]), maxAttacks)
	v *= 1 - 0.1*ratio(len(a.attackers[sq]), attackerCeiling)
	return v
}

func ratio(n int, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Min(float64(n)/limit, 1)
}
