package board

import "fmt"

var (
	knightOffsets = [8][2]int{
		{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2},
	}
	kingOffsets = [8][2]int{
		{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
	}
	bishopDirections = [4][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	rookDirections   = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	queenDirections  = kingOffsets
)

// Analysis is a read-only snapshot of the moves, attacks and defences of
// every piece on one board state. It is built in full by the Board on the
// first query after a mutation and discarded on the next one.
type Analysis struct {
	side    Side
	squares [64]Position

	moves     [64][]Move
	attacks   [64][]Position // enemy pieces attacked from the square
	defends   [64][]Position // own pieces defended from the square
	attackers [64][]Position // enemy pieces attacking the square
	defenders [64][]Position // own pieces defending the square

	attacked    [2]Bitboard // squares reached by each side
	kingInCheck bool
}

// newAnalysis analyses the given placement with side to move.
//
// Kings need two extra passes: a king may only step onto squares the
// opponent does not reach, and the opponent's king reach depends on ours.
// Both kings are first evaluated for threats only against the bitboards of
// the other pieces, then generated in full against the merged bitboards.
func newAnalysis(squares *[64]Position, side Side) *Analysis {
	a := &Analysis{side: side, squares: *squares}

	var kings []Position
	for sq := range a.squares {
		p := a.squares[sq]
		switch p.Piece {
		case NoPiece:
		case King:
			kings = append(kings, p)
		default:
			a.generate(p)
		}
	}

	before := a.attacked
	after := before
	for _, k := range kings {
		after[k.Side] |= a.kingThreats(k, before)
	}
	a.attacked = after

	for _, k := range kings {
		a.generate(k)
	}

	if k, ok := a.kingOf(side); ok {
		a.kingInCheck = a.attacked[side.Other()].Has(k.Square())
	}
	return a
}

// generate produces moves, attacks and defences for one piece.
func (a *Analysis) generate(p Position) {
	switch p.Piece {
	case Pawn:
		a.pawn(p)
	case Knight:
		a.steps(p, knightOffsets[:])
	case Bishop:
		a.rays(p, bishopDirections[:])
	case Rook:
		a.rays(p, rookDirections[:])
	case Queen:
		a.rays(p, queenDirections[:])
	case King:
		a.king(p)
	default:
		panic(fmt.Sprintf("board: cannot generate moves for %v", p.Piece))
	}
}

func (a *Analysis) at(x, y int) Position {
	return a.squares[NewSquare(x, y)]
}

func (a *Analysis) addMove(p Position, x, y int, killed Position, promotion Piece) {
	sq := p.Square()
	a.moves[sq] = append(a.moves[sq], newMove(p, x, y, killed, promotion))
	a.attacked[p.Side] = a.attacked[p.Side].Set(NewSquare(x, y))
	if !killed.IsZero() {
		a.attacks[sq] = append(a.attacks[sq], killed)
		a.attackers[killed.Square()] = append(a.attackers[killed.Square()], p)
	}
}

func (a *Analysis) addDefend(p, ally Position) {
	a.defends[p.Square()] = append(a.defends[p.Square()], ally)
	a.defenders[ally.Square()] = append(a.defenders[ally.Square()], p)
	a.attacked[p.Side] = a.attacked[p.Side].Set(ally.Square())
}

// target adds a move, a capture or a defence onto (x, y) and reports
// whether the square was empty.
func (a *Analysis) target(p Position, x, y int) bool {
	other := a.at(x, y)
	switch {
	case other.IsZero():
		a.addMove(p, x, y, Position{}, NoPiece)
		return true
	case other.Side != p.Side:
		a.addMove(p, x, y, other, NoPiece)
	default:
		a.addDefend(p, other)
	}
	return false
}

func (a *Analysis) pawn(p Position) {
	dir, start, last := 1, 1, 7
	if p.Side == Black {
		dir, start, last = -1, 6, 0
	}

	y := p.Y + dir
	if !onBoard(p.X, y) {
		return
	}

	if a.at(p.X, y).IsZero() {
		a.pawnMove(p, p.X, y, Position{}, last)
		if p.Y == start && onBoard(p.X, y+dir) && a.at(p.X, y+dir).IsZero() {
			a.addMove(p, p.X, y+dir, Position{}, NoPiece)
		}
	}

	for _, x := range [2]int{p.X - 1, p.X + 1} {
		if !onBoard(x, y) {
			continue
		}
		other := a.at(x, y)
		switch {
		case other.IsZero():
		case other.Side != p.Side:
			a.pawnMove(p, x, y, other, last)
		default:
			a.addDefend(p, other)
		}
	}
}

// pawnMove adds a pawn move, or one move per promotion piece when the pawn
// reaches the last rank.
func (a *Analysis) pawnMove(p Position, x, y int, killed Position, last int) {
	if y != last {
		a.addMove(p, x, y, killed, NoPiece)
		return
	}
	for _, promotion := range PromotionPieces {
		a.addMove(p, x, y, killed, promotion)
	}
}

func (a *Analysis) steps(p Position, offsets [][2]int) {
	for _, d := range offsets {
		x, y := p.X+d[0], p.Y+d[1]
		if onBoard(x, y) {
			a.target(p, x, y)
		}
	}
}

func (a *Analysis) rays(p Position, dirs [][2]int) {
	for _, d := range dirs {
		for x, y := p.X+d[0], p.Y+d[1]; onBoard(x, y); x, y = x+d[0], y+d[1] {
			if !a.target(p, x, y) {
				break
			}
		}
	}
}

// kingThreats returns the squares k would reach given the other side's
// reach in attacked, without recording anything.
func (a *Analysis) kingThreats(k Position, attacked [2]Bitboard) Bitboard {
	var threats Bitboard
	enemy := attacked[k.Side.Other()]
	for _, d := range kingOffsets {
		x, y := k.X+d[0], k.Y+d[1]
		if !onBoard(x, y) {
			continue
		}
		sq := NewSquare(x, y)
		if enemy.Has(sq) {
			continue
		}
		threats = threats.Set(sq)
	}
	return threats
}

// king generates king steps, captures and defences on squares the opponent
// does not reach. An ally standing on a reached square is not defended.
func (a *Analysis) king(k Position) {
	enemy := a.attacked[k.Side.Other()]
	for _, d := range kingOffsets {
		x, y := k.X+d[0], k.Y+d[1]
		if !onBoard(x, y) {
			continue
		}
		if enemy.Has(NewSquare(x, y)) {
			continue
		}
		a.target(k, x, y)
	}
}

func (a *Analysis) kingOf(side Side) (Position, bool) {
	for _, p := range a.squares {
		if p.Piece == King && p.Side == side {
			return p, true
		}
	}
	return Position{}, false
}

// Moves returns the moves generated for the piece on sq.
func (a *Analysis) Moves(sq Square) []Move {
	return a.moves[sq]
}

// Attacks returns the enemy pieces attacked by the piece on sq.
func (a *Analysis) Attacks(sq Square) []Position {
	return a.attacks[sq]
}

// Defends returns the own pieces defended by the piece on sq.
func (a *Analysis) Defends(sq Square) []Position {
	return a.defends[sq]
}

// Attackers returns the enemy pieces attacking the piece on sq.
func (a *Analysis) Attackers(sq Square) []Position {
	return a.attackers[sq]
}

// Defenders returns the own pieces defending the piece on sq.
func (a *Analysis) Defenders(sq Square) []Position {
	return a.defenders[sq]
}

// AttackedBy returns every square reached by the given side.
func (a *Analysis) AttackedBy(side Side) Bitboard {
	return a.attacked[side]
}

// KingInCheck reports whether the side to move has its king attacked.
func (a *Analysis) KingInCheck() bool {
	return a.kingInCheck
}
