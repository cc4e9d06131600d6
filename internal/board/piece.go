package board

// Side represents one of the two players.
type Side uint8

const (
	White Side = iota
	Black
)

// Other returns the opposing side.
func (s Side) Other() Side {
	return s ^ 1
}

// String returns the side name.
func (s Side) String() string {
	if s == White {
		return "White"
	}
	return "Black"
}

// Sign returns +1 for White and -1 for Black.
func (s Side) Sign() float64 {
	if s == White {
		return 1
	}
	return -1
}

// Piece represents the kind of a chess piece, independent of its side.
type Piece uint8

const (
	NoPiece Piece = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// PromotionPieces lists the pieces a pawn may promote to, in generation order.
var PromotionPieces = [4]Piece{Knight, Bishop, Rook, Queen}

type pieceInfo struct {
	name       string
	letter     byte
	value      float64
	maxMoves   int
	maxAttacks int
}

// maxMoves is the largest number of moves the piece can have on an open
// board; maxAttacks the largest number of pieces it can hit at once.
var pieceTable = [...]pieceInfo{
	NoPiece: {"None", ' ', 0, 0, 0},
	Pawn:    {"Pawn", 'p', 1, 4, 2},
	Knight:  {"Knight", 'n', 3, 8, 8},
	Bishop:  {"Bishop", 'b', 3, 13, 4},
	Rook:    {"Rook", 'r', 5, 14, 4},
	Queen:   {"Queen", 'q', 9, 27, 8},
	King:    {"King", 'k', 4, 8, 8},
}

// String returns the piece name.
func (p Piece) String() string {
	if int(p) >= len(pieceTable) {
		return "None"
	}
	return pieceTable[p].name
}

// Letter returns the FEN letter for the piece: uppercase for White,
// lowercase for Black.
func (p Piece) Letter(s Side) byte {
	if p == NoPiece || int(p) >= len(pieceTable) {
		return ' '
	}
	c := pieceTable[p].letter
	if s == White {
		c -= 'a' - 'A'
	}
	return c
}

// BaseValue returns the material value of the piece in pawns.
func (p Piece) BaseValue() float64 {
	return pieceTable[p].value
}

// MaxMoves returns the theoretical maximum move count of the piece.
func (p Piece) MaxMoves() int {
	return pieceTable[p].maxMoves
}

// MaxAttacks returns the theoretical maximum number of pieces the piece
// can attack or defend at once.
func (p Piece) MaxAttacks() int {
	return pieceTable[p].maxAttacks
}

// PieceFromLetter converts a FEN letter to a piece and side.
func PieceFromLetter(c byte) (Piece, Side, bool) {
	side := Black
	if c >= 'A' && c <= 'Z' {
		side = White
		c += 'a' - 'A'
	}
	for p := Pawn; p <= King; p++ {
		if pieceTable[p].letter == c {
			return p, side, true
		}
	}
	return NoPiece, White, false
}
