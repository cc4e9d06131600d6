package board

import (
	"math/bits"
	"strings"
)

// Bitboard represents a 64-bit board where each bit corresponds to a square.
// Bit 0 = A1, Bit 7 = H1, Bit 56 = A8, Bit 63 = H8.
type Bitboard uint64

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// Set returns the bitboard with the given square set.
func (b Bitboard) Set(sq Square) Bitboard {
	return b | SquareBB(sq)
}

// Has reports whether the given square is set.
func (b Bitboard) Has(sq Square) bool {
	return b&SquareBB(sq) != 0
}

// PopCount returns the number of set bits.
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// Squares returns all set squares in ascending order.
func (b Bitboard) Squares() []Square {
	squares := make([]Square, 0, b.PopCount())
	for b != 0 {
		sq := Square(bits.TrailingZeros64(uint64(b)))
		squares = append(squares, sq)
		b &= b - 1
	}
	return squares
}

// String returns an 8x8 grid with rank 8 on top.
func (b Bitboard) String() string {
	var sb strings.Builder
	for y := 7; y >= 0; y-- {
		for x := 0; x < 8; x++ {
			if b.Has(NewSquare(x, y)) {
				sb.WriteString("X ")
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
