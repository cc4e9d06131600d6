package board

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them.
var (
	// ErrInvalidFEN indicates a malformed FEN string.
	ErrInvalidFEN = errors.New("invalid FEN string")

	// ErrInvalidMove indicates malformed coordinate move text.
	ErrInvalidMove = errors.New("invalid move text")

	// ErrIllegalMove indicates a move that cannot be applied to the board.
	ErrIllegalMove = errors.New("illegal move")

	// ErrInvalidSquare indicates coordinates outside the board.
	ErrInvalidSquare = errors.New("invalid square")

	// ErrKingCaptured indicates a move that would remove a king. Legal move
	// generation never produces one, so seeing it means an upstream bug.
	ErrKingCaptured = errors.New("king captured")
)

// ParseError reports malformed FEN or move text together with the
// offending token and its byte offset in the input.
type ParseError struct {
	Err    error  // ErrInvalidFEN or ErrInvalidMove
	Input  string // The text being parsed
	Offset int    // Byte offset of Token in Input
	Token  string // The offending character or token
}

// Error returns a formatted error message.
func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%v: %q", e.Err, e.Input)
	}
	return fmt.Sprintf("%v: unexpected %q at offset %d in %q", e.Err, e.Token, e.Offset, e.Input)
}

// Unwrap returns the underlying sentinel.
func (e *ParseError) Unwrap() error {
	return e.Err
}
