package fit

import "errors"

// ErrInvalidPieceSize is returned by ValidatePiece when a requested dimension is not positive.
var ErrInvalidPieceSize = errors.New("requested width and height must be positive")
