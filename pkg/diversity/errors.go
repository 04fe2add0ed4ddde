package diversity

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from
// callers. Invalid arguments and non-numeric inputs abort a whole Compute
// call; an undefined per-group result is a data condition, not an error.
var (
	ErrNoIndices     = errors.New("no indices requested")
	ErrUnknownIndex  = errors.New("unknown index")
	ErrInvalidBase   = errors.New("invalid shannon base")
	ErrInvalidValue  = errors.New("invalid value")
	ErrInvalidWeight = errors.New("invalid weight")
)
