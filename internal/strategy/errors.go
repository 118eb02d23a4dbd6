package strategy

import "errors"

var (
	// ErrStalePrice marks an instrument whose current price is zero or unavailable.
	ErrStalePrice = errors.New("stale price")
	// ErrWeightMismatch marks static weights that do not sum to 1.0.
	ErrWeightMismatch = errors.New("static weights do not sum to 1.0")
	// ErrDuplicateEvaluation is returned when the current month was already evaluated.
	ErrDuplicateEvaluation = errors.New("month already evaluated")
)
