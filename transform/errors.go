package transform

import "errors"

var (
	// ErrNotFitted is returned by Transform on a transformer that was never fitted.
	ErrNotFitted = errors.New("transformer not fitted")

	// ErrShape is returned when a frame's dimensions do not match what a
	// transformer expects.
	ErrShape = errors.New("shape mismatch")

	// ErrNotNumeric is returned when strict numeric parsing meets a cell that
	// is neither a number nor a missing token.
	ErrNotNumeric = errors.New("non-numeric value")

	// ErrEmpty is returned when fitting on a frame with no rows.
	ErrEmpty = errors.New("no rows to fit")

	// ErrInvalidParam is returned for out-of-range transformer parameters.
	ErrInvalidParam = errors.New("invalid parameter")
)
