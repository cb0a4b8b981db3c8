package dataset

import "errors"

// Header errors.
var (
	ErrEmptyHeader     = errors.New("no columns declared")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrTargetAsFeature = errors.New("target column requested as feature")
)

// Load errors.
var (
	// ErrNoData is returned when the data directory is missing, holds no data
	// files, or the files hold no rows.
	ErrNoData = errors.New("no training data")

	// ErrInconsistentRow is returned when a row's field count differs from the header.
	ErrInconsistentRow = errors.New("inconsistent column count")
)
