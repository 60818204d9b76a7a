package dashboard

import "errors"

var (
	// ErrNoDataset indicates there is no dataset to show.
	ErrNoDataset = errors.New("no dataset selected")
	// ErrInvalidLimit indicates a negative row limit.
	ErrInvalidLimit = errors.New("limit must not be negative")
)
