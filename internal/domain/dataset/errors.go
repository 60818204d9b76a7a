package dataset

import "errors"

var (
	// ErrNotCSV indicates an upload whose file name does not end in .csv.
	ErrNotCSV = errors.New("please select a CSV file")
	// ErrNoFile indicates an upload with no file name.
	ErrNoFile = errors.New("please select a file")
)
