package model

import "github.com/rotisserie/eris"

// Fatal error classes. Load and CRS failures abort the pipeline with no
// partial report; everything else degrades to warnings or NaN cells.
var (
	// ErrDataLoad marks a missing, malformed, or empty input dataset.
	ErrDataLoad = eris.New("data load failed")

	// ErrCRS marks an undefined or unsupported coordinate reference system.
	ErrCRS = eris.New("coordinate reference system error")
)
