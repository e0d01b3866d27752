package models

import "errors"

var (
	// ErrInsufficientData means a city has too few records to smooth or fit a trend.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoSeasonalData means there is no usable historical baseline for a season.
	ErrNoSeasonalData = errors.New("no seasonal data")

	// ErrInvalidInput means a record or parameter was rejected before computation.
	ErrInvalidInput = errors.New("invalid input")
)
