package services

import (
	"errors"

	"cordpulse/internal/charts"
)

var (
	// ErrUnknownChart is wrapped when a chart name is not registered.
	ErrUnknownChart = charts.ErrUnknownChart

	// ErrInvalidFilter is wrapped by validation failures of a filter state.
	ErrInvalidFilter = errors.New("invalid filter")
)
