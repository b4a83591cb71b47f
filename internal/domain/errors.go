package domain

import "errors"

var (
	// ErrMissingUpstreamData means a stream required for the requested
	// combination returned no series. Callers render an unavailable state
	// instead of composing.
	ErrMissingUpstreamData = errors.New("missing upstream data")

	// ErrPaletteExhausted means there are more distinct categories than colors.
	ErrPaletteExhausted = errors.New("palette exhausted")

	// ErrMalformedDate means a date string could not be parsed.
	ErrMalformedDate = errors.New("malformed date")
)

// UnavailableMessage is shown in place of a chart when upstream data is missing.
const UnavailableMessage = "data unavailable for selected options"
