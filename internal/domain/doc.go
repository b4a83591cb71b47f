// Package domain composes chart dataset states for the DAWN growing degree
// day (GDD) and crop progress tools.
//
// # Data Source
//
// Series come from the upstream DAWN data service as parallel date and value
// arrays. The GDD tool fetches an observed year, an optional comparison year,
// an optional analog year, the 30 year normal, a percentile band (minimum and
// maximum), first and last freeze counts, and for the forecast season the GEFS
// and CFS forecasts. The crop progress tool fetches one series per growth
// stage ("Planted", "Emerged", "Silking", ...) for one or two years.
//
// # Calendar Conventions
//
// Every series is projected onto a fixed 365 day calendar before composition:
//
//	slot 0 = "Jan 01", slot 364 = "Dec 31", taken from the non-leap year 2021.
//	Source years are ignored; only month and day place a value.
//	Feb 29 has no slot and is skipped.
//	Slots with no source value hold NaN ("missing") and encode as null.
//
// Forecast series carry a base date and day offsets instead of dates. The base
// slot holds the observed value at (or before) that day so the dashed forecast
// curve starts on the observed one. That shared value is the connection point;
// tooltips hide the forecast's copy of it.
//
// # Overlay Order
//
// Overlay order is a rendering contract: the band upper boundary fills
// toward the overlay right after it, and legend clicks toggle an overlay and
// the one it is paired with. Composers never reorder after building, and
// pairs are recorded by id (PairedWith) rather than by position.
//
// # Colors
//
// Progress stage colors come from two parallel palettes. A stage drawn in
// both years uses the same palette index in each, so the solid and dashed
// curves of one stage always read as a pair.
package domain
