package analysis

import "errors"

var (
	// ErrInsufficientData is returned when fewer than MinSamples samples are
	// available, so no split can leave two points on each side.
	ErrInsufficientData = errors.New("insufficient data for a two-segment fit")
	// ErrNoValidSplit is returned when the candidate split range is empty.
	ErrNoValidSplit = errors.New("no valid split")
	// ErrParallelLines is returned when the fitted lines have no stable
	// intersection.
	ErrParallelLines = errors.New("fitted lines are parallel")
	// ErrInvalidSample is returned for samples that cannot be log-transformed
	// or divided.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrDuplicateX is returned when sample X values are not strictly
	// increasing after sorting.
	ErrDuplicateX = errors.New("duplicate concentration")
)
