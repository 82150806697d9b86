package segment

import "errors"

var (
	// ErrCapacityExceeded is returned when a segment set has exhausted
	// every nameable extension (spec.md §7's CapacityExceeded).
	ErrCapacityExceeded = errors.New("segment: capacity exceeded")

	// ErrNonMonotonicSequence is returned when opening a segment set whose
	// files are not numbered 1..N with no gaps, matching ewftools/glob.c's
	// validation before a multi-file image is accepted for reading.
	ErrNonMonotonicSequence = errors.New("segment: segment numbers are not a contiguous 1..N sequence")

	// ErrMissingDoneSection is returned when the last segment file in a
	// set has no `done` terminator.
	ErrMissingDoneSection = errors.New("segment: last segment file has no done section")

	// ErrSegmentNumberMismatch is returned when a segment file's own
	// header segment number disagrees with its position in the set.
	ErrSegmentNumberMismatch = errors.New("segment: segment file header number does not match its position")
)
