package ewf

import "errors"

// Sentinel errors matching spec.md §7's taxonomy. Component packages
// (section, chunkindex, segment, chunkcodec) define their own narrower
// sentinels; Handle wraps failures with one of these at the public boundary
// via %w so callers can errors.Is against the broad category. The
// component's own error is formatted into the message with %v, not
// wrapped, so errors.Is does not match the specific cause.
var (
	ErrInvalidArgument    = errors.New("ewf: invalid argument")
	ErrUnsupportedValue   = errors.New("ewf: unsupported value")
	ErrNotInitialized     = errors.New("ewf: handle not initialized")
	ErrAlreadyInitialized = errors.New("ewf: handle already initialized")
	ErrIO                 = errors.New("ewf: i/o error")
	ErrInvalidData        = errors.New("ewf: invalid data")
	ErrIntegrity          = errors.New("ewf: integrity error")
	ErrCorrupted          = errors.New("ewf: corrupted")
	ErrOutOfRange         = errors.New("ewf: out of range")
	ErrAborted            = errors.New("ewf: aborted")
	ErrUnsupportedFormat  = errors.New("ewf: unsupported format")
	ErrCapacityExceeded   = errors.New("ewf: capacity exceeded")
)
