package ewf

// Mode selects how Open treats the segment set.
type Mode int

const (
	// ModeRead opens an existing, complete segment set for random access.
	ModeRead Mode = iota
	// ModeWrite creates a new segment set from scratch (acquisition).
	ModeWrite
	// ModeReadWrite opens an existing set and creates/extends a delta
	// segment for in-place chunk overrides (spec.md §4.8).
	ModeReadWrite
	// ModeResume reopens an interrupted acquisition's segment set and
	// continues writing from its last complete chunk.
	ModeResume
)

// AcquiryError records one contiguous run of sectors that could not be
// read from the source device during acquisition (spec.md §4.9's
// `error2`/`error` section payload).
type AcquiryError struct {
	FirstSector     uint32
	NumberOfSectors uint32
}

// SessionRange and TrackRange record optical-media session/track layout
// metadata carried in the `session` section, sharing the same on-disk
// range-list shape (package section's RangeEntry).
type SessionRange struct {
	FirstSector     uint32
	NumberOfSectors uint32
}

type TrackRange struct {
	FirstSector     uint32
	NumberOfSectors uint32
}
