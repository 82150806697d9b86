package section

import "errors"

// Sentinel errors for the section stream, matching spec.md §7's taxonomy
// (IntegrityError and Corrupted families). Callers wrap these with %w so
// errors.Is continues to work across package boundaries.
var (
	// ErrDescriptorChecksum is returned when a section descriptor's
	// self-checksum (v1 Adler-32, v2 truncated SHA-256) does not match.
	ErrDescriptorChecksum = errors.New("section: descriptor checksum mismatch")

	// ErrPayloadChecksum is returned when a section payload's trailing
	// checksum does not match the bytes that precede it.
	ErrPayloadChecksum = errors.New("section: payload checksum mismatch")

	// ErrUnknownSectionType is returned only where a caller has asked for
	// strict handling; the default section-list walk skips unknown types
	// by size rather than failing (spec.md §4.4).
	ErrUnknownSectionType = errors.New("section: unknown section type")

	// ErrTruncated is returned when a payload is shorter than its
	// declared fixed-size struct requires.
	ErrTruncated = errors.New("section: payload truncated")

	// ErrMalformedPayload is returned for payloads whose content fails
	// internal validation beyond plain truncation (e.g. table entry
	// count implies a size larger than the section declares).
	ErrMalformedPayload = errors.New("section: malformed payload")
)
