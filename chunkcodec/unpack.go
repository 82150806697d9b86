package chunkcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/codec"
)

// Unpack reverses Pack, per spec.md §4.2's unpack rules, in order:
//  1. UsesPatternFill: expand the (8-byte) stored pattern to expectedSize.
//  2. else IsCompressed: inflate; the result must be exactly expectedSize
//     bytes unless this is known to be the final, possibly-short chunk.
//  3. else: optionally verify and strip a trailing Adler-32.
//
// corrupted is true when a checksum mismatch or a short inflate was
// detected. When corrupted is true and wipeOnError is set, plain is
// zero-filled (length expectedSize) instead of carrying the bad bytes.
func Unpack(packed []byte, flags Flags, expectedSize int, wipeOnError bool) (plain []byte, corrupted bool, err error) {
	switch {
	case flags.Has(UsesPatternFill):
		if len(packed) < 8 {
			return nil, false, fmt.Errorf("chunkcodec: pattern-fill chunk too short: %d bytes", len(packed))
		}
		pattern := binary.LittleEndian.Uint64(packed[:8])
		return ExpandPattern64(pattern, expectedSize), false, nil

	case flags.Has(IsCompressed):
		out, derr := codec.DeflateDecompress(packed, expectedSize)
		if derr != nil {
			if wipeOnError {
				return make([]byte, expectedSize), true, nil
			}
			return nil, true, fmt.Errorf("chunkcodec: unpack: %w", derr)
		}
		if len(out) != expectedSize {
			// Truncated/short inflate of a chunk that wasn't expected to
			// be short is corruption, not a legitimate final chunk — the
			// caller is responsible for only passing a short expectedSize
			// for the genuinely final chunk of the media.
			if wipeOnError {
				return make([]byte, expectedSize), true, nil
			}
			return out, true, nil
		}
		return out, false, nil

	default:
		data := packed
		ok := true
		if flags.Has(HasChecksum) {
			if len(packed) < 4 {
				ok = false
			} else {
				body := packed[:len(packed)-4]
				stored := binary.LittleEndian.Uint32(packed[len(packed)-4:])
				computed := codec.Adler32(1, body)
				if computed != stored {
					ok = false
				}
				data = body
			}
		}
		if !ok {
			if wipeOnError {
				return make([]byte, expectedSize), true, nil
			}
			return data, true, nil
		}
		return data, false, nil
	}
}
