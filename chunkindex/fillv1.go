package chunkindex

import (
	"math"

	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/section"
)

// FillV1 builds a Group from a v1 table section's raw entries, ported from
// libewf_chunk_table_fill_v1. baseOffset is the absolute file offset the
// entries' stored offsets are relative to (the start of the table
// section's matching `sectors` section). nextSectionOffset is the absolute
// offset of whatever section immediately follows the table's sectors data,
// used to size the final chunk since v1 entries record only a start.
//
// Every entry's top bit marks it compressed; the remaining 31 bits are its
// offset. Once accumulated offsets exceed INT32_MAX, EnCase 6.7's overflow
// workaround kicks in and subsequent entries are read as plain (unmasked)
// 32-bit offsets instead — "overflow" below tracks that transition exactly
// as the C implementation does, including re-deriving is_compressed as
// false once it engages (a real ambiguity in the on-disk format this
// compensates for, not a simplification).
func FillV1(filePoolEntry int, firstChunkIndex, baseOffset uint64, entries []section.RawEntryV1, nextSectionOffset uint64, tainted bool) (Group, error) {
	if len(entries) == 0 {
		return Group{}, errNoEntries
	}
	n := len(entries)
	out := make([]ChunkDescriptor, n)

	var overflow bool
	storedOffset := entries[0].StoredOffset

	for i := 0; i < n-1; i++ {
		var isCompressed bool
		var currentOffset uint32
		if !overflow {
			isCompressed = storedOffset>>31 != 0
			currentOffset = storedOffset & 0x7fffffff
		} else {
			currentOffset = storedOffset
		}

		storedOffset = entries[i+1].StoredOffset
		var nextOffset uint32
		if !overflow {
			nextOffset = storedOffset & 0x7fffffff
		} else {
			nextOffset = storedOffset
		}

		var corrupted bool
		var chunkSize uint32
		if nextOffset < currentOffset {
			if storedOffset < currentOffset {
				corrupted = true
			}
			chunkSize = storedOffset - currentOffset
		} else {
			chunkSize = nextOffset - currentOffset
		}
		if chunkSize == 0 || chunkSize > math.MaxInt32 {
			corrupted = true
		}

		out[i] = ChunkDescriptor{
			FilePoolEntry: filePoolEntry,
			Offset:        baseOffset + uint64(currentOffset),
			Size:          chunkSize,
			Flags:         v1Flags(isCompressed, corrupted, tainted),
		}

		if !overflow && uint64(currentOffset)+uint64(chunkSize) > math.MaxInt32 {
			overflow = true
		}
	}

	// Last entry: its size comes from the offset of whatever follows the
	// table's data, not from a next table entry.
	var isCompressed bool
	var currentOffset uint32
	if !overflow {
		isCompressed = storedOffset>>31 != 0
		currentOffset = storedOffset & 0x7fffffff
	} else {
		currentOffset = storedOffset
	}
	var chunkSize uint32
	var corrupted bool
	if nextSectionOffset > baseOffset+uint64(currentOffset) {
		chunkSize = uint32(nextSectionOffset - baseOffset - uint64(currentOffset))
	}
	if chunkSize == 0 || chunkSize > math.MaxInt32 {
		corrupted = true
	}
	out[n-1] = ChunkDescriptor{
		FilePoolEntry: filePoolEntry,
		Offset:        baseOffset + uint64(currentOffset),
		Size:          chunkSize,
		Flags:         v1Flags(isCompressed, corrupted, tainted),
	}

	return Group{FirstChunkIndex: firstChunkIndex, Entries: out}, nil
}

func v1Flags(isCompressed, corrupted, tainted bool) chunkcodec.Flags {
	var f chunkcodec.Flags
	if isCompressed {
		f |= chunkcodec.IsCompressed
	} else {
		f |= chunkcodec.HasChecksum
	}
	if corrupted {
		f |= chunkcodec.IsCorrupted
	}
	if tainted {
		f |= chunkcodec.IsTainted
	}
	return f
}
