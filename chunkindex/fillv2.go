package chunkindex

import (
	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/section"
)

// FillV2 builds a Group directly from a v2 table section's entries: unlike
// v1, each entry already carries its own absolute offset, size and flags,
// so no offset-overflow reconstruction is needed. When
// chunkcodec.UsesPatternFill is set, DataOffset holds the 8-byte pattern
// value rather than a real file offset (spec.md §9); FillV2 passes it
// through unchanged and leaves interpretation to chunkcodec.Unpack.
func FillV2(filePoolEntry int, firstChunkIndex uint64, entries []section.EntryV2) (Group, error) {
	if len(entries) == 0 {
		return Group{}, errNoEntries
	}
	out := make([]ChunkDescriptor, len(entries))
	for i, e := range entries {
		out[i] = ChunkDescriptor{
			FilePoolEntry: filePoolEntry,
			Offset:        e.DataOffset,
			Size:          e.Size,
			Flags:         chunkcodec.Flags(e.Flags),
		}
	}
	return Group{FirstChunkIndex: firstChunkIndex, Entries: out}, nil
}
