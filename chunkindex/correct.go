package chunkindex

import "github.com/sigsegv-forensics/ewfkit/chunkcodec"

// CorrectV1 reconciles a primary table's Group against its table2 backup,
// per spec.md §9's repair pass: wherever the primary entry is corrupted,
// the backup's non-corrupted entry is authoritative; wherever both are
// clean the primary is kept as-is (and any stale IsTainted bit from an
// earlier partial repair is cleared, since a clean match confirms it).
// Entries already marked IsDelta in either slice are left untouched — a
// delta overlay outranks both primary and backup table data.
//
// primary and backup must describe the same FirstChunkIndex and entry
// count. On a length mismatch, entries are reconciled only up to the
// shorter length; the result always has the primary's length, any primary
// entries beyond that are kept unexamined, and extra backup entries are
// ignored.
func CorrectV1(primary, backup Group) Group {
	n := len(primary.Entries)
	if len(backup.Entries) < n {
		n = len(backup.Entries)
	}

	out := make([]ChunkDescriptor, len(primary.Entries))
	copy(out, primary.Entries)

	for i := 0; i < n; i++ {
		p := primary.Entries[i]
		b := backup.Entries[i]
		if p.Flags.Has(chunkcodec.IsDelta) {
			continue
		}
		switch {
		case !p.Flags.Has(chunkcodec.IsCorrupted):
			// Primary is clean; a matching backup confirms it and clears
			// any lingering taint, a mismatching backup is ignored since
			// the primary's own checksum already validated it elsewhere.
			if p.Offset == b.Offset && p.Size == b.Size {
				out[i].Flags &^= chunkcodec.IsTainted
			}
		case !b.Flags.Has(chunkcodec.IsCorrupted):
			out[i] = b
		default:
			// Both corrupted: keep the primary's record but the caller
			// should surface this chunk via spec.md §7's IntegrityError.
		}
	}

	return Group{FirstChunkIndex: primary.FirstChunkIndex, Entries: out}
}

// StillCorrupted reports whether any entry in g remains flagged corrupted
// after a CorrectV1 pass, for callers deciding whether to surface
// spec.md §7's Corrupted/IntegrityError outcome.
func StillCorrupted(g Group) []uint64 {
	var bad []uint64
	for i, e := range g.Entries {
		if e.Flags.Has(chunkcodec.IsCorrupted) {
			bad = append(bad, g.FirstChunkIndex+uint64(i))
		}
	}
	return bad
}
