package chunkindex

import (
	"testing"

	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/section"
)

func TestFillV1Basic(t *testing.T) {
	entries := []section.RawEntryV1{
		{StoredOffset: 0},
		{StoredOffset: 0x80000000 | 1000}, // compressed, offset 1000
		{StoredOffset: 2500},
	}
	// baseOffset 100, next section starts at 100+3000=3100
	g, err := FillV1(0, 0, 100, entries, 3100, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(g.Entries))
	}
	if g.Entries[0].Size != 1000 || g.Entries[0].Offset != 100 {
		t.Fatalf("entry 0: %+v", g.Entries[0])
	}
	if !g.Entries[1].Flags.Has(chunkcodec.IsCompressed) || g.Entries[1].Size != 1500 || g.Entries[1].Offset != 1100 {
		t.Fatalf("entry 1: %+v", g.Entries[1])
	}
	if g.Entries[2].Flags.Has(chunkcodec.IsCompressed) {
		t.Fatalf("entry 2 should not be compressed: %+v", g.Entries[2])
	}
	if g.Entries[2].Size != 500 || g.Entries[2].Offset != 2600 {
		t.Fatalf("entry 2 (last, size from next section offset): %+v", g.Entries[2])
	}
}

func TestFillV1DetectsZeroSizeCorruption(t *testing.T) {
	entries := []section.RawEntryV1{
		{StoredOffset: 100},
		{StoredOffset: 100}, // same offset -> zero-size chunk
	}
	g, err := FillV1(0, 0, 0, entries, 1000, false)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Entries[0].Flags.Has(chunkcodec.IsCorrupted) {
		t.Fatal("expected zero-size chunk to be flagged corrupted")
	}
}

func TestFillV1TaintedPropagates(t *testing.T) {
	entries := []section.RawEntryV1{{StoredOffset: 0}, {StoredOffset: 500}}
	g, err := FillV1(0, 0, 0, entries, 1000, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range g.Entries {
		if !e.Flags.Has(chunkcodec.IsTainted) {
			t.Fatalf("expected tainted flag on every entry: %+v", e)
		}
	}
}

func TestIndexMergeAndLookup(t *testing.T) {
	idx := New()
	g1, _ := FillV1(0, 0, 0, []section.RawEntryV1{{StoredOffset: 0}, {StoredOffset: 100}}, 200, false)
	idx.Merge(g1)

	d, ok := idx.Lookup(0)
	if !ok || d.Size != 100 {
		t.Fatalf("lookup(0): %+v ok=%v", d, ok)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected Len 2, got %d", idx.Len())
	}
	if _, ok := idx.Lookup(5); ok {
		t.Fatal("expected lookup of out-of-range chunk to fail")
	}
}

func TestIndexDeltaOverrideSurvivesMerge(t *testing.T) {
	idx := New()
	g1, _ := FillV1(0, 0, 0, []section.RawEntryV1{{StoredOffset: 0}, {StoredOffset: 100}}, 200, false)
	idx.Merge(g1)
	idx.SetDelta(0, ChunkDescriptor{FilePoolEntry: 9, Offset: 5000, Size: 512})

	// A later rescan merging the same primary group must not clobber the
	// delta override on chunk 0.
	idx.Merge(g1)

	d, ok := idx.Lookup(0)
	if !ok {
		t.Fatal("expected chunk 0 present")
	}
	if d.FilePoolEntry != 9 || d.Offset != 5000 || !d.Flags.Has(chunkcodec.IsDelta) {
		t.Fatalf("delta override was overwritten: %+v", d)
	}
}

func TestCorrectV1PrefersCleanBackup(t *testing.T) {
	primary := Group{FirstChunkIndex: 0, Entries: []ChunkDescriptor{
		{Offset: 10, Size: 100, Flags: chunkcodec.IsCorrupted},
		{Offset: 20, Size: 50, Flags: chunkcodec.HasChecksum},
	}}
	backup := Group{FirstChunkIndex: 0, Entries: []ChunkDescriptor{
		{Offset: 999, Size: 100, Flags: chunkcodec.HasChecksum},
		{Offset: 20, Size: 50, Flags: chunkcodec.HasChecksum},
	}}

	merged := CorrectV1(primary, backup)
	if merged.Entries[0].Offset != 999 || merged.Entries[0].Flags.Has(chunkcodec.IsCorrupted) {
		t.Fatalf("expected backup to replace corrupted primary entry: %+v", merged.Entries[0])
	}
	if merged.Entries[1].Offset != 20 {
		t.Fatalf("expected clean primary entry kept: %+v", merged.Entries[1])
	}
	if bad := StillCorrupted(merged); len(bad) != 0 {
		t.Fatalf("expected no corrupted entries remain, got %v", bad)
	}
}

func TestCorrectV1KeepsDeltaUntouched(t *testing.T) {
	primary := Group{FirstChunkIndex: 0, Entries: []ChunkDescriptor{
		{Offset: 10, Size: 100, Flags: chunkcodec.IsDelta},
	}}
	backup := Group{FirstChunkIndex: 0, Entries: []ChunkDescriptor{
		{Offset: 999, Size: 200},
	}}
	merged := CorrectV1(primary, backup)
	if merged.Entries[0].Offset != 10 {
		t.Fatalf("delta entry must not be replaced by backup: %+v", merged.Entries[0])
	}
}
