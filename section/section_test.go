package section

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sigsegv-forensics/ewfkit/filepool"
	"github.com/sigsegv-forensics/ewfkit/values"
)

func TestDescriptorV1Roundtrip(t *testing.T) {
	d := Descriptor{Version: 1, Tag: TagVolume, NextOffset: 1200, Size: 1128, DescriptorSize: DescriptorSizeV1}
	raw := EncodeDescriptorV1(d)
	got, err := ReadDescriptorV1(raw, 13)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag != TagVolume || got.NextOffset != 1200 || got.Size != 1128 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestDescriptorV1ChecksumRejectsCorruption(t *testing.T) {
	d := Descriptor{Tag: TagTable, NextOffset: 100, Size: 50}
	raw := EncodeDescriptorV1(d)
	raw[0] ^= 0xff
	if _, err := ReadDescriptorV1(raw, 0); err == nil {
		t.Fatal("expected checksum error on corrupted descriptor")
	}
}

func TestDescriptorV2Roundtrip(t *testing.T) {
	d := Descriptor{Version: 2, Tag: TagTable2, Size: 500, PreviousOffset: 64}
	raw, err := EncodeDescriptorV2(d)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ReadDescriptorV2(raw, 64)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag != TagTable2 || got.Size != 500 || got.PreviousOffset != 64 || got.NextOffset != 564 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestVolumePayloadRoundtrip(t *testing.T) {
	v := VolumePayload{
		MediaType:        1,
		ChunkCount:       10,
		SectorsPerChunk:  64,
		BytesPerSector:   512,
		NumberOfSectors:  1280,
		CompressionLevel: 1,
	}
	raw := EncodeVolumePayload(v)
	got, err := DecodeVolumePayload(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.ChunkCount != v.ChunkCount || got.SectorsPerChunk != v.SectorsPerChunk || got.NumberOfSectors != v.NumberOfSectors {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestTableV1Roundtrip(t *testing.T) {
	entries := []RawEntryV1{{StoredOffset: 0}, {StoredOffset: 0x80000010}, {StoredOffset: 2048}}
	header := EncodeTableHeaderV1(TableHeaderV1{NumberOfEntries: uint32(len(entries))})
	body := EncodeTableEntriesV1(entries)

	hdr, err := DecodeTableHeaderV1(header)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.NumberOfEntries != uint32(len(entries)) {
		t.Fatalf("got %d entries", hdr.NumberOfEntries)
	}
	got, err := DecodeTableEntriesV1(body, hdr.NumberOfEntries)
	if err != nil {
		t.Fatal(err)
	}
	if !got[1].IsCompressed() || got[1].Offset() != 0x10 {
		t.Fatalf("compressed flag/offset decode wrong: %+v", got[1])
	}
	if got[2].IsCompressed() || got[2].Offset() != 2048 {
		t.Fatalf("uncompressed entry decode wrong: %+v", got[2])
	}
}

func TestTableV2Roundtrip(t *testing.T) {
	entries := []EntryV2{{DataOffset: 1000, Size: 4096, Flags: 1}}
	header := EncodeTableHeaderV2(TableHeaderV2{FirstChunkIndex: 5, NumberOfEntries: 1})
	hdr, err := DecodeTableHeaderV2(header)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.FirstChunkIndex != 5 || hdr.NumberOfEntries != 1 {
		t.Fatalf("header mismatch: %+v", hdr)
	}
	body := EncodeTableEntriesV2(entries)
	got, err := DecodeTableEntriesV2(body, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != entries[0] {
		t.Fatalf("entry mismatch: %+v", got[0])
	}
}

func TestRangeListRoundtrip(t *testing.T) {
	entries := []RangeEntry{{FirstSector: 0, NumberOfSectors: 100}, {FirstSector: 500, NumberOfSectors: 50, Flags: 2}}
	header := EncodeRangeListHeader(RangeListHeader{NumberOfEntries: uint32(len(entries))})
	hdr, err := DecodeRangeListHeader(header)
	if err != nil {
		t.Fatal(err)
	}
	body := EncodeRangeEntries(entries)
	got, err := DecodeRangeEntries(body, hdr.NumberOfEntries)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].FirstSector != 500 || got[1].Flags != 2 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestHeaderSectionPayloadRoundtrip(t *testing.T) {
	v := values.New()
	v.Set("c", "CASE-77")
	v.Set("e", "Examiner")
	text := values.EncodeHeaderText(v, "main")

	payload, err := EncodeHeaderSectionPayload(text, true)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeHeaderSectionPayload(payload)
	if err != nil {
		t.Fatal(err)
	}
	if val, _ := got.Get("c"); val != "CASE-77" {
		t.Fatalf("got %q", val)
	}
}

func TestDigestPayloadRoundtrip(t *testing.T) {
	d := DigestPayload{MD5: [16]byte{1, 2, 3}, SHA1: [20]byte{4, 5, 6}}
	raw := EncodeDigestPayload(d)
	got, err := DecodeDigestPayload(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.MD5 != d.MD5 || got.SHA1 != d.SHA1 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestWriteAndReadSectionList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seg.E01")
	if err := os.WriteFile(path, make([]byte, 13), 0o644); err != nil {
		t.Fatal(err)
	}
	pool := filepool.New(2)
	idx := pool.Open(path, filepool.ModeReadWrite)

	volPayload := EncodeVolumePayload(VolumePayload{ChunkCount: 1, SectorsPerChunk: 64, BytesPerSector: 512, NumberOfSectors: 64})
	volDesc, err := WriteSection(pool, idx, 13, TagVolume, volPayload, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := WriteSection(pool, idx, volDesc.NextOffset, TagDone, nil, 1, 0); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	list, err := ReadList(pool, idx, 13, uint64(fi.Size()), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(list.Descriptors))
	}
	vd, ok := list.Find(TagVolume)
	if !ok {
		t.Fatal("volume descriptor not found")
	}
	payload, err := ReadPayload(pool, idx, vd)
	if err != nil {
		t.Fatal(err)
	}
	v, err := DecodeVolumePayload(payload)
	if err != nil {
		t.Fatal(err)
	}
	if v.ChunkCount != 1 || v.SectorsPerChunk != 64 {
		t.Fatalf("roundtrip mismatch: %+v", v)
	}
	if _, ok := list.Find(TagDone); !ok {
		t.Fatal("done descriptor not found")
	}
}
