package section

import (
	"encoding/binary"
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/codec"
)

// TableHeaderV1 is the 24-byte v1 `table`/`table2` section header: entry
// count, padding, and a trailing Adler-32 checksum over the header itself.
// Grounded on the teacher's TableSection, but fixed at 24 bytes (the
// teacher reads the count+padding+checksum fields but never accounts for
// them as a discrete, independently-checksummed header versus payload).
type TableHeaderV1 struct {
	NumberOfEntries uint32
}

const tableHeaderV1Size = 24

// RawEntryV1 is the 4-byte v1 table entry: bit 31 set means the chunk is
// stored compressed, bits 0-30 are the chunk's byte offset relative to the
// start of the enclosing `sectors` section (spec.md §4.4, and
// original_source/libewf/libewf_chunk_table.c's stored_offset decoding).
type RawEntryV1 struct {
	StoredOffset uint32
}

func (e RawEntryV1) IsCompressed() bool { return e.StoredOffset&0x80000000 != 0 }
func (e RawEntryV1) Offset() uint32     { return e.StoredOffset &^ 0x80000000 }

// DecodeTableHeaderV1 parses and checksums a v1 table header, returning the
// entry count; entries begin just past the 24-byte header.
func DecodeTableHeaderV1(raw []byte) (TableHeaderV1, error) {
	if len(raw) < tableHeaderV1Size {
		return TableHeaderV1{}, fmt.Errorf("%w: v1 table header is %d bytes, need %d", ErrTruncated, len(raw), tableHeaderV1Size)
	}
	want := binary.LittleEndian.Uint32(raw[20:24])
	if got := codec.Adler32(1, raw[:20]); got != want {
		return TableHeaderV1{}, fmt.Errorf("%w: table header: %08x != %08x", ErrPayloadChecksum, got, want)
	}
	return TableHeaderV1{NumberOfEntries: binary.LittleEndian.Uint32(raw[0:4])}, nil
}

// EncodeTableHeaderV1 serializes h as the 24-byte v1 table header.
func EncodeTableHeaderV1(h TableHeaderV1) []byte {
	buf := make([]byte, tableHeaderV1Size)
	binary.LittleEndian.PutUint32(buf[0:4], h.NumberOfEntries)
	sum := codec.Adler32(1, buf[:20])
	binary.LittleEndian.PutUint32(buf[20:24], sum)
	return buf
}

// DecodeTableEntriesV1 parses n consecutive 4-byte v1 entries starting at
// raw[0], followed by their own trailing Adler-32 checksum (matching
// libewf's separate checksum-of-the-entry-array, distinct from the header's
// checksum).
func DecodeTableEntriesV1(raw []byte, n uint32) ([]RawEntryV1, error) {
	need := int(n)*4 + 4
	if len(raw) < need {
		return nil, fmt.Errorf("%w: v1 table entries need %d bytes, got %d", ErrTruncated, need, len(raw))
	}
	body := raw[:int(n)*4]
	want := binary.LittleEndian.Uint32(raw[int(n)*4 : need])
	if got := codec.Adler32(1, body); got != want {
		return nil, fmt.Errorf("%w: table entries: %08x != %08x", ErrPayloadChecksum, got, want)
	}
	out := make([]RawEntryV1, n)
	for i := range out {
		out[i] = RawEntryV1{StoredOffset: binary.LittleEndian.Uint32(body[i*4 : i*4+4])}
	}
	return out, nil
}

// EncodeTableEntriesV1 serializes entries and appends their checksum.
func EncodeTableEntriesV1(entries []RawEntryV1) []byte {
	buf := make([]byte, len(entries)*4+4)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], e.StoredOffset)
	}
	sum := codec.Adler32(1, buf[:len(entries)*4])
	binary.LittleEndian.PutUint32(buf[len(entries)*4:], sum)
	return buf
}

// TableHeaderV2 is the 32-byte v2 `table`/`table2` section header:
// first_chunk_index, entry count, a next-table offset used to chain
// oversized tables, and a trailing truncated-SHA-256 integrity hash.
type TableHeaderV2 struct {
	FirstChunkIndex uint64
	NumberOfEntries uint32
	NextTableOffset uint32
}

const tableHeaderV2Size = 32

// EntryV2 is the 16-byte v2 table entry: a direct 64-bit data offset
// (relative to the start of the segment file), a 32-bit size, and a 32-bit
// flags word carrying the compressed/pattern-fill bits from chunkcodec.Flags.
type EntryV2 struct {
	DataOffset uint64
	Size       uint32
	Flags      uint32
}

// DecodeTableHeaderV2 parses and verifies a v2 table header.
func DecodeTableHeaderV2(raw []byte) (TableHeaderV2, error) {
	if len(raw) < tableHeaderV2Size {
		return TableHeaderV2{}, fmt.Errorf("%w: v2 table header is %d bytes, need %d", ErrTruncated, len(raw), tableHeaderV2Size)
	}
	want := raw[16:32]
	got := codec.HashSHA256Truncated16(raw[:16])
	if !bytesEqual(got, want) {
		return TableHeaderV2{}, fmt.Errorf("%w: v2 table header", ErrPayloadChecksum)
	}
	return TableHeaderV2{
		FirstChunkIndex: binary.LittleEndian.Uint64(raw[0:8]),
		NumberOfEntries: binary.LittleEndian.Uint32(raw[8:12]),
		NextTableOffset: binary.LittleEndian.Uint32(raw[12:16]),
	}, nil
}

// EncodeTableHeaderV2 serializes h as the 32-byte v2 table header.
func EncodeTableHeaderV2(h TableHeaderV2) []byte {
	buf := make([]byte, tableHeaderV2Size)
	binary.LittleEndian.PutUint64(buf[0:8], h.FirstChunkIndex)
	binary.LittleEndian.PutUint32(buf[8:12], h.NumberOfEntries)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.NextTableOffset))
	hash := codec.HashSHA256Truncated16(buf[:16])
	copy(buf[16:32], hash)
	return buf
}

// DecodeTableEntriesV2 parses n consecutive 16-byte v2 entries.
func DecodeTableEntriesV2(raw []byte, n uint32) ([]EntryV2, error) {
	need := int(n) * 16
	if len(raw) < need {
		return nil, fmt.Errorf("%w: v2 table entries need %d bytes, got %d", ErrTruncated, need, len(raw))
	}
	out := make([]EntryV2, n)
	for i := range out {
		b := raw[i*16 : i*16+16]
		out[i] = EntryV2{
			DataOffset: binary.LittleEndian.Uint64(b[0:8]),
			Size:       binary.LittleEndian.Uint32(b[8:12]),
			Flags:      binary.LittleEndian.Uint32(b[12:16]),
		}
	}
	return out, nil
}

// EncodeTableEntriesV2 serializes entries.
func EncodeTableEntriesV2(entries []EntryV2) []byte {
	buf := make([]byte, len(entries)*16)
	for i, e := range entries {
		b := buf[i*16 : i*16+16]
		binary.LittleEndian.PutUint64(b[0:8], e.DataOffset)
		binary.LittleEndian.PutUint32(b[8:12], e.Size)
		binary.LittleEndian.PutUint32(b[12:16], e.Flags)
	}
	return buf
}
