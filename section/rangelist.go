package section

import (
	"encoding/binary"
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/codec"
)

// RangeListHeader is the 24-byte header shared by `session`, `error2` and
// (per SPEC_FULL.md's supplemented features) logical `track` payloads: an
// entry count, padding, and a checksum over the header. Grounded on the
// teacher's symmetry between TableSection and the empty SessionSection
// stub, generalized since spec.md §4.4 gives session/error2 a concrete
// acquisition-time range shape the teacher never parses.
type RangeListHeader struct {
	NumberOfEntries uint32
}

const rangeListHeaderSize = 24

// RangeEntry is one session/track/acquiry-error range: a first sector and a
// run length. `error2` entries additionally use Flags to record a retry
// count; `session`/`track` entries leave it zero.
type RangeEntry struct {
	FirstSector     uint32
	NumberOfSectors uint32
	Flags           uint32
}

const rangeEntrySize = 24

// DecodeRangeListHeader parses and checksums the list header.
func DecodeRangeListHeader(raw []byte) (RangeListHeader, error) {
	if len(raw) < rangeListHeaderSize {
		return RangeListHeader{}, fmt.Errorf("%w: range list header is %d bytes, need %d", ErrTruncated, len(raw), rangeListHeaderSize)
	}
	want := binary.LittleEndian.Uint32(raw[20:24])
	if got := codec.Adler32(1, raw[:20]); got != want {
		return RangeListHeader{}, fmt.Errorf("%w: range list header: %08x != %08x", ErrPayloadChecksum, got, want)
	}
	return RangeListHeader{NumberOfEntries: binary.LittleEndian.Uint32(raw[0:4])}, nil
}

// EncodeRangeListHeader serializes h.
func EncodeRangeListHeader(h RangeListHeader) []byte {
	buf := make([]byte, rangeListHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.NumberOfEntries)
	sum := codec.Adler32(1, buf[:20])
	binary.LittleEndian.PutUint32(buf[20:24], sum)
	return buf
}

// DecodeRangeEntries parses n consecutive 24-byte range entries followed by
// their own trailing checksum.
func DecodeRangeEntries(raw []byte, n uint32) ([]RangeEntry, error) {
	need := int(n)*rangeEntrySize + 4
	if len(raw) < need {
		return nil, fmt.Errorf("%w: range entries need %d bytes, got %d", ErrTruncated, need, len(raw))
	}
	body := raw[:int(n)*rangeEntrySize]
	want := binary.LittleEndian.Uint32(raw[int(n)*rangeEntrySize : need])
	if got := codec.Adler32(1, body); got != want {
		return nil, fmt.Errorf("%w: range entries: %08x != %08x", ErrPayloadChecksum, got, want)
	}
	out := make([]RangeEntry, n)
	for i := range out {
		b := body[i*rangeEntrySize : i*rangeEntrySize+rangeEntrySize]
		out[i] = RangeEntry{
			FirstSector:     binary.LittleEndian.Uint32(b[0:4]),
			NumberOfSectors: binary.LittleEndian.Uint32(b[4:8]),
			Flags:           binary.LittleEndian.Uint32(b[8:12]),
		}
	}
	return out, nil
}

// EncodeRangeEntries serializes entries and appends their checksum.
func EncodeRangeEntries(entries []RangeEntry) []byte {
	buf := make([]byte, len(entries)*rangeEntrySize+4)
	for i, e := range entries {
		b := buf[i*rangeEntrySize : i*rangeEntrySize+rangeEntrySize]
		binary.LittleEndian.PutUint32(b[0:4], e.FirstSector)
		binary.LittleEndian.PutUint32(b[4:8], e.NumberOfSectors)
		binary.LittleEndian.PutUint32(b[8:12], e.Flags)
	}
	sum := codec.Adler32(1, buf[:len(entries)*rangeEntrySize])
	binary.LittleEndian.PutUint32(buf[len(entries)*rangeEntrySize:], sum)
	return buf
}
