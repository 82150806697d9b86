// Package codec provides the low-level primitives shared by every other
// component: endian-safe field access, the section/table checksum, and the
// chunk compression pipeline. Nothing here understands EWF section layout —
// that lives in package section.
package codec

import (
	"crypto/sha256"
	"hash/adler32"
	"hash/crc32"
)

// Adler32 computes the running Adler-32 checksum of data seeded by seed.
// Pass 1 as seed for a fresh checksum, matching RFC 1950's initial value.
//
// This is the checksum used throughout v1 (EnCase1-6, SMART) section and
// table descriptors. The source calls it "CRC" in comments and field names
// despite it being Adler-32 — callers must not assume CRC32 anywhere.
func Adler32(seed uint32, data []byte) uint32 {
	h := adler32.New()
	// hash/adler32 has no seeded constructor; any seed other than the
	// initial value 1 is continued through adler32Continue's a/b sums.
	if seed != 1 {
		return adler32Continue(seed, data)
	}
	h.Write(data)
	return h.Sum32()
}

// adler32Continue extends a previously computed Adler-32 sum over more data
// without re-hashing the earlier bytes, using the running a/b decomposition.
func adler32Continue(seed uint32, data []byte) uint32 {
	const modAdler = 65521
	a := seed & 0xffff
	b := (seed >> 16) & 0xffff
	for _, c := range data {
		a = (a + uint32(c)) % modAdler
		b = (b + a) % modAdler
	}
	return (b << 16) | a
}

// CRC32 is exposed for completeness and for any future format variant that
// uses it, but no current section type does — spec.md §4.1 is explicit that
// the canonical checksum is Adler-32 for v1 and SHA-256 for v2.
func CRC32(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, crc32.IEEETable, data)
}

// HashSHA256Truncated16 computes SHA-256 over data and returns the first 16
// bytes, the integrity hash format used by v2 section descriptors and v2
// table headers (spec.md §4.4).
func HashSHA256Truncated16(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:16]
}
