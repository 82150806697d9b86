package chunkcodec

import (
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/codec"
)

// PackFormat distinguishes where a pattern-fill chunk's 8 pattern bytes end
// up on disk: inline in the `sectors` data stream (v1) or folded into the
// table entry's offset field itself (v2, per spec.md §9's dedicated design
// note). Pack/Unpack here always deal in the 8 raw pattern bytes; it is the
// caller in package section/chunkindex that routes them to the right place
// for the chosen format.
type PackFormat int

const (
	FormatV1 PackFormat = iota
	FormatV2
)

// Policy controls how Pack encodes a single chunk, per spec.md §4.2.
type Policy struct {
	Level             codec.Level
	CompressEmpty     bool
	PackFormat        PackFormat
	HaveChecksum      bool
	PatternFillDetect bool
}

// Packed is the result of packing one chunk.
type Packed struct {
	Data            []byte
	Checksum        uint32 // valid iff HasChecksum is set in Flags
	Flags           Flags
	UsesPatternFill bool
	IsCompressed    bool
}

// Pack applies the rules of spec.md §4.2 in order:
//  1. a repeated 8-byte pattern is stored as the pattern itself, flagged
//     UsesPatternFill|IsCompressed;
//  2. else an empty/all-equal block is compressed when CompressEmpty is set
//     even if Level is otherwise None;
//  3. else compressed iff Level != None;
//  4. else, if HaveChecksum, a trailing little-endian Adler-32 is appended.
func Pack(plain []byte, policy Policy) (Packed, error) {
	if policy.PatternFillDetect {
		if pattern, ok := DetectPattern64(plain); ok {
			var buf [8]byte
			putUint64(buf[:], pattern)
			return Packed{
				Data:            buf[:],
				Flags:           UsesPatternFill | IsCompressed,
				UsesPatternFill: true,
				IsCompressed:    true,
			}, nil
		}
	}

	wantCompress := policy.Level != codec.LevelNone
	if !wantCompress && policy.CompressEmpty && IsEmptyBlock(plain) {
		wantCompress = true
	}

	if wantCompress {
		level := policy.Level
		if level == codec.LevelNone {
			level = codec.LevelDefault
		}
		packed, err := codec.DeflateCompress(plain, level)
		if err != nil {
			return Packed{}, fmt.Errorf("chunkcodec: pack: %w", err)
		}
		return Packed{
			Data:         packed,
			Flags:        IsCompressed,
			IsCompressed: true,
		}, nil
	}

	if policy.HaveChecksum {
		sum := codec.Adler32(1, plain)
		out := make([]byte, len(plain)+4)
		copy(out, plain)
		putUint32(out[len(plain):], sum)
		return Packed{
			Data:     out,
			Checksum: sum,
			Flags:    HasChecksum,
		}, nil
	}

	return Packed{Data: append([]byte(nil), plain...)}, nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
