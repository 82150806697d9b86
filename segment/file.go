package segment

import (
	"encoding/binary"
	"fmt"
)

// FileHeaderSize is the 13-byte file signature block every segment file
// opens with, preceding its first section descriptor. Grounded on the
// teacher's EWFFileHeader.
const FileHeaderSize = 13

// signatureV1 is the EnCase1-6/SMART/logical-v1 file signature.
var signatureV1 = [8]byte{'E', 'V', 'F', 0x09, 0x0d, 0x0a, 0xff, 0x00}

// signatureV2 is the EnCase7/EWFX/logical-v2 file signature.
var signatureV2 = [8]byte{'E', 'V', 'F', '2', 0x0d, 0x0a, 0x81, 0x00}

// FileHeader is the fixed 13-byte block at the start of every segment
// file: an 8-byte format signature, a reserved start-of-fields byte, the
// segment's 1-based number within its set, and a reserved end-of-fields
// word.
type FileHeader struct {
	Version       int
	SegmentNumber uint16
}

// DecodeFileHeader parses and validates the 13-byte signature block,
// determining the container's major version from which signature matches.
func DecodeFileHeader(raw []byte) (FileHeader, error) {
	if len(raw) < FileHeaderSize {
		return FileHeader{}, fmt.Errorf("segment: file header is %d bytes, need %d", len(raw), FileHeaderSize)
	}
	var sig [8]byte
	copy(sig[:], raw[0:8])

	var version int
	switch sig {
	case signatureV1:
		version = 1
	case signatureV2:
		version = 2
	default:
		return FileHeader{}, fmt.Errorf("segment: unrecognized file signature %x", sig)
	}

	num := binary.LittleEndian.Uint16(raw[9:11])
	return FileHeader{Version: version, SegmentNumber: num}, nil
}

// EncodeFileHeader serializes h.
func EncodeFileHeader(h FileHeader) []byte {
	buf := make([]byte, FileHeaderSize)
	sig := signatureV1
	if h.Version == 2 {
		sig = signatureV2
	}
	copy(buf[0:8], sig[:])
	buf[8] = 1
	binary.LittleEndian.PutUint16(buf[9:11], h.SegmentNumber)
	return buf
}
