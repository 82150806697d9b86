package section

import (
	"encoding/binary"
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/codec"
)

// DigestPayload is the `digest` section's fixed-size struct: MD5 and SHA-1
// of the acquired media, computed by the acquisition workflow and stored
// once at finalize time. `hash` carries the same shape and is decoded with
// the same function. Grounded on the teacher's DigestSection/HashSection.
type DigestPayload struct {
	MD5  [16]byte
	SHA1 [20]byte
}

const digestPayloadSize = 16 + 20 + 40 + 4

// DecodeDigestPayload parses and checksums a `digest`/`hash` payload.
func DecodeDigestPayload(raw []byte) (DigestPayload, error) {
	if len(raw) < digestPayloadSize {
		return DigestPayload{}, fmt.Errorf("%w: digest payload is %d bytes, need %d", ErrTruncated, len(raw), digestPayloadSize)
	}
	body := raw[:digestPayloadSize-4]
	want := binary.LittleEndian.Uint32(raw[digestPayloadSize-4 : digestPayloadSize])
	if got := codec.Adler32(1, body); got != want {
		return DigestPayload{}, fmt.Errorf("%w: digest section: %08x != %08x", ErrPayloadChecksum, got, want)
	}
	var d DigestPayload
	copy(d.MD5[:], body[0:16])
	copy(d.SHA1[:], body[16:36])
	return d, nil
}

// EncodeDigestPayload serializes d and appends its Adler-32 checksum.
func EncodeDigestPayload(d DigestPayload) []byte {
	buf := make([]byte, digestPayloadSize)
	copy(buf[0:16], d.MD5[:])
	copy(buf[16:36], d.SHA1[:])
	sum := codec.Adler32(1, buf[:digestPayloadSize-4])
	binary.LittleEndian.PutUint32(buf[digestPayloadSize-4:digestPayloadSize], sum)
	return buf
}
