package section

import (
	"encoding/binary"
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/codec"
)

// VolumePayload is the 1052-byte EnCase-style `volume` section payload (the
// `disk` tag shares the same layout). Grounded on the teacher's DiskSMART
// struct, trimmed of the CHS/PALM fields spec.md's MediaValues does not
// model and given an explicit Reserved blob so unknown bytes roundtrip.
type VolumePayload struct {
	MediaType        uint8
	ChunkCount       uint32
	SectorsPerChunk  uint32
	BytesPerSector   uint32
	NumberOfSectors  uint64
	MediaFlags       uint8
	CompressionLevel uint8
	ErrorGranularity uint32
	SetIdentifier    [16]byte
	Reserved         [980]byte
}

const volumePayloadSize = 1052

// DecodeVolumePayload parses a `volume`/`disk` section payload, verifying
// its trailing Adler-32 checksum (computed over every byte before it).
func DecodeVolumePayload(raw []byte) (VolumePayload, error) {
	if len(raw) < volumePayloadSize {
		return VolumePayload{}, fmt.Errorf("%w: volume payload is %d bytes, need %d", ErrTruncated, len(raw), volumePayloadSize)
	}
	body := raw[:volumePayloadSize-4]
	want := binary.LittleEndian.Uint32(raw[volumePayloadSize-4 : volumePayloadSize])
	if got := codec.Adler32(1, body); got != want {
		return VolumePayload{}, fmt.Errorf("%w: volume section: %08x != %08x", ErrPayloadChecksum, got, want)
	}
	var v VolumePayload
	v.MediaType = body[0]
	v.ChunkCount = binary.LittleEndian.Uint32(body[4:8])
	v.SectorsPerChunk = binary.LittleEndian.Uint32(body[8:12])
	v.BytesPerSector = binary.LittleEndian.Uint32(body[12:16])
	v.NumberOfSectors = binary.LittleEndian.Uint64(body[16:24])
	v.MediaFlags = body[28]
	v.CompressionLevel = body[40]
	v.ErrorGranularity = binary.LittleEndian.Uint32(body[44:48])
	copy(v.SetIdentifier[:], body[52:68])
	copy(v.Reserved[:], body[68:])
	return v, nil
}

// EncodeVolumePayload serializes v and appends its Adler-32 checksum.
func EncodeVolumePayload(v VolumePayload) []byte {
	buf := make([]byte, volumePayloadSize)
	buf[0] = v.MediaType
	binary.LittleEndian.PutUint32(buf[4:8], v.ChunkCount)
	binary.LittleEndian.PutUint32(buf[8:12], v.SectorsPerChunk)
	binary.LittleEndian.PutUint32(buf[12:16], v.BytesPerSector)
	binary.LittleEndian.PutUint64(buf[16:24], v.NumberOfSectors)
	buf[28] = v.MediaFlags
	buf[40] = v.CompressionLevel
	binary.LittleEndian.PutUint32(buf[44:48], v.ErrorGranularity)
	copy(buf[52:68], v.SetIdentifier[:])
	copy(buf[68:volumePayloadSize-4], v.Reserved[:])
	sum := codec.Adler32(1, buf[:volumePayloadSize-4])
	binary.LittleEndian.PutUint32(buf[volumePayloadSize-4:volumePayloadSize], sum)
	return buf
}

// DeviceInformationPayload is the v2 `device_information` section: a
// UTF-16LE XML blob describing the acquired device (serial number, model,
// interface), wrapped the same zlib-compressed way header payloads are.
// Grounded on original_source/libewf/libewf_device_information.c.
type DeviceInformationPayload struct {
	XML string
}
