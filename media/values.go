// Package media holds MediaValues, the set of invariants that describe the
// acquired storage media independent of how it is chunked across segment
// files on disk. Grounded on the teacher's DiskSMART/EWFSpecification
// structs (ewf.go), generalized per spec.md §3.
package media

import (
	"fmt"

	"github.com/google/uuid"
)

// MediaType classifies the physical or logical source of the acquisition.
type MediaType uint8

const (
	MediaTypeRemovable MediaType = 0x00
	MediaTypeFixed     MediaType = 0x01
	MediaTypeOptical   MediaType = 0x03
	MediaTypeLogical   MediaType = 0x0e
	MediaTypeMemory    MediaType = 0x10
	MediaTypeUnknown   MediaType = 0xff
)

// Flags, OR'd into MediaFlags.
type MediaFlag uint8

const (
	FlagImage     MediaFlag = 0x01 // logical image, not a physical device
	FlagPhysical  MediaFlag = 0x02
	FlagFastbloc  MediaFlag = 0x04 // Fastbloc write blocker present
	FlagTableau   MediaFlag = 0x08 // Tableau write blocker present
	FlagWriteProt MediaFlag = 0x10
)

// CompressionMethod selects the chunk/section compression codec.
type CompressionMethod int

const (
	CompressionMethodNone CompressionMethod = iota
	CompressionMethodDeflate
	CompressionMethodBzip2 // reserved, not implemented
)

// CompressionLevel is the policy-level knob spec.md §4.1/§4.2 describe,
// independent of CompressionMethod (which codec) from level (how hard).
type CompressionLevel int

const (
	CompressionLevelNone CompressionLevel = iota
	CompressionLevelEmptyBlock
	CompressionLevelFast
	CompressionLevelBest
)

// Format identifies the EWF family variant being read or written.
type Format int

const (
	FormatSMART Format = iota
	FormatFTK
	FormatEnCase1
	FormatEnCase2
	FormatEnCase3
	FormatEnCase4
	FormatEnCase5
	FormatEnCase6
	FormatEnCase7
	FormatLinen5
	FormatLinen6
	FormatEWFX
	FormatLogical
)

// MajorVersion reports the on-disk section-descriptor generation a Format
// uses: 1 for everything through EnCase6/linen6/SMART, 2 for EnCase7/EWFX
// `Ex01` containers.
func (f Format) MajorVersion() int {
	switch f {
	case FormatEnCase7, FormatEWFX:
		return 2
	default:
		return 1
	}
}

// Values is MediaValues: the one-per-container record of invariants spec.md
// §3 describes.
type Values struct {
	MediaSize         uint64
	BytesPerSector    uint32
	SectorsPerChunk   uint32
	NumberOfSectors   uint64
	NumberOfChunks    uint64
	MediaType         MediaType
	MediaFlags        MediaFlag
	CompressionMethod CompressionMethod
	CompressionLevel  CompressionLevel
	SetIdentifier     [16]byte
	Format            Format
	ErrorGranularity  uint32
}

// ChunkSize is sectors_per_chunk * bytes_per_sector.
func (v Values) ChunkSize() uint64 {
	return uint64(v.SectorsPerChunk) * uint64(v.BytesPerSector)
}

// NewSetIdentifier generates a fresh 16-byte segment-file-set GUID.
// Grounded on kluzzebass-gastrolog's use of github.com/google/uuid for
// identifier generation; replaces the teacher's hand-rolled
// math/rand-based generateUUID.
func NewSetIdentifier() [16]byte {
	id := uuid.New()
	var out [16]byte
	copy(out[:], id[:])
	return out
}

// Validate checks the invariants of spec.md §3: chunk_size > 0 and
// number_of_chunks*chunk_size >= media_size. chunk_size ==
// sectors_per_chunk * bytes_per_sector holds by construction (ChunkSize
// derives it), so no separate chunk size is compared.
func (v Values) Validate() error {
	chunkSize := v.ChunkSize()
	if chunkSize == 0 {
		return fmt.Errorf("media: chunk_size must be > 0 (sectors_per_chunk=%d, bytes_per_sector=%d)",
			v.SectorsPerChunk, v.BytesPerSector)
	}
	if v.NumberOfChunks*chunkSize < v.MediaSize {
		return fmt.Errorf("media: number_of_chunks(%d)*chunk_size(%d) = %d < media_size(%d)",
			v.NumberOfChunks, chunkSize, v.NumberOfChunks*chunkSize, v.MediaSize)
	}
	return nil
}

// ChunkCount returns ceil(media_size / chunk_size), the number of chunks
// required to cover media_size — used when deriving NumberOfChunks instead
// of trusting a possibly-stale stored value.
func ChunkCount(mediaSize, chunkSize uint64) uint64 {
	if chunkSize == 0 {
		return 0
	}
	return (mediaSize + chunkSize - 1) / chunkSize
}
