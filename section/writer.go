package section

import (
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/filepool"
)

// WriteSection writes one section (descriptor framing + payload) to pool
// entry idx at the given start offset and returns the descriptor actually
// written (with Size/NextOffset filled in). version selects v1 or v2
// framing. previousOffset is only meaningful for v2.
func WriteSection(pool *filepool.Pool, idx int, startOffset uint64, tag Tag, payload []byte, version int, previousOffset uint64) (Descriptor, error) {
	descSize := DescriptorSizeV1
	if version == 2 {
		descSize = DescriptorSizeV2
	}
	size := uint64(descSize) + uint64(len(payload))

	d := Descriptor{
		Version:        version,
		Tag:            tag,
		StartOffset:    startOffset,
		Size:           size,
		NextOffset:     startOffset + size,
		PreviousOffset: previousOffset,
		DescriptorSize: descSize,
	}

	var descBytes []byte
	if version == 2 {
		b, err := EncodeDescriptorV2(d)
		if err != nil {
			return Descriptor{}, err
		}
		descBytes = b
	} else {
		descBytes = EncodeDescriptorV1(d)
	}

	if _, err := pool.WriteAt(idx, descBytes, int64(startOffset)); err != nil {
		return Descriptor{}, fmt.Errorf("section: write %s descriptor at %d: %w", tag, startOffset, err)
	}
	if len(payload) > 0 {
		if _, err := pool.WriteAt(idx, payload, int64(startOffset)+int64(descSize)); err != nil {
			return Descriptor{}, fmt.Errorf("section: write %s payload at %d: %w", tag, startOffset+uint64(descSize), err)
		}
	}
	return d, nil
}

// PatchSize rewrites an already-written section descriptor's Size/
// NextOffset in place, re-deriving the on-disk framing bytes and their
// checksum/integrity hash. Used for the `sectors` section, whose
// descriptor must be written before its chunk data (so table entries can
// reference a fixed payload start) but whose total length is only known
// once the segment's chunks have all been appended.
func PatchSize(pool *filepool.Pool, idx int, d Descriptor, newSize uint64) (Descriptor, error) {
	d.Size = newSize
	d.NextOffset = d.StartOffset + newSize

	var descBytes []byte
	if d.Version == 2 {
		b, err := EncodeDescriptorV2(d)
		if err != nil {
			return Descriptor{}, err
		}
		descBytes = b
	} else {
		descBytes = EncodeDescriptorV1(d)
	}
	if _, err := pool.WriteAt(idx, descBytes, int64(d.StartOffset)); err != nil {
		return Descriptor{}, fmt.Errorf("section: patch %s descriptor at %d: %w", d.Tag, d.StartOffset, err)
	}
	return d, nil
}

// WriteAtPayload overwrites an already-framed section's payload in place,
// leaving its descriptor untouched. Used by the repair pass to replace a
// corrupted `table` section's entries with a clean `table2` backup's
// without disturbing the section chain around it; payload must be no
// larger than d.PayloadSize().
func WriteAtPayload(pool *filepool.Pool, idx int, d Descriptor, payload []byte) error {
	if uint64(len(payload)) > d.PayloadSize() {
		return fmt.Errorf("section: repaired %s payload is %d bytes, section only has room for %d", d.Tag, len(payload), d.PayloadSize())
	}
	if _, err := pool.WriteAt(idx, payload, int64(d.PayloadOffset())); err != nil {
		return fmt.Errorf("section: rewrite %s payload at %d: %w", d.Tag, d.PayloadOffset(), err)
	}
	return nil
}
