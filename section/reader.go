package section

import (
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/filepool"
)

// List is the ordered sequence of section descriptors belonging to one
// segment file, read starting just after the 13-byte file signature.
// Generalizes the teacher's Parse loop (its processedOffsets cycle guard
// and ad-hoc "foundDone" flag) into a version-agnostic walk that returns
// data instead of mutating a God object.
type List struct {
	Descriptors []Descriptor
}

// ReadList walks the section chain of the file registered at pool entry
// idx, starting at startOffset (13 for v1, 13 for v2 — both formats place
// the first section descriptor immediately after the file signature) and
// continuing until a `done` section or an out-of-range/non-advancing next
// offset is seen. version selects the descriptor framing (1 or 2).
//
// Unknown section types are kept in the list (so callers can still locate
// and skip their payload by size) but are never decoded — only the
// recognized tags in Known are given typed payload parsers elsewhere in
// this package.
func ReadList(pool *filepool.Pool, idx int, startOffset uint64, fileSize uint64, version int) (List, error) {
	descSize := DescriptorSizeV1
	if version == 2 {
		descSize = DescriptorSizeV2
	}

	var list List
	seen := make(map[uint64]bool)
	offset := startOffset

	for {
		if offset == 0 || offset >= fileSize || seen[offset] {
			break
		}
		seen[offset] = true

		raw := make([]byte, descSize)
		if _, err := pool.ReadAt(idx, raw, int64(offset)); err != nil {
			return list, fmt.Errorf("section: read descriptor at %d: %w", offset, err)
		}

		var (
			d   Descriptor
			err error
		)
		if version == 2 {
			d, err = ReadDescriptorV2(raw, offset)
		} else {
			d, err = ReadDescriptorV1(raw, offset)
		}
		if err != nil {
			return list, err
		}

		list.Descriptors = append(list.Descriptors, d)

		if d.Tag == TagDone || d.Tag == TagNext {
			break
		}
		if d.NextOffset <= offset {
			break
		}
		offset = d.NextOffset
	}

	return list, nil
}

// ReadPayload returns the raw payload bytes (descriptor stripped) for d,
// read from the file registered at pool entry idx.
func ReadPayload(pool *filepool.Pool, idx int, d Descriptor) ([]byte, error) {
	size := d.PayloadSize()
	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}
	if _, err := pool.ReadAt(idx, buf, int64(d.PayloadOffset())); err != nil {
		return nil, fmt.Errorf("section: read %s payload at %d: %w", d.Tag, d.PayloadOffset(), err)
	}
	return buf, nil
}

// Find returns the first descriptor in l matching tag, if any.
func (l List) Find(tag Tag) (Descriptor, bool) {
	for _, d := range l.Descriptors {
		if d.Tag == tag {
			return d, true
		}
	}
	return Descriptor{}, false
}

// FindAll returns every descriptor in l matching tag, in file order.
func (l List) FindAll(tag Tag) []Descriptor {
	var out []Descriptor
	for _, d := range l.Descriptors {
		if d.Tag == tag {
			out = append(out, d)
		}
	}
	return out
}
