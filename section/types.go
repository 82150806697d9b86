// Package section implements the typed section stream described in
// spec.md §4.4: descriptor framing (v1 76-byte, v2 descriptor), the
// recognized section type tags, and read/write of each payload shape.
// Grounded on the teacher's Section/HeaderSection/DiskSMART/TableSection
// structs (ewf.go) generalized to both format versions.
package section

// Tag is a section type identifier, e.g. "header", "table", "done".
type Tag string

const (
	TagHeader           Tag = "header"
	TagHeader2          Tag = "header2"
	TagXHeader          Tag = "xheader"
	TagVolume           Tag = "volume"
	TagDisk             Tag = "disk"
	TagDeviceInfo       Tag = "device_information"
	TagSectors          Tag = "sectors"
	TagTable            Tag = "table"
	TagTable2           Tag = "table2"
	TagData             Tag = "data"
	TagSession          Tag = "session"
	TagError2           Tag = "error2"
	TagError            Tag = "error"
	TagDigest           Tag = "digest"
	TagHash             Tag = "hash"
	TagLType            Tag = "ltype"
	TagLTree            Tag = "ltree"
	TagXHash            Tag = "xhash"
	TagDone             Tag = "done"
	TagNext             Tag = "next"
)

// Known reports whether tag is a section type this engine understands.
// Unknown types are not an error — spec.md §4.4 requires skipping them by
// size and continuing.
func Known(tag Tag) bool {
	switch tag {
	case TagHeader, TagHeader2, TagXHeader, TagVolume, TagDisk, TagDeviceInfo,
		TagSectors, TagTable, TagTable2, TagData, TagSession, TagError2,
		TagError, TagDigest, TagHash, TagLType, TagLTree, TagXHash, TagDone, TagNext:
		return true
	default:
		return false
	}
}

// Descriptor is the generic, version-independent view of a section's
// framing: where it starts, how large it is (descriptor + payload +
// footer), and where the next section begins. v1 stores NextOffset
// directly; v2's is derived as StartOffset+Size (see descriptor.go).
type Descriptor struct {
	Version        int // 1 or 2
	Tag            Tag
	StartOffset    uint64
	Size           uint64 // total on-disk size including descriptor and footer
	NextOffset     uint64
	PreviousOffset uint64 // v2 only
	DataFlags      uint32 // v2 only
	DescriptorSize int    // 76 (v1) or 40 (v2, see DESIGN.md)
}

// PayloadOffset is the absolute offset of the section's payload, i.e. just
// past the fixed-size descriptor.
func (d Descriptor) PayloadOffset() uint64 {
	return d.StartOffset + uint64(d.DescriptorSize)
}

// PayloadSize is Size minus the descriptor framing and, for checksummed
// payload types, minus the trailing footer — callers that know their
// payload's own footer size subtract it themselves; this returns the
// descriptor-relative remainder only.
func (d Descriptor) PayloadSize() uint64 {
	if d.Size < uint64(d.DescriptorSize) {
		return 0
	}
	return d.Size - uint64(d.DescriptorSize)
}
