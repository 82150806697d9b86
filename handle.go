// Package ewf implements spec.md's Handle: the public engine tying
// together codec, chunkcodec, filepool, media, values, section,
// chunkindex and segment into Open/Read/Write/Seek/Finalize. Grounded on
// the teacher's EWFImage (ewf.go), replacing its single-*os.File,
// parse-everything-eagerly design with the pooled, section-graph-backed
// model the rest of this module builds.
package ewf

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/chunkindex"
	"github.com/sigsegv-forensics/ewfkit/digest"
	"github.com/sigsegv-forensics/ewfkit/filepool"
	"github.com/sigsegv-forensics/ewfkit/media"
	"github.com/sigsegv-forensics/ewfkit/section"
	"github.com/sigsegv-forensics/ewfkit/segment"
	"github.com/sigsegv-forensics/ewfkit/values"
)

// defaultMaxOpenFiles bounds how many segment-file descriptors stay open
// concurrently; matches the teacher's implicit "one file at a time" model
// generalized to a small working set rather than every segment at once.
const defaultMaxOpenFiles = 16

// defaultChunkCacheEntries bounds the decoded-chunk LRU.
const defaultChunkCacheEntries = 64

// Handle is spec.md §4.9's read/write engine for one acquisition's
// segment set.
type Handle struct {
	mu sync.Mutex

	mode  Mode
	pool  *filepool.Pool
	table *segment.Table
	index *chunkindex.Index
	cache *chunkCache

	media  media.Values
	header *values.Values
	hash   *values.Values

	offset int64 // current media-relative read/write cursor

	acquiryErrors  []AcquiryError
	checksumErrors []uint64
	sessionRanges  []SessionRange
	trackRanges    []TrackRange

	aborted   bool
	finalized bool

	// write-mode only
	digests         *digest.Set
	policy          chunkcodec.Policy
	writeBuf        []byte // accumulates one chunk's worth of plain bytes
	writeCursor     uint64 // media-relative append position, enforced sequential
	segmentFileSize uint64
	cur             *curFile
	curPrevious     uint64 // previous section's start offset, for v2 descriptor linking
	kind            segment.Kind
	version         int
	lowercase       bool
	nextChunk       uint64
}

// Open opens an existing segment set (ModeRead/ModeReadWrite/ModeResume)
// or begins a new one (ModeWrite). paths is the first (or only) segment
// file's path for read modes; for ModeWrite it is the desired base path
// (without extension).
func Open(paths []string, mode Mode) (*Handle, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: Open requires at least one path", ErrInvalidArgument)
	}
	switch mode {
	case ModeRead, ModeReadWrite, ModeResume:
		return openForRead(paths[0], mode)
	case ModeWrite:
		return openForWrite(paths[0])
	default:
		return nil, fmt.Errorf("%w: unrecognized mode %d", ErrInvalidArgument, mode)
	}
}

func detectKind(path string) (segment.Kind, bool) {
	rawExt := strings.TrimPrefix(filepath.Ext(path), ".")
	lowercase := rawExt != "" && rawExt == strings.ToLower(rawExt) && rawExt != strings.ToUpper(rawExt)
	ext := strings.ToLower(rawExt)
	switch {
	case strings.HasPrefix(ext, "ex"):
		return segment.KindEWF2, lowercase
	case strings.HasPrefix(ext, "e"):
		return segment.KindEWF1, lowercase
	case strings.HasPrefix(ext, "lx"):
		return segment.KindLogical, lowercase
	case strings.HasPrefix(ext, "l"):
		return segment.KindLogical, lowercase
	case strings.HasPrefix(ext, "s"):
		return segment.KindSMART, lowercase
	case strings.HasPrefix(ext, "d"):
		return segment.KindDelta, lowercase
	default:
		return segment.KindEWF1, lowercase
	}
}

func openForRead(firstPath string, mode Mode) (*Handle, error) {
	kind, lowercase := detectKind(firstPath)
	base := segment.BaseName(firstPath)

	pool := filepool.New(defaultMaxOpenFiles)

	// Peek the first file's own declared version; OpenForRead re-validates
	// every subsequent file against the same signature.
	probeIdx := pool.Open(firstPath, filepool.ModeReadOnly)
	hdrRaw := make([]byte, segment.FileHeaderSize)
	if _, err := pool.ReadAt(probeIdx, hdrRaw, 0); err != nil {
		return nil, fmt.Errorf("%w: read segment file header: %v", ErrIO, err)
	}
	hdr, err := segment.DecodeFileHeader(hdrRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	pool.Close(probeIdx)

	table, err := segment.OpenForRead(pool, base, kind, hdr.Version, lowercase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	h := &Handle{
		mode:    mode,
		pool:    pool,
		table:   table,
		index:   chunkindex.New(),
		cache:   newChunkCache(defaultChunkCacheEntries),
		kind:    kind,
		version: hdr.Version,
	}

	if err := h.loadMetadata(); err != nil {
		return nil, err
	}
	if err := h.buildChunkIndex(); err != nil {
		return nil, err
	}
	return h, nil
}

func openForWrite(basePath string) (*Handle, error) {
	pool := filepool.New(defaultMaxOpenFiles)
	table := segment.OpenForWrite(pool, basePath, segment.KindEWF1, 1, false)
	return &Handle{
		mode:    ModeWrite,
		pool:    pool,
		table:   table,
		index:   chunkindex.New(),
		cache:   newChunkCache(defaultChunkCacheEntries),
		header:  values.New(),
		hash:    values.New(),
		kind:    segment.KindEWF1,
		version: 1,
		digests: digest.NewSet(digest.MD5, digest.SHA1),
	}, nil
}

// loadMetadata decodes the volume/header/hash sections out of the first
// (volume/header) and last (hash/digest) segment files.
func (h *Handle) loadMetadata() error {
	files := h.table.Files()
	first := files[0]

	if d, ok := first.Sections.Find(section.TagVolume); ok {
		if err := h.decodeVolume(first, d); err != nil {
			return err
		}
	} else if d, ok := first.Sections.Find(section.TagDisk); ok {
		if err := h.decodeVolume(first, d); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("%w: no volume/disk section found", ErrInvalidData)
	}

	for _, tag := range []section.Tag{section.TagHeader2, section.TagXHeader, section.TagHeader} {
		if d, ok := first.Sections.Find(tag); ok {
			payload, err := section.ReadPayload(h.pool, first.PoolEntry, d)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrIO, err)
			}
			hv, err := section.DecodeHeaderSectionPayload(payload)
			if err == nil {
				h.header = hv
				break
			}
		}
	}
	if h.header == nil {
		h.header = values.New()
	}

	last := files[len(files)-1]
	if d, ok := last.Sections.Find(section.TagXHash); ok {
		payload, err := section.ReadPayload(h.pool, last.PoolEntry, d)
		if err == nil {
			if hv, err := section.DecodeHashSectionPayload(payload); err == nil {
				h.hash = hv
			}
		}
	}
	if h.hash == nil {
		h.hash = values.New()
		if d, ok := last.Sections.Find(section.TagDigest); ok {
			payload, err := section.ReadPayload(h.pool, last.PoolEntry, d)
			if err == nil {
				if dp, err := section.DecodeDigestPayload(payload); err == nil {
					h.hash.Set("MD5", fmt.Sprintf("%x", dp.MD5))
					h.hash.Set("SHA1", fmt.Sprintf("%x", dp.SHA1))
				}
			}
		}
	}

	for _, f := range files {
		if d, ok := f.Sections.Find(section.TagSession); ok {
			h.decodeRangeList(f, d, true)
		}
		if d, ok := f.Sections.Find(section.TagError2); ok {
			h.decodeRangeList(f, d, false)
		}
	}

	return nil
}

func (h *Handle) decodeVolume(f segment.File, d section.Descriptor) error {
	payload, err := section.ReadPayload(h.pool, f.PoolEntry, d)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	v, err := section.DecodeVolumePayload(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	m := media.Values{
		MediaType:        media.MediaType(v.MediaType),
		MediaFlags:       media.MediaFlag(v.MediaFlags),
		BytesPerSector:   v.BytesPerSector,
		SectorsPerChunk:  v.SectorsPerChunk,
		NumberOfSectors:  v.NumberOfSectors,
		NumberOfChunks:   uint64(v.ChunkCount),
		SetIdentifier:    v.SetIdentifier,
		ErrorGranularity: v.ErrorGranularity,
	}
	m.MediaSize = m.NumberOfSectors * uint64(m.BytesPerSector)
	m.CompressionLevel = media.CompressionLevel(v.CompressionLevel)
	if m.CompressionLevel != media.CompressionLevelNone {
		m.CompressionMethod = media.CompressionMethodDeflate
	}
	h.media = m
	return nil
}

func (h *Handle) decodeRangeList(f segment.File, d section.Descriptor, isSession bool) {
	payload, err := section.ReadPayload(h.pool, f.PoolEntry, d)
	if err != nil {
		return
	}
	hdr, err := section.DecodeRangeListHeader(payload)
	if err != nil {
		return
	}
	headerSize := 24
	entries, err := section.DecodeRangeEntries(payload[headerSize:], hdr.NumberOfEntries)
	if err != nil {
		return
	}
	for _, e := range entries {
		if isSession {
			h.sessionRanges = append(h.sessionRanges, SessionRange{FirstSector: e.FirstSector, NumberOfSectors: e.NumberOfSectors})
		} else {
			h.acquiryErrors = append(h.acquiryErrors, AcquiryError{FirstSector: e.FirstSector, NumberOfSectors: e.NumberOfSectors})
		}
	}
}

// buildChunkIndex walks every segment file's table/table2 sections,
// reconciling each against its backup via chunkindex.CorrectV1 for v1
// containers, and merges the result into h.index.
func (h *Handle) buildChunkIndex() error {
	var chunkCursor uint64

	for _, f := range h.table.Files() {
		tableDescs := f.Sections.FindAll(section.TagTable)
		table2Descs := f.Sections.FindAll(section.TagTable2)
		sectorsDescs := f.Sections.FindAll(section.TagSectors)

		for i, td := range tableDescs {
			g, err := h.fillGroup(f, td, chunkCursor, sectorsDescs, i)
			if err != nil {
				return err
			}
			if h.version == 1 && i < len(table2Descs) {
				g2, err := h.fillGroup(f, table2Descs[i], chunkCursor, sectorsDescs, i)
				if err == nil {
					g = chunkindex.CorrectV1(g, g2)
				}
			}
			h.index.Merge(g)
			chunkCursor += uint64(len(g.Entries))
		}
	}
	return nil
}

// fillGroup decodes the chunk group for table descriptor td, the
// groupIndex-th `table` section within f. sectorsDescs is every `sectors`
// descriptor found in f, in file order; a segment file holds one per
// chunk group (spec.md §4.5), so groupIndex also selects which one frames
// td — not just the first `sectors` section in the file, which only
// single-group files happen to share with every group.
func (h *Handle) fillGroup(f segment.File, td section.Descriptor, firstChunkIndex uint64, sectorsDescs []section.Descriptor, groupIndex int) (chunkindex.Group, error) {
	payload, err := section.ReadPayload(h.pool, f.PoolEntry, td)
	if err != nil {
		return chunkindex.Group{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	if h.version == 2 {
		hdr, err := section.DecodeTableHeaderV2(payload)
		if err != nil {
			return chunkindex.Group{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		entries, err := section.DecodeTableEntriesV2(payload[32:], hdr.NumberOfEntries)
		if err != nil {
			return chunkindex.Group{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		return chunkindex.FillV2(f.PoolEntry, firstChunkIndex, entries)
	}

	hdr, err := section.DecodeTableHeaderV1(payload)
	if err != nil {
		return chunkindex.Group{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	entries, err := section.DecodeTableEntriesV1(payload[24:], hdr.NumberOfEntries)
	if err != nil {
		return chunkindex.Group{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	// v1 stored offsets are relative to the `sectors` section that holds
	// the actual chunk bytes, when one is present (the common two-section
	// layout, chunks preceding their table); the last entry's size then
	// runs up to that table section's own start offset, not its end,
	// since table/table2/done|next immediately follow the chunk data.
	// Containers that embed chunk data directly after the table instead
	// use the table section's own payload start as the base, and its end
	// offset as the boundary.
	baseOffset := td.PayloadOffset()
	boundary := td.NextOffset
	if groupIndex < len(sectorsDescs) {
		baseOffset = sectorsDescs[groupIndex].PayloadOffset()
		boundary = td.StartOffset
	}

	return chunkindex.FillV1(f.PoolEntry, firstChunkIndex, baseOffset, entries, boundary, false)
}

// GetMediaValues returns the acquisition's MediaValues.
func (h *Handle) GetMediaValues() media.Values { return h.media }

// GetMediaSize returns the logical media size in bytes.
func (h *Handle) GetMediaSize() uint64 { return h.media.MediaSize }

// HeaderValues returns the parsed case/acquisition metadata.
func (h *Handle) HeaderValues() *values.Values { return h.header }

// HashValues returns the stored finalize-time digests.
func (h *Handle) HashValues() *values.Values { return h.hash }

// AcquiryErrors returns the recorded unreadable-sector ranges.
func (h *Handle) AcquiryErrors() []AcquiryError { return append([]AcquiryError(nil), h.acquiryErrors...) }

// ChecksumErrors returns the chunk indices whose checksum failed.
func (h *Handle) ChecksumErrors() []uint64 { return append([]uint64(nil), h.checksumErrors...) }

// Seek repositions the media-relative read/write cursor.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = h.offset + offset
	case io.SeekEnd:
		abs = int64(h.media.MediaSize) + offset
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrInvalidArgument, whence)
	}
	if abs < 0 || uint64(abs) > h.media.MediaSize {
		return 0, fmt.Errorf("%w: seek to %d exceeds media size %d", ErrOutOfRange, abs, h.media.MediaSize)
	}
	h.offset = abs
	return abs, nil
}

// Read reads from the current cursor, spanning chunk boundaries as
// needed, resolving each chunk through the chunk cache and chunkindex.
func (h *Handle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index == nil {
		return 0, fmt.Errorf("%w", ErrNotInitialized)
	}
	chunkSize := h.media.ChunkSize()
	if chunkSize == 0 {
		return 0, fmt.Errorf("%w: chunk size is zero", ErrInvalidData)
	}

	total := 0
	for total < len(p) {
		if uint64(h.offset) >= h.media.MediaSize {
			if total == 0 {
				return 0, io.EOF
			}
			break
		}
		chunkIndex := uint64(h.offset) / chunkSize
		withinChunk := uint64(h.offset) % chunkSize

		plain, err := h.readChunk(chunkIndex)
		if err != nil {
			return total, err
		}

		n := copy(p[total:], plain[withinChunk:])
		total += n
		h.offset += int64(n)
	}
	return total, nil
}

func (h *Handle) readChunk(chunkIndex uint64) ([]byte, error) {
	if plain, ok := h.cache.get(chunkIndex); ok {
		return plain, nil
	}
	desc, ok := h.index.Lookup(chunkIndex)
	if !ok {
		return nil, fmt.Errorf("%w: chunk %d not indexed", ErrOutOfRange, chunkIndex)
	}

	expected := int(h.media.ChunkSize())
	if last := h.media.NumberOfChunks - 1; chunkIndex == last {
		rem := h.media.MediaSize % h.media.ChunkSize()
		if rem != 0 {
			expected = int(rem)
		}
	}

	var raw []byte
	if h.version == 2 && desc.Flags.Has(chunkcodec.UsesPatternFill) {
		// v2 keeps the 8-byte pattern in the entry's offset field (see
		// chunkindex.FillV2); there is no chunk data in the file to read.
		raw = make([]byte, 8)
		for i := range raw {
			raw[i] = byte(desc.Offset >> (8 * i))
		}
	} else {
		raw = make([]byte, desc.Size)
		if _, err := h.pool.ReadAt(desc.FilePoolEntry, raw, int64(desc.Offset)); err != nil {
			return nil, fmt.Errorf("%w: read chunk %d: %v", ErrIO, chunkIndex, err)
		}
	}

	plain, corrupted, err := chunkcodec.Unpack(raw, desc.Flags, expected, true)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %d: %v", ErrIntegrity, chunkIndex, err)
	}
	if corrupted {
		h.checksumErrors = append(h.checksumErrors, chunkIndex)
	}
	h.cache.put(chunkIndex, plain)
	return plain, nil
}

// AddAcquiryError records a run of unreadable sectors, for acquisition
// workflows to call as they encounter device read failures.
func (h *Handle) AddAcquiryError(firstSector, numberOfSectors uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.acquiryErrors = append(h.acquiryErrors, AcquiryError{FirstSector: firstSector, NumberOfSectors: numberOfSectors})
}

// AddChecksumError records a chunk whose checksum failed outside the
// normal Read path (e.g. during a verify pass's independent re-check).
func (h *Handle) AddChecksumError(chunkIndex uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checksumErrors = append(h.checksumErrors, chunkIndex)
}

// SignalAbort requests that any in-progress Write/Finalize stop at the
// next safe point, per spec.md §4.9.
func (h *Handle) SignalAbort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aborted = true
}

// Close releases every open segment-file descriptor.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.CloseAll()
}
