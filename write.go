package ewf

import (
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/chunkindex"
	"github.com/sigsegv-forensics/ewfkit/digest"
	"github.com/sigsegv-forensics/ewfkit/filepool"
	"github.com/sigsegv-forensics/ewfkit/media"
	"github.com/sigsegv-forensics/ewfkit/section"
	"github.com/sigsegv-forensics/ewfkit/segment"
	"github.com/sigsegv-forensics/ewfkit/values"
)

// defaultSegmentFileSize is the `-S` default (spec.md §6): roll to a new
// segment file once a segment's accumulated chunk data reaches or passes
// this; the check runs after each chunk is written, so a segment may end
// up to one chunk over it.
const defaultSegmentFileSize = 1400 * 1024 * 1024 // the classic EnCase default, ~1.4 GiB

// maxV1TableEntries is the largest chunk count a single v1 table section
// may hold before FillV1's EnCase-6.7 offset-overflow compensation can no
// longer be trusted to span it; a group is closed out and a fresh
// `sectors`/`table`/`table2` triple started once it's reached, independent
// of any segment_file_size rollover.
const maxV1TableEntries = 65534

// curFile tracks the in-progress segment file's write-side bookkeeping
// that segment.File doesn't need for reading.
type curFile struct {
	poolEntry         int
	number            int
	dataStart         uint64 // offset where the current `sectors` payload begins
	sectorsDescOffset uint64 // start of the `sectors` section descriptor, patched in flushTable
	entries           []section.RawEntryV1
	firstChunk        uint64
	written           uint64 // bytes of chunk data written into this file's sectors payload so far
	offset            uint64 // current write cursor within the file
}

// SetMediaValues configures the media geometry and compression policy for
// a Handle opened with ModeWrite, before the first Write call.
func (h *Handle) SetMediaValues(mv media.Values, policy chunkcodec.Policy) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != ModeWrite {
		return fmt.Errorf("%w: SetMediaValues is only valid in write mode", ErrInvalidArgument)
	}
	if h.cur != nil {
		return fmt.Errorf("%w: SetMediaValues called after writing started", ErrAlreadyInitialized)
	}
	if err := mv.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	// v1's on-disk table entry carries no separate "has checksum" bit of
	// its own: FillV1 infers HasChecksum for every uncompressed chunk
	// unconditionally (the format's actual convention, not a policy
	// choice), so an uncompressed chunk without a trailing Adler-32 would
	// read back as checksum-corrupted. Enforce it here rather than
	// trusting every caller to set it.
	if h.version == 1 {
		policy.HaveChecksum = true
	}
	h.media = mv
	h.policy = policy
	if h.segmentFileSize == 0 {
		h.segmentFileSize = defaultSegmentFileSize
	}
	return nil
}

// Policy returns the chunk-codec policy in effect, after SetMediaValues's
// v1 checksum enforcement — callers pre-packing chunks off the write path
// (workflow's concurrent pipeline) must pack against this, not whatever
// Policy they originally requested, or CommitPacked's table entries and
// the read path's v1 HasChecksum assumption would disagree.
func (h *Handle) Policy() chunkcodec.Policy {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.policy
}

// SegmentFileSize overrides defaultSegmentFileSize; must be called before
// the first Write.
func (h *Handle) SegmentFileSize(n uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.segmentFileSize = n
}

// SetDigestAlgorithms replaces the set of digests accumulated during
// acquisition and written by Finalize; must be called before the first
// Write. An empty list disables overall-digest accumulation entirely.
func (h *Handle) SetDigestAlgorithms(algs ...digest.Algorithm) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(algs) == 0 {
		h.digests = nil
		return
	}
	h.digests = digest.NewSet(algs...)
}

func (h *Handle) ensureOpenForWrite() error {
	if h.cur != nil {
		return nil
	}
	if h.media.ChunkSize() == 0 {
		return fmt.Errorf("%w: SetMediaValues must be called before the first Write", ErrNotInitialized)
	}
	return h.startSegment()
}

func (h *Handle) startSegment() error {
	path, err := h.table.NextPath()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	idx := h.pool.Open(path, filepool.ModeCreate)
	number := len(h.table.Files()) + 1

	fh := segment.FileHeader{Version: h.version, SegmentNumber: uint16(number)}
	raw := segment.EncodeFileHeader(fh)
	if _, err := h.pool.Write(idx, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	offset := uint64(len(raw))
	previous := uint64(0)

	if number == 1 {
		headerText := values.EncodeHeaderText(h.header, "main")
		payload, err := section.EncodeHeaderSectionPayload(headerText, true)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		d, err := section.WriteSection(h.pool, idx, offset, section.TagHeader2, payload, h.version, previous)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		offset = d.StartOffset + d.Size
		previous = d.StartOffset

		vpayload := section.EncodeVolumePayload(mediaToVolumePayload(h.media))
		d, err = section.WriteSection(h.pool, idx, offset, section.TagVolume, vpayload, h.version, previous)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		offset = d.StartOffset + d.Size
		previous = d.StartOffset
	}

	// The `sectors` section's descriptor is written now, ahead of its
	// payload, so the chunk data region starts at a fixed, known offset;
	// its Size/NextOffset are only filled in once the segment is rolled
	// or finalized and the chunk byte count is known (see flushTable).
	sd, err := section.WriteSection(h.pool, idx, offset, section.TagSectors, nil, h.version, previous)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	dataStart := sd.StartOffset + uint64(sd.DescriptorSize)

	h.cur = &curFile{
		poolEntry:         idx,
		number:            number,
		dataStart:         dataStart,
		sectorsDescOffset: sd.StartOffset,
		firstChunk:        h.nextChunk,
		offset:            dataStart,
	}
	h.curPrevious = sd.StartOffset
	return nil
}

// Write implements spec.md §4.8's append-only write contract: data is
// accumulated into chunk-sized units, each packed via ChunkCodec and
// appended sequentially to the current segment file; offset must equal
// the handle's current write cursor (strictly sequential).
func (h *Handle) Write(p []byte, offset uint64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode != ModeWrite {
		return 0, fmt.Errorf("%w: Write requires ModeWrite", ErrInvalidArgument)
	}
	if h.aborted {
		return 0, fmt.Errorf("%w", ErrAborted)
	}
	if offset != h.writeCursor {
		return 0, fmt.Errorf("%w: write at %d, expected sequential offset %d", ErrInvalidArgument, offset, h.writeCursor)
	}
	if err := h.ensureOpenForWrite(); err != nil {
		return 0, err
	}

	chunkSize := int(h.media.ChunkSize())
	if h.writeBuf == nil {
		h.writeBuf = make([]byte, 0, chunkSize)
	}

	written := 0
	for written < len(p) {
		if h.aborted {
			return written, fmt.Errorf("%w", ErrAborted)
		}
		room := chunkSize - len(h.writeBuf)
		n := copy(h.writeBuf[len(h.writeBuf):cap(h.writeBuf)][:room], p[written:])
		h.writeBuf = h.writeBuf[:len(h.writeBuf)+n]
		written += n
		if len(h.writeBuf) == chunkSize {
			if err := h.commitChunk(h.writeBuf); err != nil {
				return written, err
			}
			h.writeBuf = h.writeBuf[:0]
		}
	}
	h.writeCursor += uint64(written)
	return written, nil
}

func (h *Handle) commitChunk(plain []byte) error {
	packed, err := chunkcodec.Pack(plain, h.policy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return h.commitPacked(plain, packed)
}

// CommitPacked appends an already-packed chunk (produced off the write
// path, e.g. by workflow's concurrent compressor pool) as the next
// sequential chunk. plain is still needed for digest accumulation.
// Callers must present chunks in chunk-index order; Handle enforces no
// reordering of its own.
func (h *Handle) CommitPacked(plain []byte, packed chunkcodec.Packed) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mode != ModeWrite {
		return fmt.Errorf("%w: CommitPacked requires ModeWrite", ErrInvalidArgument)
	}
	if err := h.ensureOpenForWrite(); err != nil {
		return err
	}
	return h.commitPacked(plain, packed)
}

func (h *Handle) commitPacked(plain []byte, packed chunkcodec.Packed) error {
	// WriteAt, not Write: every section's framing bytes (header2, volume,
	// the `sectors` placeholder, table/table2) are written positionally
	// via section.WriteSection/PatchSize, which never advances the pool
	// entry's sequential write cursor. Chunk data must be positioned the
	// same way, at the explicitly tracked h.cur.offset, or it would land
	// wherever that unrelated cursor last stopped.
	if _, err := h.pool.WriteAt(h.cur.poolEntry, packed.Data, int64(h.cur.offset)); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	entryOffset := h.cur.offset - h.cur.dataStart
	var stored uint32
	if packed.Flags.Has(chunkcodec.IsCompressed) {
		stored = 0x80000000
	}
	stored |= uint32(entryOffset) &^ 0x80000000
	h.cur.entries = append(h.cur.entries, section.RawEntryV1{StoredOffset: stored})
	h.cur.offset += uint64(len(packed.Data))
	h.cur.written += uint64(len(packed.Data))
	h.nextChunk++

	if h.digests != nil {
		h.digests.Update(plain)
	}

	if h.cur.written >= h.segmentFileSize {
		return h.rollSegment()
	}
	if h.version == 1 && len(h.cur.entries) >= maxV1TableEntries {
		return h.flushTable(false)
	}
	return nil
}

// rollSegment closes out the current segment's sectors/table pair, writes
// a `next` section, and prepares for a fresh segment file on next Write.
func (h *Handle) rollSegment() error {
	// true: this file is ending (a `next` section follows immediately
	// below), so flushTable must not open a further chunk group in it.
	if err := h.flushTable(true); err != nil {
		return err
	}
	if _, err := section.WriteSection(h.pool, h.cur.poolEntry, h.cur.offset, section.TagNext, nil, h.version, h.curPrevious); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	h.table.AddFile(segment.File{PoolEntry: h.cur.poolEntry, Number: h.cur.number, MediaByteSpan: h.cur.written})
	h.pool.Close(h.cur.poolEntry)
	h.cur = nil
	return nil
}

// flushTable writes the accumulated table entries (and, for v1, an
// identical table2 backup copy) as sections immediately following the
// chunk data already written to the current segment file, then merges
// the resulting group into the live ChunkIndex so reads against a
// still-open write Handle (ModeReadWrite resume) see the new chunks.
//
// last is false only when a v1 table is being closed out mid-segment
// because maxV1TableEntries was reached: a fresh `sectors` placeholder is
// opened immediately afterward so chunk writes continue in the same file.
// It is true both at Finalize (the file is complete) and from rollSegment
// (a `next` section follows immediately, so no further group belongs in
// this file).
func (h *Handle) flushTable(last bool) error {
	if h.cur == nil || len(h.cur.entries) == 0 {
		return nil
	}

	sd := section.Descriptor{
		Version:        h.version,
		Tag:            section.TagSectors,
		StartOffset:    h.cur.sectorsDescOffset,
		DescriptorSize: section.DescriptorSizeV1,
	}
	sectorsSize := uint64(sd.DescriptorSize) + (h.cur.offset - h.cur.dataStart)
	sd, err := section.PatchSize(h.pool, h.cur.poolEntry, sd, sectorsSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	h.curPrevious = sd.StartOffset

	hdr := section.TableHeaderV1{NumberOfEntries: uint32(len(h.cur.entries))}
	payload := append(section.EncodeTableHeaderV1(hdr), section.EncodeTableEntriesV1(h.cur.entries)...)

	d, err := section.WriteSection(h.pool, h.cur.poolEntry, h.cur.offset, section.TagTable, payload, h.version, h.curPrevious)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	h.cur.offset = d.StartOffset + d.Size
	h.curPrevious = d.StartOffset

	d2, err := section.WriteSection(h.pool, h.cur.poolEntry, h.cur.offset, section.TagTable2, payload, h.version, h.curPrevious)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	h.cur.offset = d2.StartOffset + d2.Size
	h.curPrevious = d2.StartOffset

	g, err := chunkindex.FillV1(h.cur.poolEntry, h.cur.firstChunk, h.cur.dataStart, h.cur.entries, d.StartOffset, false)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	h.index.Merge(g)

	if !last {
		sd, err := section.WriteSection(h.pool, h.cur.poolEntry, h.cur.offset, section.TagSectors, nil, h.version, h.curPrevious)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		h.cur.sectorsDescOffset = sd.StartOffset
		h.cur.dataStart = sd.StartOffset + uint64(sd.DescriptorSize)
		h.cur.offset = h.cur.dataStart
		h.curPrevious = sd.StartOffset
		h.cur.entries = nil
		h.cur.firstChunk = h.nextChunk
	}
	return nil
}

// Finalize flushes any partial trailing chunk, writes the last segment's
// digest section (when digests are enabled) and done section, and closes
// every open pool entry. After SignalAbort it returns ErrAborted without
// writing anything.
func (h *Handle) Finalize() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode != ModeWrite {
		return fmt.Errorf("%w: Finalize requires ModeWrite", ErrInvalidArgument)
	}
	if h.finalized {
		return nil
	}
	if h.aborted {
		return fmt.Errorf("%w", ErrAborted)
	}

	if len(h.writeBuf) > 0 {
		padded := make([]byte, h.media.ChunkSize())
		copy(padded, h.writeBuf)
		if err := h.commitChunk(padded); err != nil {
			return err
		}
		h.writeBuf = h.writeBuf[:0]
	}
	if h.cur == nil {
		if err := h.startSegment(); err != nil {
			return err
		}
	}
	if err := h.flushTable(true); err != nil {
		return err
	}

	if h.digests != nil {
		sums := h.digests.Finalize()
		dp := section.DigestPayload{}
		copy(dp.MD5[:], sums["md5"])
		copy(dp.SHA1[:], sums["sha1"])
		payload := section.EncodeDigestPayload(dp)
		d, err := section.WriteSection(h.pool, h.cur.poolEntry, h.cur.offset, section.TagDigest, payload, h.version, h.curPrevious)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		h.cur.offset = d.StartOffset + d.Size
		h.curPrevious = d.StartOffset
	}

	if _, err := section.WriteSection(h.pool, h.cur.poolEntry, h.cur.offset, section.TagDone, nil, h.version, h.curPrevious); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	h.table.AddFile(segment.File{PoolEntry: h.cur.poolEntry, Number: h.cur.number, MediaByteSpan: h.cur.written})
	h.finalized = true
	return h.pool.CloseAll()
}

func mediaToVolumePayload(mv media.Values) section.VolumePayload {
	return section.VolumePayload{
		MediaType:        uint8(mv.MediaType),
		ChunkCount:       uint32(mv.NumberOfChunks),
		SectorsPerChunk:  mv.SectorsPerChunk,
		BytesPerSector:   mv.BytesPerSector,
		NumberOfSectors:  mv.NumberOfSectors,
		MediaFlags:       uint8(mv.MediaFlags),
		CompressionLevel: uint8(mv.CompressionLevel),
		ErrorGranularity: mv.ErrorGranularity,
		SetIdentifier:    mv.SetIdentifier,
	}
}
