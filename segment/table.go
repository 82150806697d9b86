package segment

import (
	"fmt"
	"os"
	"sort"

	"github.com/sigsegv-forensics/ewfkit/filepool"
	"github.com/sigsegv-forensics/ewfkit/section"
)

// File is one segment file's identity within a Table: its pool entry, its
// 1-based segment number, the section descriptors it was found to
// contain, and how many bytes of media data it covers (used to build the
// cumulative offset index for random access across the set).
type File struct {
	Path          string
	PoolEntry     int
	Number        int
	Sections      section.List
	MediaByteSpan uint64
}

// Table is spec.md §4.6's SegmentTable: the ordered set of segment files
// making up one acquisition, opened either for sequential validated
// reading or for incremental writing.
type Table struct {
	pool       *filepool.Pool
	basePath   string
	kind       Kind
	version    int
	lowercase  bool
	files      []File
	cumulative []uint64 // cumulative[i] = total MediaByteSpan of files[0:i+1]
}

// OpenForRead opens every segment file of the set rooted at basePath (no
// extension), in order, validating that segment numbers form a
// contiguous 1..N sequence and that the last file (and only the last)
// ends in a `done` section, the rest in `next` — the same checks
// ewftools/glob.c performs before accepting a multi-file image.
func OpenForRead(pool *filepool.Pool, basePath string, kind Kind, version int, lowercase bool) (*Table, error) {
	t := &Table{pool: pool, basePath: basePath, kind: kind, version: version, lowercase: lowercase}

	for n := 1; ; n++ {
		path, err := PathFor(basePath, kind, version, n, lowercase)
		if err != nil {
			return nil, err
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			if os.IsNotExist(statErr) && n > 1 {
				break
			}
			return nil, fmt.Errorf("segment: stat %s: %w", path, statErr)
		}

		idx := pool.Open(path, filepool.ModeReadOnly)
		hdrRaw := make([]byte, FileHeaderSize)
		if _, err := pool.ReadAt(idx, hdrRaw, 0); err != nil {
			return nil, fmt.Errorf("segment: read header of %s: %w", path, err)
		}
		hdr, err := DecodeFileHeader(hdrRaw)
		if err != nil {
			return nil, err
		}
		if int(hdr.SegmentNumber) != n {
			return nil, fmt.Errorf("%w: %s declares segment %d, expected %d", ErrSegmentNumberMismatch, path, hdr.SegmentNumber, n)
		}

		list, err := section.ReadList(pool, idx, FileHeaderSize, uint64(info.Size()), hdr.Version)
		if err != nil {
			return nil, fmt.Errorf("segment: read sections of %s: %w", path, err)
		}

		t.files = append(t.files, File{Path: path, PoolEntry: idx, Number: n, Sections: list})
	}

	if len(t.files) == 0 {
		return nil, fmt.Errorf("segment: no segment files found at %s", basePath)
	}
	if err := t.validateTerminators(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validateTerminators() error {
	last := len(t.files) - 1
	for i, f := range t.files {
		_, hasDone := f.Sections.Find(section.TagDone)
		_, hasNext := f.Sections.Find(section.TagNext)
		if i == last {
			if !hasDone {
				return fmt.Errorf("%w: %s", ErrMissingDoneSection, f.Path)
			}
		} else if !hasNext {
			return fmt.Errorf("segment: %s is not the last segment file but has no next section", f.Path)
		}
	}
	return nil
}

// OpenForWrite initializes an empty Table ready to have files appended as
// acquisition/export produces data (see AddFile).
func OpenForWrite(pool *filepool.Pool, basePath string, kind Kind, version int, lowercase bool) *Table {
	return &Table{pool: pool, basePath: basePath, kind: kind, version: version, lowercase: lowercase}
}

// AddFile registers a newly created segment file and its media byte span,
// extending the cumulative offset index.
func (t *Table) AddFile(f File) {
	t.files = append(t.files, f)
	total := f.MediaByteSpan
	if n := len(t.cumulative); n > 0 {
		total += t.cumulative[n-1]
	}
	t.cumulative = append(t.cumulative, total)
}

// NextPath returns the path the next segment file (number len(Files)+1)
// should be created at.
func (t *Table) NextPath() (string, error) {
	return PathFor(t.basePath, t.kind, t.version, len(t.files)+1, t.lowercase)
}

// Files returns the segment files in order.
func (t *Table) Files() []File { return t.files }

// SegmentAtOffset resolves a media-relative byte offset to the segment
// file covering it and the offset within that file's media span,
// performing an O(log N) search over the cumulative span index rather
// than a linear scan (spec.md §4.6).
func (t *Table) SegmentAtOffset(mediaOffset uint64) (File, uint64, error) {
	if len(t.cumulative) == 0 {
		// Reader-opened tables don't populate cumulative spans per file
		// (MediaByteSpan comes from the `sectors`/`table` sections, parsed
		// by package chunkindex); callers needing offset resolution on a
		// read-opened table should build the index via AddFile as they
		// process each file's table sections.
		return File{}, 0, fmt.Errorf("segment: no cumulative offset index built for this table")
	}
	i := sort.Search(len(t.cumulative), func(i int) bool { return t.cumulative[i] > mediaOffset })
	if i >= len(t.files) {
		return File{}, 0, fmt.Errorf("segment: offset %d is beyond the end of the segment set", mediaOffset)
	}
	var start uint64
	if i > 0 {
		start = t.cumulative[i-1]
	}
	return t.files[i], mediaOffset - start, nil
}
