package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sigsegv-forensics/ewfkit/filepool"
	"github.com/sigsegv-forensics/ewfkit/section"
)

func TestExtensionLowTwoDigit(t *testing.T) {
	ext, err := Extension(KindEWF1, 1, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if ext != "E01" {
		t.Fatalf("got %q", ext)
	}
	ext, err = Extension(KindEWF1, 1, 99, false)
	if err != nil {
		t.Fatal(err)
	}
	if ext != "E99" {
		t.Fatalf("got %q", ext)
	}
}

func TestExtensionAlphaRollover(t *testing.T) {
	ext, err := Extension(KindEWF1, 1, 100, false)
	if err != nil {
		t.Fatal(err)
	}
	if ext != "EAA" {
		t.Fatalf("got %q", ext)
	}
	ext, err = Extension(KindEWF1, 1, 775, false)
	if err != nil {
		t.Fatal(err)
	}
	if ext != "EZZ" {
		t.Fatalf("got %q", ext)
	}
	ext, err = Extension(KindEWF1, 1, 776, false)
	if err != nil {
		t.Fatal(err)
	}
	if ext != "FAA" {
		t.Fatalf("got %q", ext)
	}
}

func TestExtensionLowercaseAndMarker(t *testing.T) {
	ext, err := Extension(KindEWF2, 2, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if ext != "ex01" {
		t.Fatalf("got %q", ext)
	}
}

func TestOpenForReadValidatesSequenceAndTerminator(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "case")
	pool := filepool.New(4)

	writeSegment(t, pool, base+".E01", 1, section.TagNext)
	writeSegment(t, pool, base+".E02", 2, section.TagDone)

	readPool := filepool.New(4)
	tbl, err := OpenForRead(readPool, base, KindEWF1, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Files()) != 2 {
		t.Fatalf("expected 2 files, got %d", len(tbl.Files()))
	}
}

func TestOpenForReadRejectsMissingDone(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "case")
	pool := filepool.New(4)
	writeSegment(t, pool, base+".E01", 1, section.TagNext)

	readPool := filepool.New(4)
	if _, err := OpenForRead(readPool, base, KindEWF1, 1, false); err == nil {
		t.Fatal("expected error for missing done terminator")
	}
}

// writeSegment creates a minimal valid segment file: file header + one
// terminator section (next or done).
func writeSegment(t *testing.T, pool *filepool.Pool, path string, number int, terminator section.Tag) {
	t.Helper()
	if err := os.WriteFile(path, EncodeFileHeader(FileHeader{Version: 1, SegmentNumber: uint16(number)}), 0o644); err != nil {
		t.Fatal(err)
	}
	idx := pool.Open(path, filepool.ModeReadWrite)
	if _, err := section.WriteSection(pool, idx, FileHeaderSize, terminator, nil, 1, 0); err != nil {
		t.Fatal(err)
	}
}
