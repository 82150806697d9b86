package ewf

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/media"
	"github.com/sigsegv-forensics/ewfkit/segment"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "case001")

	w, err := Open([]string{base}, ModeWrite)
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}

	mv := media.Values{
		BytesPerSector:  512,
		SectorsPerChunk: 8, // chunk size 4096
		NumberOfSectors: 4, // media size 2048, one short chunk
		MediaType:       media.MediaTypeFixed,
	}
	mv.MediaSize = mv.NumberOfSectors * uint64(mv.BytesPerSector)
	mv.NumberOfChunks = media.ChunkCount(mv.MediaSize, mv.ChunkSize())

	if err := w.SetMediaValues(mv, chunkcodec.Policy{}); err != nil {
		t.Fatalf("SetMediaValues: %v", err)
	}
	w.HeaderValues().Set("c", "case001")
	w.HeaderValues().Set("e", "tester")

	plain := make([]byte, mv.MediaSize)
	for i := range plain {
		plain[i] = byte(i)
	}
	if n, err := w.Write(plain, 0); err != nil || n != len(plain) {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	firstPath, err := segment.PathFor(base, segment.KindEWF1, 1, 1, false)
	if err != nil {
		t.Fatalf("PathFor: %v", err)
	}

	r, err := Open([]string{firstPath}, ModeRead)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer r.Close()

	if r.GetMediaSize() != mv.MediaSize {
		t.Fatalf("media size: got %d, want %d", r.GetMediaSize(), mv.MediaSize)
	}
	if c, ok := r.HeaderValues().Get("c"); !ok || c != "case001" {
		t.Fatalf("header case number: got %q, ok=%v", c, ok)
	}

	got := make([]byte, mv.MediaSize)
	n, err := readFull(r, got)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if uint64(n) != mv.MediaSize {
		t.Fatalf("Read: got %d bytes, want %d", n, mv.MediaSize)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round-tripped media bytes differ")
	}
	if len(r.ChecksumErrors()) != 0 {
		t.Fatalf("unexpected checksum errors: %v", r.ChecksumErrors())
	}
}

func readFull(h *Handle, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := h.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
