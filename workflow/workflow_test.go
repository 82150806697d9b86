package workflow

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	ewf "github.com/sigsegv-forensics/ewfkit"
	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/digest"
	"github.com/sigsegv-forensics/ewfkit/media"
	"github.com/sigsegv-forensics/ewfkit/segment"
)

func testMedia(numberOfSectors uint64) media.Values {
	mv := media.Values{
		BytesPerSector:  512,
		SectorsPerChunk: 4, // chunk size 2048
		NumberOfSectors: numberOfSectors,
		MediaType:       media.MediaTypeFixed,
	}
	mv.MediaSize = mv.NumberOfSectors * uint64(mv.BytesPerSector)
	mv.NumberOfChunks = media.ChunkCount(mv.MediaSize, mv.ChunkSize())
	return mv
}

func TestAcquireThenVerifySequential(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "seq")

	w, err := ewf.Open([]string{base}, ewf.ModeWrite)
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}
	mv := testMedia(20) // 10240 bytes, five full 2048-byte chunks

	source := make([]byte, mv.MediaSize)
	for i := range source {
		source[i] = byte(i * 7)
	}

	acq := &Acquire{Options: AcquireOptions{
		Media:            mv,
		Policy:           chunkcodec.Policy{},
		DigestAlgorithms: []digest.Algorithm{digest.MD5, digest.SHA1},
	}}
	if err := acq.Run(context.Background(), w, bytes.NewReader(source)); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if acq.State != StateDone {
		t.Fatalf("acquire state: got %v, want Done", acq.State)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	firstPath, err := segment.PathFor(base, segment.KindEWF1, 1, 1, false)
	if err != nil {
		t.Fatalf("PathFor: %v", err)
	}
	r, err := ewf.Open([]string{firstPath}, ewf.ModeRead)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer r.Close()

	v := &Verify{}
	report, err := v.Run(context.Background(), r, VerifyOptions{
		DigestAlgorithms: []digest.Algorithm{digest.MD5, digest.SHA1},
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(report.CorruptedChunks) != 0 {
		t.Fatalf("unexpected corrupted chunks: %v", report.CorruptedChunks)
	}
	if !report.DigestsMatch {
		t.Fatalf("digests did not match: stored=%v computed=%v", report.Stored, report.Computed)
	}
}

func TestAcquireConcurrentMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "conc")

	w, err := ewf.Open([]string{base}, ewf.ModeWrite)
	if err != nil {
		t.Fatalf("open for write: %v", err)
	}
	mv := testMedia(40) // 20480 bytes across 10 chunks

	source := make([]byte, mv.MediaSize)
	for i := range source {
		source[i] = byte(i*3 + 1)
	}

	acq := &Acquire{Options: AcquireOptions{
		Media:            mv,
		Policy:           chunkcodec.Policy{},
		DigestAlgorithms: []digest.Algorithm{digest.MD5},
		Workers:          4,
	}}
	if err := acq.Run(context.Background(), w, bytes.NewReader(source)); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	firstPath, err := segment.PathFor(base, segment.KindEWF1, 1, 1, false)
	if err != nil {
		t.Fatalf("PathFor: %v", err)
	}
	r, err := ewf.Open([]string{firstPath}, ewf.ModeRead)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer r.Close()

	if r.GetMediaSize() != mv.MediaSize {
		t.Fatalf("media size: got %d, want %d", r.GetMediaSize(), mv.MediaSize)
	}

	got := make([]byte, mv.MediaSize)
	if _, err := r.Read(got); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, source) {
		t.Fatalf("concurrently acquired chunks out of order or corrupted")
	}
}
