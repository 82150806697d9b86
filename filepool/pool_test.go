package filepool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPoolEvictionReopens(t *testing.T) {
	dir := t.TempDir()
	p := New(1) // force eviction on every second entry's use

	var idxs []int
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "seg"+string(rune('A'+i)))
		if err := os.WriteFile(path, []byte{byte(i), byte(i), byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		idxs = append(idxs, p.Open(path, ModeReadOnly))
	}

	for round := 0; round < 2; round++ {
		for i, idx := range idxs {
			buf := make([]byte, 3)
			if _, err := p.ReadAt(idx, buf, 0); err != nil {
				t.Fatalf("round %d entry %d: %v", round, i, err)
			}
			if buf[0] != byte(i) {
				t.Fatalf("round %d entry %d: got %v", round, i, buf)
			}
		}
	}

	if p.OpenCount() > 1 {
		t.Fatalf("expected at most 1 open descriptor, got %d", p.OpenCount())
	}
}

func TestPoolSequentialOffsetSurvivesEviction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seq")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(1)
	idxA := p.Open(path, ModeReadOnly)
	other := filepath.Join(dir, "other")
	os.WriteFile(other, []byte("xxxx"), 0o644)
	idxB := p.Open(other, ModeReadOnly)

	buf := make([]byte, 4)
	if _, err := p.Read(idxA, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "0123" {
		t.Fatalf("got %q", buf)
	}

	// Touch idxB, evicting idxA's descriptor.
	other4 := make([]byte, 4)
	if _, err := p.Read(idxB, other4); err != nil {
		t.Fatal(err)
	}

	// idxA must resume from offset 4, not restart at 0.
	if _, err := p.Read(idxA, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "4567" {
		t.Fatalf("expected resumed read at offset 4, got %q", buf)
	}
}

func TestPoolCloseAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	os.WriteFile(path, []byte("data"), 0o644)

	p := New(4)
	idx := p.Open(path, ModeReadOnly)
	buf := make([]byte, 4)
	p.Read(idx, buf)
	if p.OpenCount() != 1 {
		t.Fatalf("expected 1 open descriptor, got %d", p.OpenCount())
	}
	if err := p.CloseAll(); err != nil {
		t.Fatal(err)
	}
	if p.OpenCount() != 0 {
		t.Fatalf("expected 0 open descriptors after CloseAll, got %d", p.OpenCount())
	}
}
