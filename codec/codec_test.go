package codec

import (
	"bytes"
	"hash/adler32"
	"testing"
)

func TestAdler32MatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	want := adler32.Checksum(data)
	if got := Adler32(1, data); got != want {
		t.Fatalf("Adler32() = %#x, want %#x", got, want)
	}
}

func TestAdler32Continue(t *testing.T) {
	data := []byte("segmented checksum input spanning two writes")
	want := adler32.Checksum(data)

	mid := len(data) / 2
	running := Adler32(1, data[:mid])
	got := Adler32(running, data[mid:])
	if got != want {
		t.Fatalf("continued Adler32 = %#x, want %#x", got, want)
	}
}

func TestDeflateRoundtrip(t *testing.T) {
	for _, level := range []Level{LevelNone, LevelFast, LevelDefault, LevelBest} {
		input := bytes.Repeat([]byte("ewf chunk payload "), 200)
		packed, err := DeflateCompress(input, level)
		if err != nil {
			t.Fatalf("compress level %v: %v", level, err)
		}
		plain, err := DeflateDecompress(packed, len(input))
		if err != nil {
			t.Fatalf("decompress level %v: %v", level, err)
		}
		if !bytes.Equal(plain, input) {
			t.Fatalf("roundtrip mismatch at level %v", level)
		}
	}
}

func TestDeflateDecompressTruncated(t *testing.T) {
	input := bytes.Repeat([]byte{0x42}, 4096)
	packed, err := DeflateCompress(input, LevelDefault)
	if err != nil {
		t.Fatal(err)
	}
	truncated := packed[:len(packed)/2]
	if _, err := DeflateDecompress(truncated, len(input)); err == nil {
		t.Fatal("expected error decompressing truncated stream")
	}
}

func TestHashToHex(t *testing.T) {
	got := HashToHex([]byte{0xde, 0xad, 0xbe, 0xef})
	if got != "deadbeef" {
		t.Fatalf("HashToHex() = %q", got)
	}
}
