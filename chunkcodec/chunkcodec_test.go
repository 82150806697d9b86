package chunkcodec

import (
	"bytes"
	"testing"

	"github.com/sigsegv-forensics/ewfkit/codec"
)

func TestPackUnpackPatternFill(t *testing.T) {
	const chunkSize = 2048
	pattern := []byte{0x58, 0x58, 0x58, 0x58, 0x58, 0x58, 0x58, 0x58}
	plain := bytes.Repeat(pattern, chunkSize/8)

	packed, err := Pack(plain, Policy{PatternFillDetect: true})
	if err != nil {
		t.Fatal(err)
	}
	if !packed.UsesPatternFill {
		t.Fatal("expected pattern fill to be detected")
	}
	if len(packed.Data) != 8 {
		t.Fatalf("pattern-fill payload should be 8 bytes, got %d", len(packed.Data))
	}

	out, corrupted, err := Unpack(packed.Data, packed.Flags, chunkSize, false)
	if err != nil {
		t.Fatal(err)
	}
	if corrupted {
		t.Fatal("unexpected corruption flag")
	}
	if !bytes.Equal(out, plain) {
		t.Fatal("roundtrip mismatch for pattern-fill chunk")
	}
}

func TestPackUnpackPatternFillAllRepeatLengths(t *testing.T) {
	const chunkSize = 64
	pattern := uint64(0x0102030405060708)
	for k := 1; k <= chunkSize/8; k++ {
		plain := ExpandPattern64(pattern, k*8)
		packed, err := Pack(plain, Policy{PatternFillDetect: true})
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		out, corrupted, err := Unpack(packed.Data, packed.Flags, len(plain), false)
		if err != nil || corrupted {
			t.Fatalf("k=%d: unpack err=%v corrupted=%v", k, err, corrupted)
		}
		if !bytes.Equal(out, plain) {
			t.Fatalf("k=%d: roundtrip mismatch", k)
		}
	}
}

func TestPackUnpackCompressed(t *testing.T) {
	plain := bytes.Repeat([]byte("forensic-image-chunk-body"), 100)
	packed, err := Pack(plain, Policy{Level: codec.LevelBest})
	if err != nil {
		t.Fatal(err)
	}
	if !packed.IsCompressed {
		t.Fatal("expected chunk to be compressed")
	}
	out, corrupted, err := Unpack(packed.Data, packed.Flags, len(plain), false)
	if err != nil || corrupted {
		t.Fatalf("unpack err=%v corrupted=%v", err, corrupted)
	}
	if !bytes.Equal(out, plain) {
		t.Fatal("roundtrip mismatch for compressed chunk")
	}
}

func TestPackEmptyBlockCompressedWhenPolicySet(t *testing.T) {
	plain := make([]byte, 64*512)
	packed, err := Pack(plain, Policy{Level: codec.LevelNone, CompressEmpty: true})
	if err != nil {
		t.Fatal(err)
	}
	if !packed.IsCompressed {
		t.Fatal("expected empty block to be compressed under compress_empty policy")
	}
	if len(packed.Data) >= len(plain) {
		t.Fatalf("expected compressed empty block to be much smaller, got %d bytes", len(packed.Data))
	}
}

func TestPackUnpackChecksumMismatchCorrupted(t *testing.T) {
	plain := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF, 0x01}, 128)
	packed, err := Pack(plain, Policy{HaveChecksum: true})
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte in the stored plaintext, outside the trailing checksum.
	corruptData := append([]byte(nil), packed.Data...)
	corruptData[0] ^= 0xFF

	out, corrupted, err := Unpack(corruptData, packed.Flags, len(plain), true)
	if err != nil {
		t.Fatal(err)
	}
	if !corrupted {
		t.Fatal("expected checksum mismatch to be reported as corrupted")
	}
	if !bytes.Equal(out, make([]byte, len(plain))) {
		t.Fatal("expected wipe-on-error to zero the buffer")
	}
}

func TestIsEmptyBlock(t *testing.T) {
	if IsEmptyBlock(nil) {
		t.Fatal("zero-length must not be empty")
	}
	if !IsEmptyBlock(make([]byte, 16)) {
		t.Fatal("all-zero buffer should be empty")
	}
	if IsEmptyBlock([]byte{1, 1, 1, 2}) {
		t.Fatal("non-uniform buffer should not be empty")
	}
}

func TestDetectPattern64(t *testing.T) {
	if _, ok := DetectPattern64([]byte{1, 2, 3}); ok {
		t.Fatal("short buffer must not match")
	}
	data := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 4)
	p, ok := DetectPattern64(data)
	if !ok || p == 0 {
		t.Fatal("expected pattern match")
	}
	data[16] = 0xFF
	if _, ok := DetectPattern64(data); ok {
		t.Fatal("expected mismatch after perturbing one window")
	}
}
