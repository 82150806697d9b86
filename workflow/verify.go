package workflow

import (
	"context"
	"fmt"
	"strings"

	ewf "github.com/sigsegv-forensics/ewfkit"
	"github.com/sigsegv-forensics/ewfkit/digest"
)

// VerifyOptions configures a Verify run.
type VerifyOptions struct {
	DigestAlgorithms []digest.Algorithm
	ProcessBufferSize int
}

// VerifyReport is Verify's Idle → Reading → Comparing → Done result:
// per-chunk checksum failures plus the overall digest comparison.
type VerifyReport struct {
	CorruptedChunks []uint64
	Computed        map[digest.Algorithm][]byte
	Stored          map[string]string
	DigestsMatch    bool
}

// Verify drives a read-only integrity pass over an already-open Handle,
// grounded on original_source/ewftools/verification_handle.h's
// read-every-chunk-then-compare contract.
type Verify struct {
	State State
	Abort AbortSignal
}

// Run reads every chunk of h in order, accumulating digests, then
// compares against the stored hash section values.
func (v *Verify) Run(ctx context.Context, h *ewf.Handle, opts VerifyOptions) (VerifyReport, error) {
	v.State = StateReading

	set := digest.NewSet(opts.DigestAlgorithms...)
	bufSize := opts.ProcessBufferSize
	if bufSize <= 0 {
		bufSize = int(h.GetMediaValues().ChunkSize())
	}
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}

	buf := make([]byte, bufSize)
	mediaSize := h.GetMediaSize()
	var offset uint64

	if _, err := h.Seek(0, 0); err != nil {
		v.State = StateFailed
		return VerifyReport{}, fmt.Errorf("workflow: verify seek: %w", err)
	}

	for offset < mediaSize {
		if v.Abort.Requested() || ctx.Err() != nil {
			v.State = StateAborted
			return VerifyReport{}, fmt.Errorf("workflow: %w", ewf.ErrAborted)
		}
		n, err := h.Read(buf)
		if n > 0 {
			set.Update(buf[:n])
			offset += uint64(n)
		}
		if err != nil {
			v.State = StateFailed
			return VerifyReport{}, fmt.Errorf("workflow: verify read at %d: %w", offset, err)
		}
	}

	v.State = StateComparing
	report := VerifyReport{
		CorruptedChunks: h.ChecksumErrors(),
		Computed:        set.Finalize(),
		Stored:          make(map[string]string),
		DigestsMatch:    true,
	}

	hv := h.HashValues()
	for _, alg := range opts.DigestAlgorithms {
		key := strings.ToUpper(string(alg))
		stored, ok := hv.Get(key)
		if !ok {
			continue
		}
		report.Stored[key] = stored
		if fmt.Sprintf("%x", report.Computed[alg]) != stored {
			report.DigestsMatch = false
		}
	}
	if len(report.CorruptedChunks) > 0 {
		report.DigestsMatch = false
	}

	v.State = StateDone
	return report, nil
}
