package workflow

import (
	"context"
	"fmt"
	"io"

	ewf "github.com/sigsegv-forensics/ewfkit"
	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"github.com/sigsegv-forensics/ewfkit/digest"
	"github.com/sigsegv-forensics/ewfkit/media"
)

// AcquireOptions is the pure configuration struct spec.md §9 calls for:
// the CLI maps its `-b`/`-S`/`-c`/`-d`/`-p` flags onto this, the core
// never parses flags itself.
type AcquireOptions struct {
	Media           media.Values
	Policy          chunkcodec.Policy
	SegmentFileSize uint64
	DigestAlgorithms []digest.Algorithm
	WipeOnError     bool
	ErrorGranularity uint32
	SwapBytePairs   bool
	ProcessBufferSize int // bytes read per source.Read call when sequential; 0 = one chunk at a time (the concurrent path always reads one chunk per job)
	Workers         int  // compressor pipeline width; 0/1 = sequential
}

// Acquire drives Idle → Preparing → Writing → Finalizing → (Done |
// Aborted | Failed), reading raw media bytes from source and committing
// them to h chunk by chunk. Grounded on
// original_source/ewftools/imaging_handle.c's main acquisition loop
// (read → update_integrity_hash → swap_byte_pairs → write).
type Acquire struct {
	State   State
	Abort   AbortSignal
	Options AcquireOptions

	acquiryErrors []ewf.AcquiryError
}

// AcquiryErrors returns the source-read failures recorded during Run.
func (a *Acquire) AcquiryErrors() []ewf.AcquiryError {
	return append([]ewf.AcquiryError(nil), a.acquiryErrors...)
}

// Run executes the acquisition to completion or abort/failure.
func (a *Acquire) Run(ctx context.Context, h *ewf.Handle, source io.Reader) error {
	a.State = StatePreparing

	if err := h.SetMediaValues(a.Options.Media, a.Options.Policy); err != nil {
		a.State = StateFailed
		return fmt.Errorf("workflow: acquire prepare: %w", err)
	}
	if a.Options.SegmentFileSize > 0 {
		h.SegmentFileSize(a.Options.SegmentFileSize)
	}
	h.SetDigestAlgorithms(a.Options.DigestAlgorithms...)

	bufSize := a.Options.ProcessBufferSize
	chunkSize := int(a.Options.Media.ChunkSize())
	if bufSize <= 0 {
		bufSize = chunkSize
	}

	workers := a.Options.Workers
	a.State = StateWriting

	var err error
	if workers > 1 {
		err = a.runConcurrent(ctx, h, source, chunkSize, workers)
	} else {
		err = a.runSequential(ctx, h, source, chunkSize, bufSize)
	}

	if a.Abort.Requested() {
		a.State = StateAborted
		return fmt.Errorf("workflow: %w", ewf.ErrAborted)
	}
	if err != nil {
		a.State = StateFailed
		return fmt.Errorf("workflow: acquire writing: %w", err)
	}

	a.State = StateFinalizing
	if err := h.Finalize(); err != nil {
		a.State = StateFailed
		return fmt.Errorf("workflow: acquire finalize: %w", err)
	}
	a.State = StateDone
	return nil
}

// runSequential is the teacher-equivalent single-threaded loop: read one
// process-buffer at a time, optionally swap byte pairs, feed the Handle.
func (a *Acquire) runSequential(ctx context.Context, h *ewf.Handle, source io.Reader, chunkSize, bufSize int) error {
	buf := make([]byte, chunkSizeOr(bufSize))
	var offset uint64

	for {
		if a.Abort.Requested() || ctx.Err() != nil {
			a.Abort.Set()
			return nil
		}
		n, readErr := source.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if a.Options.SwapBytePairs {
				swapBytePairs(chunk)
			}
			if _, err := h.Write(chunk, offset); err != nil {
				return err
			}
			offset += uint64(n)
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			a.recordSourceError(h, offset, chunkSize)
			if !a.Options.WipeOnError {
				return readErr
			}
		}
	}
}

// runConcurrent fans chunk-sized reads out across a compressor pool and
// writes results back in source order via CommitPacked, per spec.md §5's
// producer/compressor-pool/reorder-buffer pipeline shape.
func (a *Acquire) runConcurrent(ctx context.Context, h *ewf.Handle, source io.Reader, chunkSize, workers int) error {
	jobs := make(chan chunkJob, workers*2)

	go func() {
		defer close(jobs)
		var index uint64
		for {
			if a.Abort.Requested() || ctx.Err() != nil {
				a.Abort.Set()
				return
			}
			buf := make([]byte, chunkSize)
			n, err := io.ReadFull(source, buf)
			if n > 0 {
				chunk := buf[:n]
				if a.Options.SwapBytePairs {
					swapBytePairs(chunk)
				}
				select {
				case jobs <- chunkJob{index: index, plain: chunk}:
				case <-ctx.Done():
					return
				}
				index++
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return
			}
			if err != nil {
				a.recordSourceError(h, index*uint64(chunkSize), chunkSize)
				if !a.Options.WipeOnError {
					return
				}
			}
		}
	}()

	return runCompressPipeline(ctx, workers, h.Policy(), jobs, func(r chunkResult) error {
		return h.CommitPacked(r.plain, r.packed)
	})
}

func (a *Acquire) recordSourceError(h *ewf.Handle, offset uint64, chunkSize int) {
	granularity := a.Options.ErrorGranularity
	if granularity == 0 {
		granularity = uint32(chunkSize)
	}
	firstSector := uint32(offset / uint64(a.Options.Media.BytesPerSector))
	numSectors := granularity / a.Options.Media.BytesPerSector
	a.acquiryErrors = append(a.acquiryErrors, ewf.AcquiryError{FirstSector: firstSector, NumberOfSectors: numSectors})
	h.AddAcquiryError(firstSector, numSectors)
}

func chunkSizeOr(n int) int {
	if n <= 0 {
		return 32 * 1024
	}
	return n
}

// swapBytePairs performs the adjacent-byte endian swap spec.md §4.9
// names as a pre-write step for media acquired in the "wrong" byte
// order (certain optical/tape sources).
func swapBytePairs(buf []byte) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
}
