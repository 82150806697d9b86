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

// ExportTarget selects what Export produces.
type ExportTarget int

const (
	// ExportToEWF re-containerizes the source into a new EWF segment set,
	// potentially with a different format/compression/GUID.
	ExportToEWF ExportTarget = iota
	// ExportToRaw streams decoded media bytes to a plain sink (a raw
	// image file or stdout).
	ExportToRaw
)

// ExportOptions configures an Export run.
type ExportOptions struct {
	Target           ExportTarget
	Media            media.Values // target geometry/compression for ExportToEWF
	Policy           chunkcodec.Policy
	SegmentFileSize  uint64
	DigestAlgorithms []digest.Algorithm
	RegenerateGUID   bool
	ProcessBufferSize int
}

// Export drives Idle → Exporting → Finalizing → Done, copying a source
// Handle's media into either a new EWF container or a raw byte sink.
// Grounded on original_source/ewftools/export_handle.c's copy-and-
// recompress loop.
type Export struct {
	State State
	Abort AbortSignal
}

// Run copies src's media into dst according to opts. For ExportToRaw, dst
// is written to directly; for ExportToEWF, dstHandle must be a freshly
// opened ModeWrite *ewf.Handle that Run configures and finalizes.
func (e *Export) Run(ctx context.Context, src *ewf.Handle, dst io.Writer, dstHandle *ewf.Handle, opts ExportOptions) error {
	e.State = StateExporting

	if opts.Target == ExportToEWF {
		if dstHandle == nil {
			return fmt.Errorf("workflow: export to EWF requires dstHandle")
		}
		mv := opts.Media
		if mv.ChunkSize() == 0 {
			mv = src.GetMediaValues()
		}
		if opts.RegenerateGUID {
			mv.SetIdentifier = media.NewSetIdentifier()
		}
		if err := dstHandle.SetMediaValues(mv, opts.Policy); err != nil {
			e.State = StateFailed
			return fmt.Errorf("workflow: export configure target: %w", err)
		}
		if opts.SegmentFileSize > 0 {
			dstHandle.SegmentFileSize(opts.SegmentFileSize)
		}
		dstHandle.SetDigestAlgorithms(opts.DigestAlgorithms...)
	}

	bufSize := opts.ProcessBufferSize
	if bufSize <= 0 {
		bufSize = int(src.GetMediaValues().ChunkSize())
	}
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		e.State = StateFailed
		return fmt.Errorf("workflow: export seek source: %w", err)
	}

	buf := make([]byte, bufSize)
	mediaSize := src.GetMediaSize()
	var offset uint64
	var writeOffset uint64

	for offset < mediaSize {
		if e.Abort.Requested() || ctx.Err() != nil {
			e.State = StateAborted
			return fmt.Errorf("workflow: %w", ewf.ErrAborted)
		}
		n, err := src.Read(buf)
		if n > 0 {
			switch opts.Target {
			case ExportToRaw:
				if _, werr := dst.Write(buf[:n]); werr != nil {
					e.State = StateFailed
					return fmt.Errorf("workflow: export write raw: %w", werr)
				}
			case ExportToEWF:
				if _, werr := dstHandle.Write(buf[:n], writeOffset); werr != nil {
					e.State = StateFailed
					return fmt.Errorf("workflow: export write target: %w", werr)
				}
				writeOffset += uint64(n)
			}
			offset += uint64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			e.State = StateFailed
			return fmt.Errorf("workflow: export read source at %d: %w", offset, err)
		}
	}

	e.State = StateFinalizing
	if opts.Target == ExportToEWF {
		if err := dstHandle.Finalize(); err != nil {
			e.State = StateFailed
			return fmt.Errorf("workflow: export finalize target: %w", err)
		}
	}
	e.State = StateDone
	return nil
}
