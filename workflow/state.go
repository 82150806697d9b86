// Package workflow implements the four state machines layered on top of
// package ewf's Handle: Acquire, Verify, Export, and Repair (spec.md
// §4.9 plus the supplemented correct_v1 pass). No teacher equivalent
// exists for this layer — grounded on original_source/ewftools's
// imaging_handle.c/export_handle.c/verification_handle.h contracts,
// translated from their C state-transition style into small Go state
// machines driven by a single Run method each.
package workflow

import (
	"fmt"
	"sync/atomic"
)

// State is a workflow's current lifecycle stage.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateWriting
	StateReading
	StateComparing
	StateExporting
	StateFinalizing
	StateDone
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateWriting:
		return "writing"
	case StateReading:
		return "reading"
	case StateComparing:
		return "comparing"
	case StateExporting:
		return "exporting"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AbortSignal is the cross-component abort flag spec.md §5 describes,
// polled at chunk boundaries and section boundaries by every workflow and
// safe to set concurrently from the pipeline's producer/compressor/writer
// goroutines.
type AbortSignal struct {
	flag atomic.Bool
}

func (a *AbortSignal) Set()            { a.flag.Store(true) }
func (a *AbortSignal) Requested() bool { return a.flag.Load() }
