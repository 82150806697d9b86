package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/sigsegv-forensics/ewfkit/chunkindex"
	"github.com/sigsegv-forensics/ewfkit/filepool"
	"github.com/sigsegv-forensics/ewfkit/section"
	"github.com/sigsegv-forensics/ewfkit/segment"
)

// RepairOptions configures a Repair run.
type RepairOptions struct {
	BasePath  string
	Kind      segment.Kind
	Version   int
	Lowercase bool
}

// RepairReport summarizes one Repair run.
type RepairReport struct {
	TablesRepaired   int
	StillCorrupted   []uint64 // chunk indices neither table nor table2 could resolve cleanly
}

// Repair is the fourth workflow alongside Acquire/Verify/Export: the
// correct_v1 pass (spec.md §9, supplemented from
// original_source/libewf/libewf_chunk_table.c's table/table2
// reconciliation). It walks every v1 segment file's table/table2 pairs,
// and where the primary `table` section's entry checksum is invalid but
// `table2`'s is valid, rewrites the primary payload in place from the
// backup — never touching chunks already flagged IsDelta.
type Repair struct {
	State State
	Abort AbortSignal
}

// Run performs the repair pass. version must be 1; v2 containers do not
// carry a table2 backup to repair from.
func (r *Repair) Run(ctx context.Context, opts RepairOptions) (RepairReport, error) {
	r.State = StateReading
	if opts.Version != 1 {
		r.State = StateFailed
		return RepairReport{}, fmt.Errorf("workflow: repair only applies to v1 containers")
	}

	pool := filepool.New(8)
	table, err := segment.OpenForRead(pool, opts.BasePath, opts.Kind, opts.Version, opts.Lowercase)
	if err != nil {
		r.State = StateFailed
		return RepairReport{}, fmt.Errorf("workflow: repair open: %w", err)
	}
	defer pool.CloseAll()

	var report RepairReport
	var chunkCursor uint64

	for _, f := range table.Files() {
		if ctx.Err() != nil || r.Abort.Requested() {
			r.State = StateAborted
			return report, fmt.Errorf("workflow: repair aborted")
		}

		tableDescs := f.Sections.FindAll(section.TagTable)
		table2Descs := f.Sections.FindAll(section.TagTable2)

		for i, td := range tableDescs {
			primaryEntries, primaryErr := readEntries(pool, f.PoolEntry, td)

			var backupEntries []section.RawEntryV1
			var backupErr error = errNoBackup
			var backupPayload []byte
			if i < len(table2Descs) {
				backupEntries, backupErr = readEntries(pool, f.PoolEntry, table2Descs[i])
				if backupErr == nil {
					backupPayload = encodeEntriesPayload(backupEntries)
				}
			}

			if primaryErr != nil && backupErr == nil {
				// f's pool entry was opened read-only by segment.OpenForRead;
				// repair the file through a fresh read-write entry on the
				// same path rather than reopening the whole table.
				rwIdx := pool.Open(f.Path, filepool.ModeReadWrite)
				err := section.WriteAtPayload(pool, rwIdx, td, backupPayload)
				pool.Close(rwIdx)
				if err != nil {
					r.State = StateFailed
					return report, fmt.Errorf("workflow: repair rewrite table in %s: %w", f.Path, err)
				}
				report.TablesRepaired++
				primaryEntries = backupEntries
				primaryErr = nil
			}

			if primaryErr != nil {
				r.State = StateFailed
				return report, fmt.Errorf("workflow: repair: %s table and table2 both unusable: %w", f.Path, primaryErr)
			}

			baseOffset := td.PayloadOffset()
			if sd, ok := f.Sections.Find(section.TagSectors); ok {
				baseOffset = sd.PayloadOffset()
			}
			primary, err := chunkindex.FillV1(f.PoolEntry, chunkCursor, baseOffset, primaryEntries, td.NextOffset, false)
			if err != nil {
				r.State = StateFailed
				return report, fmt.Errorf("workflow: repair: refill %s: %w", f.Path, err)
			}
			if backupEntries != nil {
				backup, err := chunkindex.FillV1(f.PoolEntry, chunkCursor, baseOffset, backupEntries, td.NextOffset, false)
				if err == nil {
					primary = chunkindex.CorrectV1(primary, backup)
				}
			}
			report.StillCorrupted = append(report.StillCorrupted, chunkindex.StillCorrupted(primary)...)
			chunkCursor += uint64(len(primary.Entries))
		}
	}

	r.State = StateDone
	return report, nil
}

var errNoBackup = errors.New("workflow: no table2 section for this table")

func readEntries(pool *filepool.Pool, idx int, d section.Descriptor) ([]section.RawEntryV1, error) {
	payload, err := section.ReadPayload(pool, idx, d)
	if err != nil {
		return nil, err
	}
	hdr, err := section.DecodeTableHeaderV1(payload)
	if err != nil {
		return nil, err
	}
	return section.DecodeTableEntriesV1(payload[24:], hdr.NumberOfEntries)
}

func encodeEntriesPayload(entries []section.RawEntryV1) []byte {
	hdr := section.TableHeaderV1{NumberOfEntries: uint32(len(entries))}
	return append(section.EncodeTableHeaderV1(hdr), section.EncodeTableEntriesV1(entries)...)
}
