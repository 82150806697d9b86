package workflow

import (
	"context"

	"github.com/sigsegv-forensics/ewfkit/chunkcodec"
	"golang.org/x/sync/errgroup"
)

// chunkJob is one chunk's plain bytes awaiting compression, tagged with
// its position in source order so the reorder buffer can restore it.
type chunkJob struct {
	index uint64
	plain []byte
}

type chunkResult struct {
	index  uint64
	plain  []byte
	packed chunkcodec.Packed
}

// runCompressPipeline is spec.md §5's optional multi-threaded producer/
// compressor/reorder-buffer pipeline: jobs arrive on in (already read
// from the source device in order), are fanned out across workerCount
// compressor goroutines, and sink receives results back in strict
// chunk-index order via an in-memory reorder buffer. Cancellation of ctx
// (or a worker's error) stops every stage via errgroup.
func runCompressPipeline(ctx context.Context, workerCount int, policy chunkcodec.Policy, in <-chan chunkJob, sink func(chunkResult) error) error {
	if workerCount < 1 {
		workerCount = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	results := make(chan chunkResult, workerCount*2)

	for w := 0; w < workerCount; w++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job, ok := <-in:
					if !ok {
						return nil
					}
					packed, err := chunkcodec.Pack(job.plain, policy)
					if err != nil {
						return err
					}
					select {
					case results <- chunkResult{index: job.index, plain: job.plain, packed: packed}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		})
	}

	go func() {
		g.Wait()
		close(results)
	}()

	pending := make(map[uint64]chunkResult)
	var next uint64
	var sinkErr error
	for r := range results {
		pending[r.index] = r
		for {
			rr, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if sinkErr == nil {
				sinkErr = sink(rr)
			}
			next++
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return sinkErr
}
