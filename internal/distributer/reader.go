package distributer

import (
	"context"
	"log/slog"

	"github.com/flowmesh/distributer/internal/flow"
	"github.com/flowmesh/distributer/internal/store"
)

// subPageSize is the inner page size the paged reader scans in, per the
// source's own contract: sub-pages are windows inside a chunk, each
// published as one Batch.
const subPageSize = 1000

// readChunk scans the source in [offset, offset+chunkSize) using
// successive sub-pages of subPageSize rows, ordered by flow_id, and
// publishes each sub-page as one Batch onto out. A read error aborts this
// chunk only; it never touches other chunks being read concurrently.
//
// Chunking here is by fixed offset, not by a cursor on flow_id: this
// mirrors the source's own partitioning contract and assumes the table
// is quiescent for the duration of the scan epoch. A source mutated
// mid-epoch can cause rows to be missed or double-counted across chunks;
// that is accepted as a documented precondition rather than fixed here.
func readChunk(ctx context.Context, src store.PagedSource, offset, chunkSize int, out chan<- flow.Batch, logger *slog.Logger) {
	end := offset + chunkSize
	for pageOffset := offset; pageOffset < end; pageOffset += subPageSize {
		limit := subPageSize
		if remaining := end - pageOffset; remaining < limit {
			limit = remaining
		}

		batch, err := src.ReadPage(ctx, pageOffset, limit)
		if err != nil {
			logger.Error("paged read failed, aborting chunk", "offset", pageOffset, "limit", limit, "error", err)
			return
		}
		if len(batch) == 0 {
			return
		}

		select {
		case out <- batch:
		case <-ctx.Done():
			return
		}

		if len(batch) < limit {
			// Short page: the source ran out of rows before the end of
			// this chunk's range.
			return
		}
	}
}
