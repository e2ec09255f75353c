package distributer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/distributer/internal/flow"
)

// fakeSource is an in-memory PagedSource over a fixed slice of records,
// ordered by flow_id, for tests that don't need a real database.
type fakeSource struct {
	rows flow.Batch
}

func (f *fakeSource) RowCount(ctx context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeSource) ReadPage(ctx context.Context, offset, limit int) (flow.Batch, error) {
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

func makeRows(n int) flow.Batch {
	rows := make(flow.Batch, n)
	for i := 0; i < n; i++ {
		rows[i] = flow.Record{FlowID: int64(i)}
	}
	return rows
}

func TestReadChunk_EmitsSubPagesInOrder(t *testing.T) {
	src := &fakeSource{rows: makeRows(2500)}
	out := make(chan flow.Batch, 10)

	readChunk(context.Background(), src, 0, 2500, out, discardLogger())
	close(out)

	var total int
	var lastID int64 = -1
	for batch := range out {
		for _, rec := range batch {
			require.Greater(t, rec.FlowID, lastID)
			lastID = rec.FlowID
			total++
		}
	}
	require.Equal(t, 2500, total)
}

func TestReadChunk_StopsAtShortPage(t *testing.T) {
	src := &fakeSource{rows: makeRows(500)}
	out := make(chan flow.Batch, 10)

	// Request a chunk range larger than what's actually available.
	readChunk(context.Background(), src, 0, 2000, out, discardLogger())
	close(out)

	var total int
	for batch := range out {
		total += len(batch)
	}
	require.Equal(t, 500, total)
}
