package distributer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/distributer/internal/flow"
	"github.com/flowmesh/distributer/internal/registry"
	"github.com/flowmesh/distributer/internal/wire"
)

func startChunkSink(t *testing.T) (addr string, received chan flow.Batch) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	received = make(chan flow.Batch, 16)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				kind, err := wire.ReadFrameKind(conn)
				if err != nil || kind != wire.FrameChunk {
					return
				}
				batch, err := wire.ReadChunkBody(conn)
				if err != nil {
					return
				}
				received <- batch
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String(), received
}

func TestDispatcher_ProduceSendsChunkToRegisteredEndpoint(t *testing.T) {
	addr, received := startChunkSink(t)

	reg := registry.New()
	reg.Add(addr)
	d := NewDispatcher(reg, discardLogger())

	batch := flow.Batch{{FlowID: 1}}
	require.NoError(t, d.Produce(batch))

	got := <-received
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].FlowID)
}

func TestDispatcher_ProduceFailsAndClearsReadyWhenEmpty(t *testing.T) {
	reg := registry.New()
	reg.SetReady(true)
	d := NewDispatcher(reg, discardLogger())

	err := d.Produce(flow.Batch{{FlowID: 1}})
	require.ErrorIs(t, err, ErrNoProcessors)
	require.False(t, reg.Ready())
}

func TestDispatcher_RoundRobinAcrossThreeEndpoints(t *testing.T) {
	addrA, recvA := startChunkSink(t)
	addrB, recvB := startChunkSink(t)
	addrC, recvC := startChunkSink(t)

	reg := registry.New()
	reg.Add(addrA)
	reg.Add(addrB)
	reg.Add(addrC)
	d := NewDispatcher(reg, discardLogger())

	for i := 0; i < 6; i++ {
		require.NoError(t, d.Produce(flow.Batch{{FlowID: int64(i)}}))
	}

	require.Equal(t, 2, countWithin(t, recvA))
	require.Equal(t, 2, countWithin(t, recvB))
	require.Equal(t, 2, countWithin(t, recvC))
}

// countWithin counts how many batches arrive on ch within a short window,
// tolerating the asynchronous server-side processing of each dispatch.
func countWithin(t *testing.T, ch chan flow.Batch) int {
	t.Helper()
	n := 0
	timeout := time.After(time.Second)
	for {
		select {
		case <-ch:
			n++
		case <-timeout:
			return n
		default:
			if n >= 2 {
				return n
			}
		}
	}
}
