package distributer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/distributer/internal/registry"
)

func TestDriverLoop_RunEpochDispatchesAllRows(t *testing.T) {
	addr, received := startChunkSink(t)

	reg := registry.New()
	reg.Add(addr)
	reg.SetReady(true)

	src := &fakeSource{rows: makeRows(50)}
	dispatcher := NewDispatcher(reg, discardLogger())

	d, err := NewDriverLoop(reg, src, dispatcher, discardLogger(), "@every 1h")
	require.NoError(t, err)

	require.NoError(t, d.runEpoch(context.Background()))

	total := 0
	timeout := time.After(time.Second)
	for total < 50 {
		select {
		case b := <-received:
			total += len(b)
		case <-timeout:
			t.Fatalf("timed out waiting for rows, got %d/50", total)
		}
	}
}

func TestDriverLoop_RunEpochSkipsWhenSourceEmpty(t *testing.T) {
	reg := registry.New()
	reg.SetReady(true)
	src := &fakeSource{}
	dispatcher := NewDispatcher(reg, discardLogger())

	d, err := NewDriverLoop(reg, src, dispatcher, discardLogger(), "@every 1h")
	require.NoError(t, err)
	require.NoError(t, d.runEpoch(context.Background()))
}

func TestDriverLoop_TickSkippedWhenNotReady(t *testing.T) {
	reg := registry.New() // not ready
	src := &fakeSource{rows: makeRows(10)}
	dispatcher := NewDispatcher(reg, discardLogger())

	d, err := NewDriverLoop(reg, src, dispatcher, discardLogger(), "@every 1h")
	require.NoError(t, err)

	d.tick()
	require.False(t, d.epochBusy.Load())
}
