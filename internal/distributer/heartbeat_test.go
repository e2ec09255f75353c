package distributer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/distributer/internal/registry"
	"github.com/flowmesh/distributer/internal/wire"
)

// startHealthyEndpoint runs a listener that answers every connection with
// "healthy" regardless of what it receives.
func startHealthyEndpoint(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 12)
				conn.Read(buf)
				wire.WriteHealthyResponse(conn)
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestHeartbeat_HealthyEndpointSurvivesAndSetsReady(t *testing.T) {
	reg := registry.New()
	endpoint := startHealthyEndpoint(t)
	reg.Add(endpoint)

	h, err := NewHeartbeatSupervisor(reg, discardLogger(), 50*time.Millisecond, time.Second, time.Second)
	require.NoError(t, err)
	h.sweep()

	require.Equal(t, []string{endpoint}, reg.Snapshot())
	require.True(t, reg.Ready())
}

func TestHeartbeat_DeadEndpointEvictedAndClearsReady(t *testing.T) {
	reg := registry.New()
	reg.Add("127.0.0.1:1") // nothing listens here

	h, err := NewHeartbeatSupervisor(reg, discardLogger(), 50*time.Millisecond, 200*time.Millisecond, 200*time.Millisecond)
	require.NoError(t, err)
	h.sweep()

	require.Empty(t, reg.Snapshot())
	require.False(t, reg.Ready())
}
