package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdd_Idempotent(t *testing.T) {
	r := New()
	r.Add("10.0.0.1:7001")
	r.Add("10.0.0.1:7001")
	require.Equal(t, []string{"10.0.0.1:7001"}, r.Snapshot())
}

func TestRemove_MissingIgnored(t *testing.T) {
	r := New()
	r.Add("10.0.0.1:7001")
	r.Remove("10.0.0.2:9999")
	require.Equal(t, []string{"10.0.0.1:7001"}, r.Snapshot())
}

func TestNext_RoundRobinFairness(t *testing.T) {
	r := New()
	r.Add("A")
	r.Add("B")
	r.Add("C")

	var got []string
	for i := 0; i < 6; i++ {
		ep, err := r.Next()
		require.NoError(t, err)
		got = append(got, ep)
	}
	require.Equal(t, []string{"A", "B", "C", "A", "B", "C"}, got)
}

func TestNext_EmptyFailsWithoutAdvancing(t *testing.T) {
	r := New()
	_, err := r.Next()
	require.ErrorIs(t, err, ErrEmpty)
	_, err = r.Next()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestNext_CursorClampedAfterEviction(t *testing.T) {
	r := New()
	r.Add("A")
	r.Add("B")
	r.Add("C")

	// Advance the cursor to point at "C".
	_, _ = r.Next()
	_, _ = r.Next()

	r.Remove("C")
	r.Remove("B")

	ep, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "A", ep)
}

func TestRemove_OnlyMatchingEndpointEvicted(t *testing.T) {
	// A single host running multiple processors must not lose every
	// endpoint when one of them disconnects.
	r := New()
	r.Add("10.0.0.1:7001")
	r.Add("10.0.0.1:7002")
	r.Add("10.0.0.2:7001")

	r.Remove("10.0.0.1:7001")
	require.Equal(t, []string{"10.0.0.1:7002", "10.0.0.2:7001"}, r.Snapshot())
}

func TestReadyGate(t *testing.T) {
	r := New()
	require.False(t, r.Ready())
	r.SetReady(true)
	require.True(t, r.Ready())
	r.SetReady(false)
	require.False(t, r.Ready())
}

func TestRemoveMany(t *testing.T) {
	r := New()
	r.Add("A")
	r.Add("B")
	r.Add("C")
	r.RemoveMany(map[string]struct{}{"A": {}, "C": {}, "Z": {}})
	require.Equal(t, []string{"B"}, r.Snapshot())
}
