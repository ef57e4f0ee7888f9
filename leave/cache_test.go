package leave

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_VersionBumps(t *testing.T) {
	n := NewNotifier()
	assert.Zero(t, n.Version())

	n.Invalidate("emp-1")
	n.Invalidate("emp-2")
	assert.Equal(t, uint64(2), n.Version())
}

func TestNotifier_SubscriberReceivesBump(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.Invalidate("emp-1")

	select {
	case v := <-ch:
		assert.Equal(t, uint64(1), v)
	default:
		t.Fatal("expected a buffered version bump")
	}
}

func TestNotifier_SlowSubscriberSeesLatestOnly(t *testing.T) {
	// The channel holds one pending bump; a slow reader drops the
	// intermediate versions but the Version call always has the truth.

	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.Invalidate("emp-1")
	n.Invalidate("emp-1")
	n.Invalidate("emp-1")

	v := <-ch
	assert.Equal(t, uint64(1), v, "buffered bump is the first one")
	assert.Equal(t, uint64(3), n.Version())
}

func TestNotifier_CancelClosesChannel(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()

	cancel()
	_, open := <-ch
	assert.False(t, open)

	// Cancelling twice must not panic or double-close.
	require.NotPanics(t, func() { cancel() })

	// Invalidate after cancel must not write to the closed channel.
	require.NotPanics(t, func() { n.Invalidate("emp-1") })
}

func TestNotifier_ConcurrentInvalidation(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Invalidate("emp-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), n.Version())
	select {
	case <-ch:
	default:
		t.Fatal("expected at least one pending bump")
	}
}
