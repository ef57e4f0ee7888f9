/*
Cache invalidation notifier.

PURPOSE:
  Balances are recomputed on read, so caching is purely a UI freshness
  concern. The notifier is a version counter with fan-out: every mutation
  bumps the version, subscribers poll or listen for the bump and refetch.
  Nothing here affects correctness.
*/
package leave

import "sync"

// Notifier broadcasts a monotonically increasing cache version.
type Notifier struct {
	mu      sync.Mutex
	version uint64
	subs    map[chan uint64]struct{}
}

// NewNotifier creates an empty notifier at version 0.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan uint64]struct{})}
}

// Version returns the current cache version.
func (n *Notifier) Version() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.version
}

// Invalidate bumps the version after a mutation touching the employee's
// derived data. Slow subscribers miss intermediate versions, never the
// latest.
func (n *Notifier) Invalidate(employeeID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.version++
	for ch := range n.subs {
		select {
		case ch <- n.version:
		default:
		}
	}
}

// Subscribe returns a channel receiving version bumps. Call the returned
// cancel func to unsubscribe and close the channel.
func (n *Notifier) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}
