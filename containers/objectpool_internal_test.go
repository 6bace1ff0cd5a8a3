package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPoolOfferUnknownHandlePanics exercises offer's owned-block check
// directly: a Handle minted by one Pool is never reachable through
// another Pool's public API (Handle.pool always points back at its own
// Acquire-ing Pool), so the only way to reach the "never returned by
// acquire" branch is to call the unexported offer method across pools
// from within the package itself.
func TestPoolOfferUnknownHandlePanics(t *testing.T) {
	p1 := NewPool[int](4)
	p2 := NewPool[int](4)
	h := p1.Acquire(42)

	assert.PanicsWithValue(t, ErrInvariant, func() { p2.offer(h) })
}

// TestPoolOfferAlreadyFreeSlotPanics exercises offer's used-bitmap check:
// offering the same slot twice without an intervening Acquire disagrees
// with the bookkeeping and must panic rather than silently double-free.
func TestPoolOfferAlreadyFreeSlotPanics(t *testing.T) {
	p := NewPool[int](4)
	h := p.Acquire(1)

	p.offer(h)
	assert.PanicsWithValue(t, ErrInvariant, func() { p.offer(h) })
}
