package containers_test

import (
	"testing"

	"github.com/ringloop/ringloop/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireDropCycle(t *testing.T) {
	p := containers.NewPool[int](8)
	handles := make([]*containers.Handle[int], 0, 1024)
	for i := 0; i < 1024; i++ {
		handles = append(handles, p.Acquire(i))
	}
	assert.Equal(t, 1024, p.UsedSize())
	for _, h := range handles {
		h.Drop()
	}
	assert.Equal(t, 0, p.UsedSize())
	assert.GreaterOrEqual(t, p.AllocatedSize(), 1024)
}

func TestPoolDisownLeavesSlotUsed(t *testing.T) {
	p := containers.NewPool[int](8)
	handles := make([]*containers.Handle[int], 0, 1024)
	for i := 0; i < 1024; i++ {
		handles = append(handles, p.Acquire(i))
	}
	for _, h := range handles {
		h.Disown()
		h.Drop() // no-op after Disown
	}
	assert.Equal(t, 1024, p.UsedSize())
}

func TestHandleDropSecondCallIsNoop(t *testing.T) {
	p1 := containers.NewPool[int](4)
	p2 := containers.NewPool[int](4)
	h := p1.Acquire(42)
	foreign := p2.Acquire(7)
	h.Drop()
	assert.NotPanics(t, func() { h.Drop() }) // second Drop is a no-op, not a double-offer
	foreign.Drop()
	require.Equal(t, 0, p1.UsedSize())
	require.Equal(t, 0, p2.UsedSize())
}

func TestPoolFind(t *testing.T) {
	p := containers.NewPool[int](4)
	p.Acquire(1)
	h2 := p.Acquire(2)
	p.Acquire(3)

	found := containers.Find(p, 2)
	require.NotNil(t, found)
	assert.Equal(t, 2, *found)

	h2.Drop()
	assert.Nil(t, containers.Find(p, 2))
}
