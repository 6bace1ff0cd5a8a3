package containers_test

import (
	"testing"

	"github.com/ringloop/ringloop/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPushPopOrder(t *testing.T) {
	r := containers.NewRing[int](0)
	for i := 0; i < 5; i++ {
		r.PushBack(i)
	}
	require.Equal(t, 5, r.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, r.ToSlice())

	front, err := r.Front()
	require.NoError(t, err)
	assert.Equal(t, 0, front)

	back, err := r.Back()
	require.NoError(t, err)
	assert.Equal(t, 4, back)

	for i := 0; i < 5; i++ {
		v, err := r.PopFront()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, r.Len())
	_, err = r.PopFront()
	assert.ErrorIs(t, err, containers.ErrEmpty)
}

func TestRingGrowLinearisesFromZero(t *testing.T) {
	r := containers.NewRing[int](2)
	r.PushBack(1)
	r.PushBack(2)
	// force a wrap: pop one, push two more so the grow must linearise.
	_, _ = r.PopFront()
	r.PushBack(3)
	r.PushBack(4) // triggers grow while head != 0

	assert.Equal(t, []int{2, 3, 4}, r.ToSlice())
	r.Linearize()
	assert.Equal(t, 2, r.Data()[0])
	assert.Equal(t, 3, r.Data()[1])
	assert.Equal(t, 4, r.Data()[2])
}

func TestRingPushFront(t *testing.T) {
	r := containers.NewRing[int](0)
	r.PushBack(2)
	r.PushFront(1)
	r.PushFront(0)
	assert.Equal(t, []int{0, 1, 2}, r.ToSlice())
}

func TestRingResizeDownKeepsPrefix(t *testing.T) {
	r := containers.NewRing[int](0)
	for i := 0; i < 6; i++ {
		r.PushBack(i)
	}
	r.Resize(3)
	assert.Equal(t, []int{0, 1, 2}, r.ToSlice())
}

func TestRingAtBoundsChecked(t *testing.T) {
	r := containers.NewRing[int](0)
	r.PushBack(10)
	_, err := r.At(1)
	assert.ErrorIs(t, err, containers.ErrOutOfRange)
	v, err := r.At(0)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestRingExceedsCapacityOnce(t *testing.T) {
	r := containers.NewRing[int](4)
	for i := 0; i < 5; i++ {
		r.PushBack(i)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, r.ToSlice())
	assert.Equal(t, 5, r.Len())
}
