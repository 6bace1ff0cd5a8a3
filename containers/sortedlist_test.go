package containers_test

import (
	"sort"
	"testing"

	"github.com/ringloop/ringloop/containers"
	"github.com/stretchr/testify/assert"
)

func intLess(a, b int) bool { return a < b }

func TestSortedListInsertKeepsOrder(t *testing.T) {
	l := containers.NewSortedList[int](intLess)
	for _, v := range []int{5, 1, 4, 2, 3} {
		l.Insert(v)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, l.ToSlice())
}

func TestSortedListFromBulk(t *testing.T) {
	in := []int{9, 3, 7, 1, 5}
	l := containers.NewSortedListFrom(in, intLess)
	want := append([]int(nil), in...)
	sort.Ints(want)
	assert.Equal(t, want, l.ToSlice())
}

func TestSortedListEraseRange(t *testing.T) {
	l := containers.NewSortedList[int](intLess)
	for _, v := range []int{3, 1, 2, 5, 4} {
		l.Insert(v)
	}
	removed := l.EraseRange(2)
	assert.Equal(t, []int{1, 2}, removed)
	assert.Equal(t, []int{3, 4, 5}, l.ToSlice())
}

func TestSortedListUpperBound(t *testing.T) {
	l := containers.NewSortedList[int](intLess)
	for _, v := range []int{10, 20, 30} {
		l.Insert(v)
	}
	n := l.UpperBound(func(v int) bool { return v > 20 })
	assert.Equal(t, 2, n)
}
