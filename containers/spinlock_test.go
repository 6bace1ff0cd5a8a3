package containers_test

import (
	"sync"
	"testing"

	"github.com/ringloop/ringloop/containers"
	"github.com/stretchr/testify/assert"
)

func TestSpinlockMutualExclusion(t *testing.T) {
	var lock containers.Spinlock
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := lock.Lock()
			counter++
			d.Release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestSpinlockTryLock(t *testing.T) {
	var lock containers.Spinlock
	d, ok := lock.TryLock()
	assert.True(t, ok)
	_, ok = lock.TryLock()
	assert.False(t, ok)
	d.Release()
	d2, ok := lock.TryLock()
	assert.True(t, ok)
	d2.Release()
}

func TestDeferredReleaseIsIdempotent(t *testing.T) {
	var lock containers.Spinlock
	d := lock.Lock()
	d.Release()
	assert.NotPanics(t, func() { d.Release() })
}
