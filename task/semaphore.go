package task

import "github.com/ringloop/ringloop/containers"

// Semaphore is a cooperative counting semaphore: Acquire suspends the
// calling task when no permit is available, and Release wakes the
// longest-waiting task in FIFO order, per spec.md §4.7. Because only one
// task's body ever runs at a time (see Runtime.Suspend), permits and the
// waiter queue need no locking of their own.
type Semaphore struct {
	permits int
	waiters containers.Ring[func()]
}

// NewSemaphore creates a semaphore with the given number of immediately
// available permits.
func NewSemaphore(initial int) *Semaphore {
	return &Semaphore{permits: initial, waiters: *containers.NewRing[func()](4)}
}

// Acquire takes one permit, suspending the calling task until one is
// available. Even when a permit is immediately free, Acquire still
// suspends once — decrementing and re-enqueueing the caller onto the
// ready queue rather than returning synchronously — so a task that finds
// a free permit doesn't cut ahead of tasks already sitting in the ready
// queue, per spec.md §4.7.
func (s *Semaphore) Acquire(rt *Runtime) {
	if s.permits > 0 {
		s.permits--
		rt.Suspend(func(resume func()) {
			rt.Reactor.Enqueue(resume)
		})
		return
	}
	rt.Suspend(func(resume func()) {
		s.waiters.PushBack(resume)
	})
}

// Release hands the permit directly to the longest-waiting task, if any,
// or returns it to the pool otherwise. A direct hand-off (rather than
// incrementing then immediately waking someone to decrement) avoids a
// spurious window where a third task could steal a permit meant for an
// already-chosen waiter.
func (s *Semaphore) Release() {
	if resume, err := s.waiters.PopFront(); err == nil {
		resume()
		return
	}
	s.permits++
}

// Available reports the number of permits currently unclaimed.
func (s *Semaphore) Available() int { return s.permits }
