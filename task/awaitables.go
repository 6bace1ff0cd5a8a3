package task

import "time"

// Yield suspends the calling task once, re-enqueueing it at the back of
// the ready queue so other ready work gets a turn first, per spec.md
// §4.4's yield awaitable.
func Yield(rt *Runtime) {
	rt.Suspend(func(resume func()) {
		rt.Reactor.Enqueue(resume)
	})
}

// SleepUntil suspends the calling task until the wall-clock deadline.
// Deadlines already in the past resume on the very next ready-queue
// drain, matching reactor.Reactor.AddSleepTask.
func SleepUntil(rt *Runtime, deadline time.Time) {
	rt.Suspend(func(resume func()) {
		rt.Reactor.AddSleepTask(deadline, resume)
	})
}

// SleepFor suspends the calling task for d, measured from the moment
// SleepFor is called (not from when the reactor gets around to scheduling
// it), matching spec.md §4.4's sleep_for.
func SleepFor(rt *Runtime, d time.Duration) {
	SleepUntil(rt, time.Now().Add(d))
}
