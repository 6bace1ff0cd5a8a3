// Package task provides the lazy, single-logical-thread coroutine model
// that stands in for the C++20 coroutines of spec.md §4.4: Task[T] is a
// lazily started unit of cooperative work, and Runtime.Suspend is the one
// suspension primitive every awaitable in this module (Sleep, Yield,
// Semaphore.Acquire, the syscalls package) is built from.
//
// A Task's body runs on its own goroutine, but never concurrently with
// whoever started or resumed it: every hand-off is a synchronous
// wake/park rendezvous, so only one goroutine is ever doing logical work
// at a time, matching the single-threaded illusion the original
// coroutine runtime provides for free.
package task

import (
	"fmt"
	"sync"

	"github.com/ringloop/ringloop/reactor"
)

// frame is the rendezvous a single Task's body suspends and resumes
// through. wake carries control into the body; the body (or its
// completion) replies on parked to hand control back out. Both channels
// are unbuffered and reused for the task's entire lifetime.
type frame struct {
	wake   chan struct{}
	parked chan struct{}
}

// Runtime is passed into every task body; it is the handle a body uses to
// reach the reactor and to suspend itself. Do not share a Runtime across
// goroutines — it belongs to exactly one Task's body.
type Runtime struct {
	Reactor *reactor.Reactor
	frame   *frame
}

// Suspend parks the calling task's body until something calls the resume
// closure handed to arm. arm is invoked synchronously, before parking, so
// it can safely register resume with a timer, a promise, a waiter queue,
// or the ready queue itself.
func (rt *Runtime) Suspend(arm func(resume func())) {
	arm(rt.resume)
	rt.frame.parked <- struct{}{}
	<-rt.frame.wake
}

// resume is the closure every suspension point hands out. Calling it
// wakes the parked body and blocks until that body parks again (at its
// next suspension point) or completes — i.e. until the single logical
// thread of control is handed back.
func (rt *Runtime) resume() {
	rt.frame.wake <- struct{}{}
	<-rt.frame.parked
}

// Task is a lazily started, single-shot coroutine body that produces a
// (T, error) result, per spec.md §4.4's lazy-start and exception-
// propagation requirements — exceptions are represented idiomatically as
// a returned error rather than a panic/rethrow, reserving panics for
// genuine invariant violations elsewhere in this module.
type Task[T any] struct {
	reactor *reactor.Reactor
	body    func(rt *Runtime) (T, error)
	frame   *frame

	once sync.Once
	done chan struct{}

	mu           sync.Mutex
	continuation func()
	result       T
	err          error
}

// New creates a Task bound to r, without starting it. The body does not
// run, and no goroutine is spawned, until the first Await (or Spawn).
// This mirrors spec.md's requirement that a Task destroyed without ever
// being awaited must never have run its body.
func New[T any](r *reactor.Reactor, body func(rt *Runtime) (T, error)) *Task[T] {
	return &Task[T]{
		reactor: r,
		body:    body,
		frame:   &frame{wake: make(chan struct{}), parked: make(chan struct{})},
		done:    make(chan struct{}),
	}
}

// Done reports whether the task has produced a result.
func (t *Task[T]) Done() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Task[T]) runBody(rt *Runtime) (result T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task: panic propagated from body: %v", rec)
		}
	}()
	return t.body(rt)
}

// ensureStarted spawns the body's goroutine on first call and blocks
// until it either suspends for the first time or runs to completion —
// i.e. starting a task is itself a resume, issued from whichever frame
// (or the reactor's own driving goroutine) calls it.
func (t *Task[T]) ensureStarted() {
	t.once.Do(func() {
		rt := &Runtime{Reactor: t.reactor, frame: t.frame}
		go func() {
			result, err := t.runBody(rt)

			t.mu.Lock()
			t.result, t.err = result, err
			close(t.done)
			cont := t.continuation
			t.continuation = nil
			t.mu.Unlock()

			if cont != nil {
				t.reactor.Enqueue(cont)
			}
			t.frame.parked <- struct{}{}
		}()
		<-t.frame.parked
	})
}

// Await starts the task if necessary, suspends the calling frame until it
// completes, and returns its result. Awaiting an already-completed task
// never suspends.
func (t *Task[T]) Await(rt *Runtime) (T, error) {
	t.ensureStarted()

	if t.Done() {
		return t.result, t.err
	}

	rt.Suspend(func(resume func()) {
		t.mu.Lock()
		select {
		case <-t.done:
			t.mu.Unlock()
			t.reactor.Enqueue(resume)
			return
		default:
		}
		t.continuation = resume
		t.mu.Unlock()
	})
	return t.result, t.err
}

// Spawn schedules body to start on r's next ready-queue drain and returns
// its Task. An error returned by body, or a panic inside it (which
// runBody converts into an error), is stored on the Task like any other
// result: it does not abort the process, and only a caller that Awaits
// the returned Task sees it.
func Spawn[T any](r *reactor.Reactor, body func(rt *Runtime) (T, error)) *Task[T] {
	t := New(r, body)
	r.Spawn(t.ensureStarted)
	return t
}
