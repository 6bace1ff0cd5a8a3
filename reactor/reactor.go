// Package reactor implements the single-threaded, io_uring-driven event
// loop at the heart of ringloop: it owns the ring, the ready queue, the
// timer wheel and the SQE-waiter queue, and drives every Task to
// completion. See spec.md §4.5 and SPEC_FULL.md §2/§5 for the full
// contract.
package reactor

import (
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pawelgaczynski/giouring"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/containers"
)

// logger is the package-level zerolog.Logger the reactor reports fatal
// misuse and resource-cleanup warnings through; it defaults to the
// global logger and can be pointed elsewhere via SetLogger.
var logger = log.Logger

// SetLogger overrides the logger the reactor package reports through.
func SetLogger(l zerolog.Logger) { logger = l }

// Result is the outcome of a completed Operation: the non-negative
// syscall return value (or its specialised meaning, e.g. a new fd for
// accept/open), the CQE flags, and a translated IOError when the kernel
// reported a negative result.
type Result struct {
	N     int
	Flags uint32
	Err   error
}

// promise is the UringPromise of spec.md §3: a small, address-stable
// record stored as an SQE's user-data. Its resume field is filled in by
// whichever awaitable (wait-for-completion) is suspended on it; the
// reactor's completion handler fills in result and invokes resume.
type promise struct {
	result Result
	resume func()
	ready  bool
}

type timerEntry struct {
	deadline time.Time
	resume   func()
}

func timerLess(a, b timerEntry) bool { return a.deadline.Before(b.deadline) }

var threadReactors sync.Map // map[int64]*Reactor, keyed by goroutine id

// Reactor owns one io_uring instance and drives one goroutine's worth of
// cooperative scheduling. Exactly one Reactor may be installed per
// goroutine at a time; installing a second aborts fatally, matching
// spec.md §4.5/§6.
type Reactor struct {
	ring *giouring.Ring

	ready      *containers.Ring[func()]
	timers     *containers.SortedList[timerEntry]
	sqeWaiters *containers.Ring[func()]

	liveURingTasks atomic.Int64

	installedOn int64
	cpuAffinity int
	closed      atomic.Bool
}

// New creates a Reactor and installs it on the calling goroutine. Calling
// New on a goroutine that already has a Reactor installed is fatal: the
// misuse is logged and New panics with ErrReactorAlreadyInstalled. A
// failure of io_uring setup itself is returned as an error, which the
// caller should treat as unrecoverable.
func New(opts ...Option) (*Reactor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o = o.withDefaults()

	if o.SQPoll {
		logger.Warn().Msg("reactor: SQPoll requested but not wired to a verified giouring constructor, ignoring")
	}

	gid := goroutineID()
	if _, loaded := threadReactors.Load(gid); loaded {
		logger.Error().Int64("goroutine", gid).Msg("reactor: a reactor is already installed on this goroutine, aborting")
		panic(ErrReactorAlreadyInstalled)
	}

	ring, err := giouring.CreateRing(o.Entries)
	if err != nil {
		return nil, err
	}

	r := &Reactor{
		ring:        ring,
		ready:       containers.NewRing[func()](64),
		timers:      containers.NewSortedList[timerEntry](timerLess),
		sqeWaiters:  containers.NewRing[func()](16),
		installedOn: gid,
		cpuAffinity: o.CPUAffinity,
	}
	threadReactors.Store(gid, r)
	return r, nil
}

// Close tears down the io_uring instance and uninstalls the reactor from
// its goroutine. Run must have returned before Close is called.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	threadReactors.Delete(r.installedOn)
	r.ring.QueueExit()
	return nil
}

// Current returns the Reactor installed on the calling goroutine, or nil
// if none. Awaitables use it to reach the running loop without a
// explicitly-threaded reference when one hasn't been wired through.
func Current() *Reactor {
	v, ok := threadReactors.Load(goroutineID())
	if !ok {
		return nil
	}
	return v.(*Reactor)
}

// CurrentOrPanic returns the Reactor installed on the calling goroutine,
// panicking with ErrNoReactor if none is. Callers that need a Reactor
// reference after Run has already returned (so no Runtime is in scope
// any more, but the owning goroutine is still the one that called New)
// use this instead of threading one through by hand.
func CurrentOrPanic() *Reactor {
	r := Current()
	if r == nil {
		panic(ErrNoReactor)
	}
	return r
}

// Enqueue pushes resume onto the tail of the ready queue; it will be
// invoked, in FIFO order, the next time the event loop drains the ready
// queue.
func (r *Reactor) Enqueue(resume func()) {
	r.ready.PushBack(resume)
}

// AddSleepTask registers resume to fire at deadline: immediately (onto
// the ready queue) if the deadline has already passed, otherwise into the
// timer wheel.
func (r *Reactor) AddSleepTask(deadline time.Time, resume func()) {
	if !deadline.After(time.Now()) {
		r.Enqueue(resume)
		return
	}
	r.timers.Insert(timerEntry{deadline: deadline, resume: resume})
}

// EnqueueSQEWaiter parks resume until the submission ring has a free
// slot again.
func (r *Reactor) EnqueueSQEWaiter(resume func()) {
	r.sqeWaiters.PushBack(resume)
}

// TryGetSQE attempts to prepare op against a free submission-queue slot,
// submitting immediately. It returns ok=false when the ring is full —
// callers must then suspend via EnqueueSQEWaiter and retry. On success,
// the returned Promise lets the task layer register a resume callback
// and later read the settled Result.
func (r *Reactor) TryGetSQE(op *Operation) (p *Promise, ok bool) {
	if r.closed.Load() {
		pr := &promise{result: Result{Err: ErrShuttingDown}, ready: true}
		op.promise = pr
		return (*Promise)(pr), true
	}
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return nil, false
	}
	pr := &promise{}
	op.promise = pr
	if err := op.pack(sqe, pr); err != nil {
		pr.result = Result{Err: err}
		pr.ready = true
		return (*Promise)(pr), true
	}
	if _, err := r.ring.Submit(); err != nil {
		pr.result = Result{Err: err}
		pr.ready = true
		return (*Promise)(pr), true
	}
	r.liveURingTasks.Add(1)
	return (*Promise)(pr), true
}

// Promise is the task-layer-visible handle onto an in-flight Operation:
// it exposes only what an awaitable needs (registering a resume
// callback, reading the settled result), keeping promise's other fields
// private to the reactor package. This is the Go analogue of spec.md's
// UringPromise awaited by uring_completion.
type Promise promise

// SetResume registers the closure to invoke once this operation's
// completion has been delivered. Callers must check Ready first: a
// promise that already settled synchronously (e.g. the submission itself
// failed before reaching the kernel) will never receive a completion
// event, so nothing will ever invoke a resume registered on it.
func (p *Promise) SetResume(resume func()) { (*promise)(p).resume = resume }

// Ready reports whether the result has already settled, e.g. because
// submission failed before the operation ever reached the kernel.
func (p *Promise) Ready() bool { return (*promise)(p).ready }

// Result reads the settled result; only valid once Ready, or after the
// resume registered via SetResume has fired.
func (p *Promise) Result() Result { return (*promise)(p).result }

func (r *Reactor) isEmpty() bool {
	return r.ready.Empty() && r.timers.Len() == 0 && r.sqeWaiters.Empty() && r.liveURingTasks.Load() == 0
}

// Run drives the event loop until there is no more work of any kind:
// nothing ready, no pending timers, no parked SQE waiters, and no
// in-flight kernel operations. See spec.md §4.5 for the per-iteration
// algorithm this mirrors step for step.
func (r *Reactor) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r.cpuAffinity >= 0 {
		var set unix.CPUSet
		set.Set(r.cpuAffinity)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			logger.Warn().Err(err).Int("cpu", r.cpuAffinity).Msg("reactor: failed to pin driving thread")
		}
	}

	cq := make([]*giouring.CompletionQueueEvent, 64)
	for !r.isEmpty() {
		var timeout *syscall.Timespec
		if head, ok := r.timers.Front(); ok {
			d := time.Until(head.deadline)
			if d < 0 {
				d = 0
			}
			ts := syscall.NsecToTimespec(d.Nanoseconds())
			timeout = &ts
		}

		if r.ready.Empty() {
			r.waitForCQE(timeout)
		}
		r.drainReadyCQEs(cq)
		r.moveElapsedTimers()

		for !r.ready.Empty() {
			resume, err := r.ready.PopFront()
			if err != nil {
				break
			}
			resume()
		}

		r.wakeSQEWaiters()
	}
}

func (r *Reactor) waitForCQE(timeout *syscall.Timespec) {
	if _, err := r.ring.WaitCQEs(1, timeout, nil); err != nil {
		// ETIME (deadline-bound wait elapsed) and EINTR are expected; any
		// other error is surfaced through the next drain/processing pass
		// naturally resuming on the next loop iteration.
		return
	}
}

func (r *Reactor) drainReadyCQEs(cq []*giouring.CompletionQueueEvent) {
	for {
		n := r.ring.PeekBatchCQE(cq)
		if n == 0 {
			return
		}
		for i := uint32(0); i < n; i++ {
			r.processCQE(cq[i])
			cq[i] = nil
		}
		r.ring.CQAdvance(n)
	}
}

// processCQE implements spec.md §4.5's process_cqe: decrement the
// in-flight count, translate the result, and resume the waiter inline.
// Resuming inline (rather than re-enqueuing) is safe because every
// suspension point hands control back to this goroutine via the
// wake/park handshake (see task.Runtime.Suspend) before returning here —
// so this call blocks only until that one task parks or finishes, never
// longer.
func (r *Reactor) processCQE(cqe *giouring.CompletionQueueEvent) {
	r.liveURingTasks.Add(-1)
	if cqe.UserData == 0 {
		return
	}
	p := (*promise)(ptrFromUserData(cqe.UserData))

	if cqe.Res < 0 {
		p.result = Result{Flags: cqe.Flags, Err: syscall.Errno(-cqe.Res)}
	} else {
		p.result = Result{N: int(cqe.Res), Flags: cqe.Flags}
	}
	p.ready = true
	if p.resume != nil {
		p.resume()
	}
}

func (r *Reactor) moveElapsedTimers() {
	now := time.Now()
	n := r.timers.UpperBound(func(e timerEntry) bool { return e.deadline.After(now) })
	if n == 0 {
		return
	}
	for _, e := range r.timers.EraseRange(n) {
		r.ready.PushBack(e.resume)
	}
}

func (r *Reactor) wakeSQEWaiters() {
	for !r.sqeWaiters.Empty() {
		// We don't know ring capacity directly without probing; a waiter
		// that wakes and finds the ring still full simply re-parks via
		// EnqueueSQEWaiter again, so an optimistic wake is always safe.
		resume, err := r.sqeWaiters.PopFront()
		if err != nil {
			return
		}
		resume()
	}
}

// Spawn runs body fire-and-forget on the reactor's goroutine. A panic
// escaping body is treated as fatal, per spec.md §4.5/§7: ringloop logs
// it with a stack trace and re-panics, aborting the process.
func (r *Reactor) Spawn(body func()) {
	r.Enqueue(func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().
					Interface("panic", rec).
					Bytes("stack", debugStack()).
					Msg("reactor: unhandled panic escaped a spawned task, aborting")
				panic(rec)
			}
		}()
		body()
	})
}
