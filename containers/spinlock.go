package containers

import (
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/cpu"
)

// procPause backs off briefly while spinning by yielding to the Go
// scheduler: eight runtime.Gosched calls when the CPU reports SSE2 (x86),
// a single call everywhere else. No PAUSE instruction is issued. cpu.X86
// is always readable, it's simply all-zero on non-x86 targets.
func procPause() {
	spins := 1
	if cpu.X86.HasSSE2 {
		spins = 8
	}
	for i := 0; i < spins; i++ {
		runtime.Gosched()
	}
}

// Spinlock is an atomic-flag mutual-exclusion lock that busy-waits instead
// of parking the calling goroutine. It exists for the handful of
// hot-but-brief critical sections in the runtime (MemBuf's explicit lock
// scopes, ObjectPool's slot bookkeeping) where the expected hold time is
// far shorter than a scheduler round trip.
type Spinlock struct {
	flag atomic.Bool
	held atomic.Bool
}

// Lock spins until the lock is acquired and returns a Deferred that
// releases it. Idiomatic use is `d := lock.Lock(); defer d.Release()`.
func (s *Spinlock) Lock() Deferred {
	spins := 0
	for !s.flag.CompareAndSwap(false, true) {
		spins++
		if spins&63 == 0 {
			runtime.Gosched()
		} else {
			procPause()
		}
	}
	s.held.Store(true)
	return Deferred{release: s.unlock}
}

// TryLock attempts to acquire the lock without spinning, returning
// (Deferred{}, false) on contention.
func (s *Spinlock) TryLock() (Deferred, bool) {
	if s.flag.CompareAndSwap(false, true) {
		s.held.Store(true)
		return Deferred{release: s.unlock}, true
	}
	return Deferred{}, false
}

func (s *Spinlock) unlock() {
	s.held.Store(false)
	s.flag.Store(false)
}

// Destroy must be called once a Spinlock is no longer needed. Destroying a
// held spinlock indicates a lock/unlock mismatch in the caller and is
// logged as an error rather than panicking, since the runtime's own
// shutdown paths run under defer unwinding where panicking would mask the
// original failure.
func (s *Spinlock) Destroy() {
	if s.held.Load() {
		log.Error().Msg("containers: spinlock destroyed while held")
	}
}

// Deferred is a scope guard returned by Spinlock.Lock; it releases the
// lock exactly once, on Release (or via a deferred call to it).
type Deferred struct {
	release func()
	done    bool
}

// Release runs the guarded release action. Safe to call more than once;
// calls after the first are no-ops.
func (d *Deferred) Release() {
	if d.done || d.release == nil {
		return
	}
	d.done = true
	d.release()
}
