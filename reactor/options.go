package reactor

// Options configures a Reactor at construction time. The zero value is
// valid and picks the defaults noted on each field.
type Options struct {
	// Entries is the io_uring submission/completion queue depth. Defaults
	// to 128 when zero, per spec.md §4.5's `new(sq_depth=128)`.
	Entries uint32
	// SQPoll requests kernel-side submission-queue polling. Only the
	// plain entries-count form of giouring.CreateRing is directly
	// grounded in the teacher; SQPOLL is accepted and recorded here (and
	// is loadable from config) but New logs a warning and falls back to
	// a non-polling ring rather than fabricate an unverified flags-based
	// constructor — see DESIGN.md.
	SQPoll bool
	// SQThreadIdle is the SQPOLL kernel thread's idle timeout in
	// milliseconds, only meaningful with SQPoll.
	SQThreadIdle uint32
	// CPUAffinity pins the reactor's driving OS thread to the given CPU,
	// complementing Run's runtime.LockOSThread call. -1 (the default)
	// leaves affinity unset.
	CPUAffinity int
}

// Option mutates an Options value; functional-options style, matching the
// corpus's prevailing configuration pattern.
type Option func(*Options)

const defaultEntries = 128

// defaultOptions is the zero value plus the one default that can't be
// expressed as a Go zero value: "no CPU affinity" is -1, not 0.
func defaultOptions() Options {
	return Options{CPUAffinity: -1}
}

func (o Options) withDefaults() Options {
	if o.Entries == 0 {
		o.Entries = defaultEntries
	}
	return o
}

// WithEntries sets the submission/completion queue depth.
func WithEntries(n uint32) Option {
	return func(o *Options) { o.Entries = n }
}

// WithSQPoll requests kernel-side submission-queue polling with the
// given idle timeout in milliseconds.
func WithSQPoll(idleMs uint32) Option {
	return func(o *Options) {
		o.SQPoll = true
		o.SQThreadIdle = idleMs
	}
}

// WithCPUAffinity pins the reactor's driving thread to the given CPU
// index.
func WithCPUAffinity(cpu int) Option {
	return func(o *Options) { o.CPUAffinity = cpu }
}
