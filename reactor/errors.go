package reactor

import (
	"strconv"

	"github.com/brickingsoft/errors"
)

var (
	// ErrReactorAlreadyInstalled is a fatal misuse error: a goroutine tried
	// to start a second reactor while one was already running on it.
	ErrReactorAlreadyInstalled = errors.Define("reactor: already installed on this goroutine")
	// ErrNoReactor is a fatal misuse error: CurrentOrPanic found no
	// reactor installed on the calling goroutine.
	ErrNoReactor = errors.Define("reactor: no reactor installed on this goroutine")
	// ErrSubmissionQueueFull names transient submission-queue backpressure,
	// not failure. TryGetSQE reports a full ring through its ok result
	// rather than returning this error.
	ErrSubmissionQueueFull = errors.Define("reactor: submission queue full")
	// ErrShuttingDown is the result TryGetSQE settles an operation with
	// when it is submitted after Close. Operations already in flight at
	// Close are not settled with it.
	ErrShuttingDown = errors.Define("reactor: shutting down")
	// ErrUnsupportedOperation marks an Operation with no matching SQE
	// preparation, i.e. a programmer error in the syscalls package.
	ErrUnsupportedOperation = errors.Define("reactor: unsupported operation kind")
)

// IOError wraps a negative io_uring completion result into a human
// readable error carrying the syscall name and the fd it was performed
// against, per spec.md §7's "user-visible behaviour".
type IOError struct {
	Op  string
	Fd  int
	Err error
}

func (e *IOError) Error() string {
	return e.Op + ": fd " + strconv.Itoa(e.Fd) + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }
