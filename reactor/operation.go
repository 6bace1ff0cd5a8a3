package reactor

import (
	"syscall"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

// Kind identifies which io_uring opcode an Operation has been prepared
// for; it doubles as the syscall name reported in IOError.
type Kind uint8

const (
	KindNop Kind = iota
	KindOpen
	KindClose
	KindRead
	KindWrite
	KindPoll
	KindConnect
	KindSend
	KindRecv
	KindAccept
	KindStatx
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindNop:
		return "nop"
	case KindOpen:
		return "open"
	case KindClose:
		return "close"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindPoll:
		return "poll"
	case KindConnect:
		return "connect"
	case KindSend:
		return "send"
	case KindRecv:
		return "recv"
	case KindAccept:
		return "accept"
	case KindStatx:
		return "statx"
	case KindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Operation is a single one-shot io_uring submission: the caller fills in
// the fields relevant to Kind, hands it to Reactor.TryGetSQE (via
// task.Submit), then awaits its promise. The SQE's user-data is the
// address of that promise, and pack hands the kernel pointers into the
// Operation's own fields (the accept address length, the path buffer), so
// ringloop always holds Operations behind a pointer that stays live until
// the completion arrives.
type Operation struct {
	Kind Kind

	fd    int
	buf   []byte
	off   int64
	flags int

	// open
	path string
	mode uint32

	// poll
	pollMask uint32

	// connect / accept
	sockaddr unsafe.Pointer
	addrLen  uint32

	// statx
	statxMask uint32
	statxBuf  *unix_Statx

	// pathBuf roots the NUL-terminated byte buffer backing whichever
	// []byte was handed to PrepareOpenat/PrepareStatx, keeping it
	// reachable until the kernel has asynchronously read it — without
	// this field the GC is free to collect it as soon as pack returns.
	pathBuf []byte

	promise *promise
}

// unix_Statx is a raw buffer the size of unix.Statx_t; pack reinterprets
// it as *unix.Statx_t for the kernel to fill. Neither this package nor
// the syscalls package decodes it.
type unix_Statx = [256]byte

// PrepareNop configures a no-op submission, used to probe liveness and to
// wake a blocked completion-queue wait.
func (op *Operation) PrepareNop() { op.Kind = KindNop }

// PrepareOpen configures an openat(AT_FDCWD, path, flags, mode) submission.
func (op *Operation) PrepareOpen(path string, flags int, mode uint32) {
	op.Kind = KindOpen
	op.fd = unix.AT_FDCWD
	op.path = path
	op.flags = flags
	op.mode = mode
}

// PrepareClose configures a close(fd) submission.
func (op *Operation) PrepareClose(fd int) {
	op.Kind = KindClose
	op.fd = fd
}

// PrepareRead configures a pread(fd, buf, offset) submission.
func (op *Operation) PrepareRead(fd int, buf []byte, offset int64) {
	op.Kind = KindRead
	op.fd = fd
	op.buf = buf
	op.off = offset
}

// PrepareWrite configures a pwrite(fd, buf, offset) submission.
func (op *Operation) PrepareWrite(fd int, buf []byte, offset int64) {
	op.Kind = KindWrite
	op.fd = fd
	op.buf = buf
	op.off = offset
}

// PreparePoll configures a poll_add(fd, mask) submission.
func (op *Operation) PreparePoll(fd int, mask uint32) {
	op.Kind = KindPoll
	op.fd = fd
	op.pollMask = mask
}

// PrepareConnect configures a connect(fd, addr) submission.
func (op *Operation) PrepareConnect(fd int, addr unsafe.Pointer, addrLen uint32) {
	op.Kind = KindConnect
	op.fd = fd
	op.sockaddr = addr
	op.addrLen = addrLen
}

// PrepareSend configures a send(fd, buf, flags) submission.
func (op *Operation) PrepareSend(fd int, buf []byte, flags int) {
	op.Kind = KindSend
	op.fd = fd
	op.buf = buf
	op.flags = flags
}

// PrepareRecv configures a recv(fd, buf, flags) submission.
func (op *Operation) PrepareRecv(fd int, buf []byte, flags int) {
	op.Kind = KindRecv
	op.fd = fd
	op.buf = buf
	op.flags = flags
}

// PrepareAccept configures an accept4(fd, addr, addrlen, flags) submission.
func (op *Operation) PrepareAccept(fd int, addr unsafe.Pointer, addrLen uint32, flags int) {
	op.Kind = KindAccept
	op.fd = fd
	op.sockaddr = addr
	op.addrLen = addrLen
	op.flags = flags
}

// PrepareStatx configures a statx(dirfd, path, flags, mask) submission.
func (op *Operation) PrepareStatx(dirfd int, path string, flags int, mask uint32, buf *unix_Statx) {
	op.Kind = KindStatx
	op.fd = dirfd
	op.path = path
	op.flags = flags
	op.statxMask = mask
	op.statxBuf = buf
}

func (op *Operation) reset() {
	*op = Operation{}
}

// pack writes this Operation's configuration into a freshly obtained SQE
// and stamps the promise pointer as user-data, so the completion handler
// can find its way back here.
func (op *Operation) pack(sqe *giouring.SubmissionQueueEntry, p *promise) error {
	switch op.Kind {
	case KindNop:
		sqe.PrepareNop()
	case KindOpen:
		pathBytes := append([]byte(op.path), 0)
		op.pathBuf = pathBytes
		sqe.PrepareOpenat(op.fd, pathBytes, int(op.flags), op.mode)
	case KindClose:
		sqe.PrepareClose(op.fd)
	case KindRead:
		var base uintptr
		if len(op.buf) > 0 {
			base = uintptr(unsafe.Pointer(&op.buf[0]))
		}
		sqe.PrepareRead(op.fd, base, uint32(len(op.buf)), uint64(op.off))
	case KindWrite:
		var base uintptr
		if len(op.buf) > 0 {
			base = uintptr(unsafe.Pointer(&op.buf[0]))
		}
		sqe.PrepareWrite(op.fd, base, uint32(len(op.buf)), uint64(op.off))
	case KindPoll:
		sqe.PreparePollAdd(op.fd, op.pollMask)
	case KindConnect:
		sqe.PrepareConnect(op.fd, (*syscall.Sockaddr)(op.sockaddr), uint64(op.addrLen))
	case KindSend:
		var base uintptr
		if len(op.buf) > 0 {
			base = uintptr(unsafe.Pointer(&op.buf[0]))
		}
		sqe.PrepareSend(op.fd, base, uint32(len(op.buf)), int(op.flags))
	case KindRecv:
		var base uintptr
		if len(op.buf) > 0 {
			base = uintptr(unsafe.Pointer(&op.buf[0]))
		}
		sqe.PrepareRecv(op.fd, base, uint32(len(op.buf)), int(op.flags))
	case KindAccept:
		sqe.PrepareAccept(op.fd, uintptr(op.sockaddr), uint64(uintptr(unsafe.Pointer(&op.addrLen))), uint32(op.flags))
	case KindStatx:
		pathBytes := append([]byte(op.path), 0)
		op.pathBuf = pathBytes
		sqe.PrepareStatx(op.fd, pathBytes, int(op.flags), op.statxMask, (*unix.Statx_t)(unsafe.Pointer(op.statxBuf)))
	default:
		return ErrUnsupportedOperation
	}
	sqe.SetData(unsafe.Pointer(p))
	return nil
}
