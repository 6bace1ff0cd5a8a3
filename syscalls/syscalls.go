// Package syscalls provides the one-shot io_uring-backed syscall
// awaitables of spec.md §4.8: each function arms a single Operation,
// submits it through task.Submit, and translates a negative completion
// result into a *reactor.IOError.
package syscalls

import (
	"unsafe"

	"github.com/ringloop/ringloop/reactor"
	"github.com/ringloop/ringloop/task"
)

func translate(kind reactor.Kind, fd int, res reactor.Result) (int, error) {
	if res.Err != nil {
		return 0, &reactor.IOError{Op: kind.String(), Fd: fd, Err: res.Err}
	}
	return res.N, nil
}

// Nop submits a no-op completion; used for liveness probes and to kick a
// blocked completion-queue wait.
func Nop(rt *task.Runtime) error {
	var op reactor.Operation
	op.PrepareNop()
	res := task.Submit(rt, &op)
	_, err := translate(reactor.KindNop, -1, res)
	return err
}

// Open performs an openat(AT_FDCWD, path, flags, mode) and returns the
// new file descriptor.
func Open(rt *task.Runtime, path string, flags int, mode uint32) (int, error) {
	var op reactor.Operation
	op.PrepareOpen(path, flags, mode)
	res := task.Submit(rt, &op)
	return translate(reactor.KindOpen, -1, res)
}

// Close closes fd.
func Close(rt *task.Runtime, fd int) error {
	var op reactor.Operation
	op.PrepareClose(fd)
	res := task.Submit(rt, &op)
	_, err := translate(reactor.KindClose, fd, res)
	return err
}

// Read performs a single pread(fd, buf, offset), returning the number of
// bytes actually read (which may be less than len(buf), including zero
// at EOF — callers wanting fixed-size reads loop or use iofile.File).
func Read(rt *task.Runtime, fd int, buf []byte, offset int64) (int, error) {
	var op reactor.Operation
	op.PrepareRead(fd, buf, offset)
	res := task.Submit(rt, &op)
	return translate(reactor.KindRead, fd, res)
}

// Write performs a single pwrite(fd, buf, offset), returning the number
// of bytes actually written.
func Write(rt *task.Runtime, fd int, buf []byte, offset int64) (int, error) {
	var op reactor.Operation
	op.PrepareWrite(fd, buf, offset)
	res := task.Submit(rt, &op)
	return translate(reactor.KindWrite, fd, res)
}

// Poll waits for fd to become ready for any of the events in mask,
// returning the mask of events that were actually observed.
func Poll(rt *task.Runtime, fd int, mask uint32) (uint32, error) {
	var op reactor.Operation
	op.PreparePoll(fd, mask)
	res := task.Submit(rt, &op)
	n, err := translate(reactor.KindPoll, fd, res)
	return uint32(n), err
}

// Connect connects fd to addr.
func Connect(rt *task.Runtime, fd int, addr unsafe.Pointer, addrLen uint32) error {
	var op reactor.Operation
	op.PrepareConnect(fd, addr, addrLen)
	res := task.Submit(rt, &op)
	_, err := translate(reactor.KindConnect, fd, res)
	return err
}

// Send submits a single send(fd, buf, flags).
func Send(rt *task.Runtime, fd int, buf []byte, flags int) (int, error) {
	var op reactor.Operation
	op.PrepareSend(fd, buf, flags)
	res := task.Submit(rt, &op)
	return translate(reactor.KindSend, fd, res)
}

// Recv submits a single recv(fd, buf, flags). A zero-byte, nil-error
// result signals peer-closed (EOF), matching stream-socket semantics.
func Recv(rt *task.Runtime, fd int, buf []byte, flags int) (int, error) {
	var op reactor.Operation
	op.PrepareRecv(fd, buf, flags)
	res := task.Submit(rt, &op)
	return translate(reactor.KindRecv, fd, res)
}

// Accept submits a single accept4(fd, addr, addrlen, flags), returning
// the new connected descriptor.
func Accept(rt *task.Runtime, fd int, addr unsafe.Pointer, addrLen uint32, flags int) (int, error) {
	var op reactor.Operation
	op.PrepareAccept(fd, addr, addrLen, flags)
	res := task.Submit(rt, &op)
	return translate(reactor.KindAccept, fd, res)
}

// Statx submits a single statx(dirfd, path, flags, mask), filling buf.
func Statx(rt *task.Runtime, dirfd int, path string, flags int, mask uint32, buf *[256]byte) error {
	var op reactor.Operation
	op.PrepareStatx(dirfd, path, flags, mask, buf)
	res := task.Submit(rt, &op)
	_, err := translate(reactor.KindStatx, dirfd, res)
	return err
}
