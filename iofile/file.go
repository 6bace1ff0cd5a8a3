// Package iofile implements File, a buffered async file handle built on
// syscalls and membuf, per spec.md §4.9.
package iofile

import (
	"runtime"

	"github.com/brickingsoft/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/membuf"
	"github.com/ringloop/ringloop/syscalls"
	"github.com/ringloop/ringloop/task"
)

// ErrShortEOF is returned by ReadExactly when the kernel reports EOF
// before n bytes were available.
var ErrShortEOF = errors.Define("iofile: short read, hit EOF before n bytes")

// MaxReadChunk bounds a single kernel read, per spec.md §4.9's "top up
// from one kernel read of up to 64 KiB".
const MaxReadChunk = 64 * 1024

// File is a buffered async file handle with independent read and write
// heads, matching spec.md §4.9.
type File struct {
	fd       int
	rdhead   int64
	wrhead   int64
	readBuf  *membuf.MemBuf
	writeBuf *membuf.MemBuf
	eof      bool
	closed   bool
}

// Open performs an async openat and wraps the resulting fd.
func Open(rt *task.Runtime, path string, flags int, mode uint32) (*File, error) {
	fd, err := syscalls.Open(rt, path, flags, mode)
	if err != nil {
		return nil, err
	}
	f := &File{
		fd:       fd,
		readBuf:  membuf.New(membuf.LittleEndian),
		writeBuf: membuf.New(membuf.LittleEndian),
	}
	runtime.SetFinalizer(f, finalizeFile)
	return f, nil
}

func finalizeFile(f *File) {
	if f.closed {
		return
	}
	if f.writeBuf.Size() > 0 {
		log.Warn().Int("fd", f.fd).Int("buffered", f.writeBuf.Size()).
			Msg("iofile: File garbage collected with buffered writes still pending, dropping them")
	}
	unix.Close(f.fd)
}

func (f *File) fillOnce(rt *task.Runtime) error {
	if f.eof {
		return nil
	}
	buf := make([]byte, MaxReadChunk)
	n, err := syscalls.Read(rt, f.fd, buf, f.rdhead)
	if err != nil {
		return err
	}
	if n == 0 {
		f.eof = true
		return nil
	}
	f.readBuf.FillFrom(buf[:n])
	f.rdhead += int64(n)
	return nil
}

// Read returns up to n bytes, serving buffered data first and topping up
// from the kernel as needed. n == -1 reads to EOF.
func (f *File) Read(rt *task.Runtime, n int) ([]byte, error) {
	if n == -1 {
		for !f.eof {
			if err := f.fillOnce(rt); err != nil {
				return nil, err
			}
		}
		return f.readBuf.Drain(), nil
	}
	for f.readBuf.Size() < n && !f.eof {
		if err := f.fillOnce(rt); err != nil {
			return nil, err
		}
	}
	want := n
	if avail := f.readBuf.Size(); avail < want {
		want = avail
	}
	return f.readBuf.ReadVector(want)
}

// ReadExactly returns exactly n bytes, or ErrShortEOF if the stream ends
// first.
func (f *File) ReadExactly(rt *task.Runtime, n int) ([]byte, error) {
	for f.readBuf.Size() < n && !f.eof {
		if err := f.fillOnce(rt); err != nil {
			return nil, err
		}
	}
	if f.readBuf.Size() < n {
		return nil, ErrShortEOF
	}
	return f.readBuf.ReadVector(n)
}

// tryFlush attempts one kernel write of whatever is currently buffered,
// putting back whatever the kernel didn't accept.
func (f *File) tryFlush(rt *task.Runtime) error {
	if f.writeBuf.Size() == 0 {
		return nil
	}
	pending := f.writeBuf.Drain()
	n, err := syscalls.Write(rt, f.fd, pending, f.wrhead)
	if err != nil {
		f.writeBuf.Write(pending)
		return err
	}
	f.wrhead += int64(n)
	if n < len(pending) {
		f.writeBuf.Write(pending[n:])
	}
	return nil
}

// Write flushes any already-buffered data, then writes data, stashing
// whatever the kernel doesn't accept into the write buffer.
func (f *File) Write(rt *task.Runtime, data []byte) error {
	if err := f.tryFlush(rt); err != nil {
		return err
	}
	if f.writeBuf.Size() > 0 {
		// Flush still incomplete; queue behind it rather than interleave.
		f.writeBuf.Write(data)
		return nil
	}
	n, err := syscalls.Write(rt, f.fd, data, f.wrhead)
	if err != nil {
		return err
	}
	f.wrhead += int64(n)
	if n < len(data) {
		f.writeBuf.Write(data[n:])
	}
	return nil
}

// Drain repeatedly flushes the write buffer, polling for writability on
// short writes, until it is empty.
func (f *File) Drain(rt *task.Runtime) error {
	for f.writeBuf.Size() > 0 {
		before := f.writeBuf.Size()
		if err := f.tryFlush(rt); err != nil {
			return err
		}
		if f.writeBuf.Size() == before {
			if _, err := syscalls.Poll(rt, f.fd, unix.POLLOUT); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close drains buffered writes, closes the fd, and marks the File
// closed. Close is idempotent.
func (f *File) Close(rt *task.Runtime) error {
	if f.closed {
		return nil
	}
	if err := f.Drain(rt); err != nil {
		return err
	}
	if err := syscalls.Close(rt, f.fd); err != nil {
		return err
	}
	f.fd = -1
	f.closed = true
	runtime.SetFinalizer(f, nil)
	return nil
}
