// Package iosocket implements async Socket and SocketManager, per
// spec.md §4.10. Socket creation itself is a plain (non-io_uring)
// socket(2) call, matching the teacher's own split between regular
// socket/bind/listen setup calls and io_uring-backed connect/accept/
// send/recv — ringloop has no "nop/open/close/read/write/poll/connect/
// send/recv/accept/statx" opcode for socket(2) to ride, so this one call
// is a direct unix.Socket rather than a submitted Operation.
package iosocket

import (
	"encoding/binary"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/syscalls"
	"github.com/ringloop/ringloop/task"
)

// Mode is a Socket's lifecycle state.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeListening
	ModeConnected
)

var (
	// ErrWrongMode is an invariant error: an operation was attempted
	// against a Socket in a mode that doesn't support it.
	ErrWrongMode = errors.Define("iosocket: socket is not in the required mode")
)

// Socket wraps a raw fd with its lifecycle mode. Invariant: fd is closed
// and Mode reset to ModeNone before the slot backing it is returned to a
// SocketManager's pool.
type Socket struct {
	fd   int
	mode Mode
}

// BuildIPv4 packs four octets into a network-order 32-bit IPv4 address,
// with a as the high octet, per spec.md §6.
func BuildIPv4(a, b, c, d byte) uint32 {
	return binary.BigEndian.Uint32([]byte{a, b, c, d})
}

func newRawTCP() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
}

func newRawUDP() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
}

func sockaddrIn4(addr uint32, port uint16) *unix.RawSockaddrInet4 {
	sa := &unix.RawSockaddrInet4{Family: unix.AF_INET}
	sa.Port = port<<8 | port>>8
	binary.BigEndian.PutUint32(sa.Addr[:], addr)
	return sa
}

// Fd returns the raw file descriptor.
func (s *Socket) Fd() int { return s.fd }

// ModeOf reports the socket's current lifecycle state.
func (s *Socket) ModeOf() Mode { return s.mode }

// ConnectAsync connects an unconnected socket to addr:port.
func (s *Socket) ConnectAsync(rt *task.Runtime, addr uint32, port uint16) error {
	sa := sockaddrIn4(addr, port)
	err := syscalls.Connect(rt, s.fd, unsafe.Pointer(sa), uint32(unsafe.Sizeof(*sa)))
	if err != nil {
		return err
	}
	s.mode = ModeConnected
	return nil
}

// SendAsync submits one send of buf.
func (s *Socket) SendAsync(rt *task.Runtime, buf []byte, flags int) (int, error) {
	if s.mode != ModeConnected {
		return 0, ErrWrongMode
	}
	return syscalls.Send(rt, s.fd, buf, flags)
}

// RecvAsync submits one recv into buf.
func (s *Socket) RecvAsync(rt *task.Runtime, buf []byte, flags int) (int, error) {
	if s.mode != ModeConnected {
		return 0, ErrWrongMode
	}
	return syscalls.Recv(rt, s.fd, buf, flags)
}

// ReadAsync is an alias of RecvAsync with no flags, matching the
// read_async naming in spec.md §4.10.
func (s *Socket) ReadAsync(rt *task.Runtime, buf []byte) (int, error) {
	return s.RecvAsync(rt, buf, 0)
}

// Accept accepts one pending connection on a listening socket and
// returns it as a new, unmanaged, connected Socket. Callers that want it
// pool-managed should hand it to SocketManager.Adopt.
func (s *Socket) Accept(rt *task.Runtime) (*Socket, error) {
	if s.mode != ModeListening {
		return nil, ErrWrongMode
	}
	var sa unix.RawSockaddrAny
	addrLen := uint32(unsafe.Sizeof(sa))
	fd, err := syscalls.Accept(rt, s.fd, unsafe.Pointer(&sa), addrLen, 0)
	if err != nil {
		return nil, err
	}
	return &Socket{fd: fd, mode: ModeConnected}, nil
}

// shutdownClose shuts the fd down for both directions (best-effort) and
// closes it, resetting mode to ModeNone, per spec.md §4.10's pool-return
// invariant.
func (s *Socket) shutdownClose(rt *task.Runtime) error {
	if s.mode == ModeNone && s.fd < 0 {
		return nil
	}
	unix.Shutdown(s.fd, unix.SHUT_RDWR)
	err := syscalls.Close(rt, s.fd)
	s.fd = -1
	s.mode = ModeNone
	return err
}
