package iosocket

import (
	"github.com/brickingsoft/errors"
	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/containers"
	"github.com/ringloop/ringloop/task"
)

// ErrListenFailed wraps a bind/listen syscall failure distinct from the
// io_uring-mediated IOErrors the syscalls package returns, since
// socket/bind/listen are plain (non-uring) syscalls here.
var ErrListenFailed = errors.Define("iosocket: listen setup failed")

// SocketManager owns a pool of Sockets, handing out owning handles for
// freshly constructed sockets and reclaiming them (shutdown + close) on
// drop, per spec.md §4.10.
type SocketManager struct {
	pool *containers.Pool[Socket]
}

// NewManager creates a SocketManager whose pool grows in blocks of
// blockSize.
func NewManager(blockSize int) *SocketManager {
	return &SocketManager{pool: containers.NewPool[Socket](blockSize)}
}

// NewTCP acquires a pool slot for a fresh, unconnected TCP socket.
func (m *SocketManager) NewTCP() (*containers.Handle[Socket], error) {
	fd, err := newRawTCP()
	if err != nil {
		return nil, err
	}
	return m.pool.Acquire(Socket{fd: fd, mode: ModeNone}), nil
}

// NewUDP acquires a pool slot for a fresh UDP socket.
func (m *SocketManager) NewUDP() (*containers.Handle[Socket], error) {
	fd, err := newRawUDP()
	if err != nil {
		return nil, err
	}
	return m.pool.Acquire(Socket{fd: fd, mode: ModeNone}), nil
}

// Connected acquires a pool slot for a fresh TCP socket already
// connected to addr:port.
func (m *SocketManager) Connected(rt *task.Runtime, addr uint32, port uint16) (*containers.Handle[Socket], error) {
	h, err := m.NewTCP()
	if err != nil {
		return nil, err
	}
	if err := h.Value().ConnectAsync(rt, addr, port); err != nil {
		m.DropSocket(rt, h)
		return nil, err
	}
	return h, nil
}

// Listening acquires a pool slot for a TCP socket bound to addr:port and
// listening with the given backlog (spec.md §6 calls for backlog 64).
func (m *SocketManager) Listening(addr uint32, port uint16, backlog int) (*containers.Handle[Socket], error) {
	h, err := m.NewTCP()
	if err != nil {
		return nil, err
	}
	s := h.Value()
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(s.fd)
		h.Drop()
		return nil, errors.Join(ErrListenFailed, err)
	}
	var addrBytes [4]byte
	addrBytes[0] = byte(addr >> 24)
	addrBytes[1] = byte(addr >> 16)
	addrBytes[2] = byte(addr >> 8)
	addrBytes[3] = byte(addr)
	sa := &unix.SockaddrInet4{Port: int(port), Addr: addrBytes}
	if err := unix.Bind(s.fd, sa); err != nil {
		unix.Close(s.fd)
		h.Drop()
		return nil, errors.Join(ErrListenFailed, err)
	}
	if err := unix.Listen(s.fd, backlog); err != nil {
		unix.Close(s.fd)
		h.Drop()
		return nil, errors.Join(ErrListenFailed, err)
	}
	s.mode = ModeListening
	return h, nil
}

// BoundPort reports the local port a listening socket was bound to,
// useful after Listening was called with port 0 to request an ephemeral
// port from the kernel.
func BoundPort(s *Socket) (uint16, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return 0, err
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, ErrWrongMode
	}
	return uint16(in4.Port), nil
}

// Adopt wraps an already-constructed Socket (e.g. returned by
// Socket.Accept) in a pool-managed handle, so its lifetime is governed
// the same way as manager-originated sockets.
func (m *SocketManager) Adopt(s Socket) *containers.Handle[Socket] {
	return m.pool.Acquire(s)
}

// DropSocket shuts h's socket down, closes its fd, and returns the slot
// to the pool. Use this instead of calling containers.Handle.Drop
// directly: the generic Pool has no way to run Socket-specific teardown,
// so the shutdown+close must happen here, before the handle's own Drop
// zeroes and frees the slot — matching spec.md §4.10's "fd closed and
// mode reset before slot return" invariant.
func (m *SocketManager) DropSocket(rt *task.Runtime, h *containers.Handle[Socket]) error {
	s := h.Value()
	err := s.shutdownClose(rt)
	h.Drop()
	return err
}
