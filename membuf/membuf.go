// Package membuf provides MemBuf, an endian-aware byte stream built over
// containers.Ring[byte], per spec.md §3/§4's "Ring<u8> + spinlock +
// endian flag" description.
package membuf

import (
	"encoding/binary"

	"github.com/brickingsoft/errors"

	"github.com/ringloop/ringloop/containers"
)

// Order selects which byte order multi-byte reads/writes use.
type Order uint8

const (
	LittleEndian Order = iota
	BigEndian
)

var (
	// ErrShortRead is returned when fewer bytes are buffered than a
	// fixed-width read or peek requires.
	ErrShortRead = errors.Define("membuf: short read")
)

// Refiller is called by Read/Peek when the buffer doesn't hold enough
// bytes to satisfy the request; a transport can install one via
// SetRefiller to pull more bytes from the kernel. The default MemBuf has
// no refiller and simply reports ErrShortRead.
type Refiller func(need int) error

// MemBuf is a Ring<u8> with an endian flag and an optional refill hook.
// Its own data is protected by an explicit Lock(), whose returned
// Deferred releases it, for
// callers that need to serialise access from outside the owning
// reactor's single logical thread (routine reads/writes are not
// internally serialised, matching spec.md §5).
type MemBuf struct {
	order    Order
	data     *containers.Ring[byte]
	lock     containers.Spinlock
	refiller Refiller
}

// New creates an empty MemBuf using order for multi-byte operations.
func New(order Order) *MemBuf {
	return &MemBuf{order: order, data: containers.NewRing[byte](64)}
}

// SetRefiller installs the hook used when a read needs more bytes than
// are currently buffered.
func (m *MemBuf) SetRefiller(r Refiller) { m.refiller = r }

// Lock acquires the explicit spinlock guarding cross-goroutine access to
// this buffer, returning a Deferred that releases it.
func (m *MemBuf) Lock() containers.Deferred { return m.lock.Lock() }

// Size returns the number of buffered bytes.
func (m *MemBuf) Size() int { return m.data.Len() }

// Order reports the endianness used for multi-byte operations.
func (m *MemBuf) Order() Order { return m.order }

func (m *MemBuf) byteOrder() binary.ByteOrder {
	if m.order == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (m *MemBuf) ensure(n int) error {
	if m.data.Len() >= n {
		return nil
	}
	if m.refiller == nil {
		return ErrShortRead
	}
	if err := m.refiller(n - m.data.Len()); err != nil {
		return err
	}
	if m.data.Len() < n {
		return ErrShortRead
	}
	return nil
}

// WriteByte appends a single byte.
func (m *MemBuf) WriteByte(b byte) { m.data.PushBack(b) }

// Write appends p byte-for-byte.
func (m *MemBuf) Write(p []byte) {
	for _, b := range p {
		m.data.PushBack(b)
	}
}

// WriteString appends s byte-for-byte.
func (m *MemBuf) WriteString(s string) { m.Write([]byte(s)) }

// ReadByte consumes and returns the front byte.
func (m *MemBuf) ReadByte() (byte, error) {
	if err := m.ensure(1); err != nil {
		return 0, err
	}
	return m.data.PopFront()
}

// PeekByte returns the front byte without consuming it.
func (m *MemBuf) PeekByte() (byte, error) {
	if err := m.ensure(1); err != nil {
		return 0, err
	}
	return m.data.At(0)
}

func (m *MemBuf) peekN(n int) ([]byte, error) {
	if err := m.ensure(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		v, err := m.data.At(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *MemBuf) readN(n int) ([]byte, error) {
	out, err := m.peekN(n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := m.data.PopFront(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadU16/ReadU32/ReadU64 consume and decode a fixed-width integer using
// this MemBuf's byte order. PeekU16/PeekU32/PeekU64 do the same without
// consuming.

func (m *MemBuf) ReadU16() (uint16, error) {
	b, err := m.readN(2)
	if err != nil {
		return 0, err
	}
	return m.byteOrder().Uint16(b), nil
}

func (m *MemBuf) PeekU16() (uint16, error) {
	b, err := m.peekN(2)
	if err != nil {
		return 0, err
	}
	return m.byteOrder().Uint16(b), nil
}

func (m *MemBuf) ReadU32() (uint32, error) {
	b, err := m.readN(4)
	if err != nil {
		return 0, err
	}
	return m.byteOrder().Uint32(b), nil
}

func (m *MemBuf) PeekU32() (uint32, error) {
	b, err := m.peekN(4)
	if err != nil {
		return 0, err
	}
	return m.byteOrder().Uint32(b), nil
}

func (m *MemBuf) ReadU64() (uint64, error) {
	b, err := m.readN(8)
	if err != nil {
		return 0, err
	}
	return m.byteOrder().Uint64(b), nil
}

func (m *MemBuf) PeekU64() (uint64, error) {
	b, err := m.peekN(8)
	if err != nil {
		return 0, err
	}
	return m.byteOrder().Uint64(b), nil
}

// WriteU16/WriteU32/WriteU64 encode and append a fixed-width integer
// using this MemBuf's byte order.

func (m *MemBuf) WriteU16(v uint16) {
	var b [2]byte
	m.byteOrder().PutUint16(b[:], v)
	m.Write(b[:])
}

func (m *MemBuf) WriteU32(v uint32) {
	var b [4]byte
	m.byteOrder().PutUint32(b[:], v)
	m.Write(b[:])
}

func (m *MemBuf) WriteU64(v uint64) {
	var b [8]byte
	m.byteOrder().PutUint64(b[:], v)
	m.Write(b[:])
}

// ReadVector consumes and returns the next n bytes as a fresh slice.
func (m *MemBuf) ReadVector(n int) ([]byte, error) { return m.readN(n) }

// ReadString consumes the next n bytes and returns them as a string.
func (m *MemBuf) ReadString(n int) (string, error) {
	b, err := m.readN(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Drain removes and returns every buffered byte, linearised.
func (m *MemBuf) Drain() []byte {
	m.data.Linearize()
	out := m.data.ToSlice()
	m.data.Clear()
	return out
}

// FillFrom appends a raw kernel read result to the buffer, for transports
// handing MemBuf a read result directly. It is the same byte-by-byte
// append as Write.
func (m *MemBuf) FillFrom(p []byte) { m.Write(p) }
