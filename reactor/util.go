package reactor

import (
	"bytes"
	"runtime"
	"strconv"
	"unsafe"
)

// goroutineID extracts the calling goroutine's id from runtime.Stack's
// header line ("goroutine 123 [running]:"). There is no supported public
// API for this; it is used only to key the one-reactor-per-goroutine
// install map, never for scheduling decisions, so an occasional parse
// miss (falls back to 0) only weakens the double-install check rather
// than corrupting behaviour.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ptrFromUserData recovers the *promise stashed as an SQE's user-data by
// Operation.pack.
func ptrFromUserData(ud uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(ud))
}

func debugStack() []byte {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return buf[:n]
}
