package syscalls_test

import (
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/reactor"
	"github.com/ringloop/ringloop/syscalls"
	"github.com/ringloop/ringloop/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New(reactor.WithEntries(32))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNopCompletes(t *testing.T) {
	r := newTestReactor(t)
	var gotErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		gotErr = syscalls.Nop(rt)
		return struct{}{}, nil
	})
	r.Run()
	assert.NoError(t, gotErr)
}

func TestOpenWriteReadClose(t *testing.T) {
	r := newTestReactor(t)
	path := filepath.Join(t.TempDir(), "syscalls.txt")

	var written, readBack string
	var opErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		fd, err := syscalls.Open(rt, path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0o644)
		if err != nil {
			opErr = err
			return struct{}{}, nil
		}
		payload := []byte("syscalls round trip")
		n, err := syscalls.Write(rt, fd, payload, 0)
		if err != nil {
			opErr = err
			return struct{}{}, nil
		}
		written = string(payload[:n])

		buf := make([]byte, len(payload))
		n, err = syscalls.Read(rt, fd, buf, 0)
		if err != nil {
			opErr = err
			return struct{}{}, nil
		}
		readBack = string(buf[:n])
		opErr = syscalls.Close(rt, fd)
		return struct{}{}, nil
	})

	r.Run()
	require.NoError(t, opErr)
	assert.Equal(t, "syscalls round trip", written)
	assert.Equal(t, "syscalls round trip", readBack)
}

func TestOpenNonexistentFileFails(t *testing.T) {
	r := newTestReactor(t)
	var gotErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		_, gotErr = syscalls.Open(rt, filepath.Join(t.TempDir(), "does-not-exist"), unix.O_RDONLY, 0)
		return struct{}{}, nil
	})
	r.Run()
	require.Error(t, gotErr)
	var ioErr *reactor.IOError
	assert.ErrorAs(t, gotErr, &ioErr)
}
