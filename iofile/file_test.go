package iofile_test

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/iofile"
	"github.com/ringloop/ringloop/reactor"
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

func TestFileWriteThenReadExactly(t *testing.T) {
	r := newTestReactor(t)
	path := filepath.Join(t.TempDir(), "roundtrip.txt")

	var readBack []byte
	var opErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		f, err := iofile.Open(rt, path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0o644)
		if err != nil {
			opErr = err
			return struct{}{}, nil
		}
		if err := f.Write(rt, []byte("hello world")); err != nil {
			opErr = err
			return struct{}{}, nil
		}
		if err := f.Close(rt); err != nil {
			opErr = err
			return struct{}{}, nil
		}

		f2, err := iofile.Open(rt, path, unix.O_RDONLY, 0)
		if err != nil {
			opErr = err
			return struct{}{}, nil
		}
		readBack, err = f2.ReadExactly(rt, len("hello world"))
		opErr = err
		_ = f2.Close(rt)
		return struct{}{}, nil
	})

	r.Run()
	require.NoError(t, opErr)
	assert.Equal(t, "hello world", string(readBack))
}

func TestFileReadExactlyShortEOF(t *testing.T) {
	r := newTestReactor(t)
	path := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	var opErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		f, err := iofile.Open(rt, path, unix.O_RDONLY, 0)
		if err != nil {
			opErr = err
			return struct{}{}, nil
		}
		_, opErr = f.ReadExactly(rt, 10)
		_ = f.Close(rt)
		return struct{}{}, nil
	})

	r.Run()
	assert.ErrorIs(t, opErr, iofile.ErrShortEOF)
}

func TestFileReadToEOF(t *testing.T) {
	r := newTestReactor(t)
	path := filepath.Join(t.TempDir(), "full.txt")
	require.NoError(t, os.WriteFile(path, []byte("the quick brown fox"), 0o644))

	var got []byte
	var opErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		f, err := iofile.Open(rt, path, unix.O_RDONLY, 0)
		if err != nil {
			opErr = err
			return struct{}{}, nil
		}
		got, opErr = f.Read(rt, -1)
		_ = f.Close(rt)
		return struct{}{}, nil
	})

	r.Run()
	require.NoError(t, opErr)
	assert.Equal(t, "the quick brown fox", string(got))
}

func TestFileCloseIsIdempotent(t *testing.T) {
	r := newTestReactor(t)
	path := filepath.Join(t.TempDir(), "closeme.txt")

	var firstErr, secondErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		f, err := iofile.Open(rt, path, unix.O_RDWR|unix.O_CREAT, 0o644)
		require.NoError(t, err)
		firstErr = f.Close(rt)
		secondErr = f.Close(rt)
		return struct{}{}, nil
	})

	r.Run()
	assert.NoError(t, firstErr)
	assert.NoError(t, secondErr)
}
