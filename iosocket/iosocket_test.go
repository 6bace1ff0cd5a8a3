package iosocket_test

import (
	"testing"

	"github.com/ringloop/ringloop/iosocket"
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

func TestSocketConnectSendRecvRoundTrip(t *testing.T) {
	r := newTestReactor(t)
	mgr := iosocket.NewManager(4)
	addr := iosocket.BuildIPv4(127, 0, 0, 1)

	listener, err := mgr.Listening(addr, 0, 16)
	require.NoError(t, err)
	port, err := iosocket.BoundPort(listener.Value())
	require.NoError(t, err)

	var serverErr, clientErr error
	var serverGot string

	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		conn, err := listener.Value().Accept(rt)
		if err != nil {
			serverErr = err
			return struct{}{}, nil
		}
		h := mgr.Adopt(*conn)
		defer mgr.DropSocket(rt, h)

		buf := make([]byte, 4)
		n, err := h.Value().RecvAsync(rt, buf, 0)
		if err != nil {
			serverErr = err
			return struct{}{}, nil
		}
		serverGot = string(buf[:n])
		_, serverErr = h.Value().SendAsync(rt, buf[:n], 0)
		return struct{}{}, nil
	})

	var clientGot string
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		client, err := mgr.Connected(rt, addr, port)
		if err != nil {
			clientErr = err
			return struct{}{}, nil
		}
		defer mgr.DropSocket(rt, client)

		if _, err := client.Value().SendAsync(rt, []byte("ping"), 0); err != nil {
			clientErr = err
			return struct{}{}, nil
		}
		buf := make([]byte, 4)
		n, err := client.Value().RecvAsync(rt, buf, 0)
		clientErr = err
		clientGot = string(buf[:n])
		return struct{}{}, nil
	})

	r.Run()

	require.NoError(t, serverErr)
	require.NoError(t, clientErr)
	assert.Equal(t, "ping", serverGot)
	assert.Equal(t, "ping", clientGot)
}

func TestSocketSendBeforeConnectIsWrongMode(t *testing.T) {
	r := newTestReactor(t)
	mgr := iosocket.NewManager(4)

	var gotErr error
	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		h, err := mgr.NewTCP()
		require.NoError(t, err)
		defer mgr.DropSocket(rt, h)
		_, gotErr = h.Value().SendAsync(rt, []byte("x"), 0)
		return struct{}{}, nil
	})

	r.Run()
	assert.ErrorIs(t, gotErr, iosocket.ErrWrongMode)
}
