// Command ringloop-echo demonstrates the end-to-end echo scenario of
// spec.md §8: a listener accepts one connection, echoes 4 bytes back,
// and closes; a client connects, sends "ping", and reads the echo.
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/ringloop/ringloop/config"
	"github.com/ringloop/ringloop/iosocket"
	"github.com/ringloop/ringloop/reactor"
	"github.com/ringloop/ringloop/task"
)

func main() {
	configPath := flag.String("config", "", "path to a ringloop TOML config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var opts []reactor.Option
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		opts = loaded
	}

	r, err := reactor.New(opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create reactor")
	}
	defer r.Close()

	mgr := iosocket.NewManager(8)
	addr := iosocket.BuildIPv4(127, 0, 0, 1)

	listener, err := mgr.Listening(addr, 0, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}
	// The reactor has stopped by the time this runs, so tear the listener
	// down with a plain close rather than routing it through another
	// io_uring submission.
	defer unix.Close(listener.Value().Fd())

	port, err := iosocket.BoundPort(listener.Value())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read bound port")
	}
	log.Info().Uint16("port", port).Msg("listening")

	task.Spawn(r, func(rt *task.Runtime) (struct{}, error) {
		conn, err := listener.Value().Accept(rt)
		if err != nil {
			log.Error().Err(err).Msg("accept failed")
			return struct{}{}, err
		}
		h := mgr.Adopt(*conn)
		defer mgr.DropSocket(rt, h)

		buf := make([]byte, 4)
		n, err := h.Value().RecvAsync(rt, buf, 0)
		if err != nil {
			log.Error().Err(err).Msg("server recv failed")
			return struct{}{}, err
		}
		if _, err := h.Value().SendAsync(rt, buf[:n], 0); err != nil {
			log.Error().Err(err).Msg("server send failed")
			return struct{}{}, err
		}
		log.Info().Bytes("payload", buf[:n]).Msg("server echoed payload")
		return struct{}{}, nil
	})

	clientDone := task.Spawn(r, func(rt *task.Runtime) (string, error) {
		client, err := mgr.Connected(rt, addr, port)
		if err != nil {
			return "", err
		}
		defer mgr.DropSocket(rt, client)

		if _, err := client.Value().SendAsync(rt, []byte("ping"), 0); err != nil {
			return "", err
		}
		reply := make([]byte, 0, 4)
		for len(reply) < 4 {
			buf := make([]byte, 4-len(reply))
			n, err := client.Value().RecvAsync(rt, buf, 0)
			if err != nil {
				return "", err
			}
			reply = append(reply, buf[:n]...)
		}
		return string(reply), nil
	})

	r.Run()

	// Run has already drained every task to completion, so this Await
	// never actually suspends; CurrentOrPanic still finds the reactor
	// installed on this goroutine (Close hasn't run yet), giving Await a
	// real Reactor reference instead of a bare zero-value Runtime.
	result, err := clientDone.Await(&task.Runtime{Reactor: reactor.CurrentOrPanic()})
	if err != nil {
		log.Fatal().Err(err).Msg("client task failed")
	}
	log.Info().Str("reply", result).Msg("echo round trip complete")
}
