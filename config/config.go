// Package config loads reactor.Options from a TOML file, per
// SPEC_FULL.md §7's ambient configuration surface.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/ringloop/ringloop/reactor"
)

// File is the on-disk shape of a ringloop configuration file:
//
//	entries = 256
//	sq_poll = false
//	sq_thread_idle_ms = 0
//	cpu_affinity = -1
type File struct {
	Entries        uint32 `toml:"entries"`
	SQPoll         bool   `toml:"sq_poll"`
	SQThreadIdleMs uint32 `toml:"sq_thread_idle_ms"`
	CPUAffinity    int    `toml:"cpu_affinity"`
}

// Load decodes path into a slice of reactor.Option ready to pass to
// reactor.New.
func Load(path string) ([]reactor.Option, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, err
	}
	return f.Options(), nil
}

// Options translates a decoded File into reactor.Option values.
func (f File) Options() []reactor.Option {
	opts := make([]reactor.Option, 0, 3)
	if f.Entries != 0 {
		opts = append(opts, reactor.WithEntries(f.Entries))
	}
	if f.SQPoll {
		opts = append(opts, reactor.WithSQPoll(f.SQThreadIdleMs))
	}
	// CPUAffinity 0 is ambiguous with "unset" in a bare int field; pinning
	// to CPU 0 specifically isn't expressible from a config file (it is
	// from WithCPUAffinity directly). Negative values request no pinning.
	if f.CPUAffinity > 0 {
		opts = append(opts, reactor.WithCPUAffinity(f.CPUAffinity))
	}
	return opts
}
