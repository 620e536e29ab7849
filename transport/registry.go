// Package transport is the registry of connection backends used to send
// lookups.
//
// Backends register themselves in init():
//
//	transport.MustRegister(transport.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
package transport

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/casnet/network"
	"xdao.co/casnet/storage"
)

// ReplyFunc receives replies from a backend's own goroutines.
type ReplyFunc func(network.DhtData)

// Options configure a backend. Each backend documents the fields it reads.
type Options struct {
	Target      string
	DialTimeout time.Duration
	RPCTimeout  time.Duration
	MaxMsgBytes int

	// Store answers lookups for in-process backends.
	Store storage.CAS

	OnReply ReplyFunc
	Logger  *zerolog.Logger
}

// Backend opens a network.Connection. Open returns an optional close function.
type Backend struct {
	Name        string
	Description string
	Open        func(opts Options) (network.Connection, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("transport: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("transport: backend %q missing Open", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("transport: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns registered backends sorted by name.
func List() []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Registered reports whether a backend named name has been registered.
func Registered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Names returns registered backend names, sorted.
func Names() []string {
	bs := List()
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Open opens the named backend. A reply callback is required: a connection
// whose replies go nowhere can only ever time out.
func Open(name string, opts Options) (network.Connection, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("transport: unknown backend %q", name)
	}
	if opts.OnReply == nil {
		return nil, nil, fmt.Errorf("transport: backend %q opened without a reply callback", name)
	}
	return b.Open(opts)
}
