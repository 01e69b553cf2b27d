package client

import (
	"context"
	"fmt"
	"sort"

	"github.com/brodyxchen/vsockcmd/constant"
	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/family"
	"github.com/brodyxchen/vsockcmd/stream"
)

// Backend carries one request/reply exchange: Init connects, Exchange sends
// the request and reads the reply, Release closes whatever Init opened.
// A Backend is used for a single exchange and is not safe for concurrent use.
type Backend interface {
	Init(ctx context.Context, contextId, port uint32) error
	Exchange(ctx context.Context, request []byte) (*Reply, error)
	Release() error
}

// Descriptor names a backend and builds fresh instances of it.
type Descriptor struct {
	ShortName string
	Name      string
	New       func() Backend
}

// Registry maps short names to descriptors. It is read-only once built.
type Registry struct {
	entries map[string]*Descriptor
}

func NewRegistry(descs ...*Descriptor) *Registry {
	r := &Registry{entries: make(map[string]*Descriptor, len(descs))}
	for _, d := range descs {
		r.entries[d.ShortName] = d
	}
	return r
}

// Lookup is case-sensitive.
func (r *Registry) Lookup(shortName string) (*Descriptor, error) {
	if d, ok := r.entries[shortName]; ok {
		return d, nil
	}
	return nil, errors.Stage(errors.CodeBadBackend, "lookup", fmt.Errorf("%q", shortName))
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry builds the vsocket, dummy and tcp backends. The vsocket and
// tcp entries each share one Transport, so the source port cursor survives
// across requests.
func DefaultRegistry(resolver *family.Resolver, cfg *Config) *Registry {
	vsockTp := NewTransport(constant.DefaultBackend, &stream.VSockDialer{Resolver: resolver}, cfg, true)
	tcpTp := NewTransport(constant.TCPBackend, &stream.TCPDialer{IP: cfg.GetTCPHost()}, cfg, false)

	return NewRegistry(
		&Descriptor{ShortName: constant.DefaultBackend, Name: "Virtual Socket", New: vsockTp.NewBackend},
		&Descriptor{ShortName: constant.DummyBackend, Name: "Dummy Backend", New: NewDummy},
		&Descriptor{ShortName: constant.TCPBackend, Name: "Loopback TCP", New: tcpTp.NewBackend},
	)
}
