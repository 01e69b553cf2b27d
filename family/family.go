// Package family resolves the vsock address family once per process and keeps
// it for every socket the client and server open afterwards.
package family

import (
	"os"
	"sync"

	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/log"
)

// Handle is a resolved address family. Holding the device open tells the
// driver this process uses vsock.
type Handle struct {
	Family int
	device *os.File
}

func (h *Handle) release() error {
	if h == nil || h.device == nil {
		return nil
	}
	err := h.device.Close()
	h.device = nil
	return err
}

// Resolver caches the first successful resolution. Failures are not cached,
// so a driver loaded later is picked up on the next call.
type Resolver struct {
	mu     sync.Mutex
	handle *Handle

	probe     func() (*Handle, error)
	contextID func() (uint32, error)
}

func NewResolver() *Resolver {
	return &Resolver{
		probe:     probe,
		contextID: localContextID,
	}
}

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
)

// Default is the resolver shared by everything in the process that is not
// handed one explicitly.
func Default() *Resolver {
	defaultOnce.Do(func() {
		defaultResolver = NewResolver()
	})
	return defaultResolver
}

// Resolve returns the cached handle, resolving it on first use.
func (r *Resolver) Resolve() (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		return r.handle, nil
	}
	h, err := r.probe()
	if err != nil {
		log.Errorf("family.Resolve() failed: %v", err)
		return nil, errors.Stage(errors.CodeAddressFamily, "resolve", err)
	}
	r.handle = h
	return h, nil
}

// Cached returns the handle without resolving; nil when not yet resolved.
func (r *Resolver) Cached() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// LocalContextID reports the context id of this machine.
func (r *Resolver) LocalContextID() (uint32, error) {
	if _, err := r.Resolve(); err != nil {
		return 0, err
	}
	cid, err := r.contextID()
	if err != nil {
		return 0, errors.Stage(errors.CodeSockaddrGet, "context id", err)
	}
	return cid, nil
}

// Release drops the cached handle. Only needed at process exit.
func (r *Resolver) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.handle.release()
	r.handle = nil
	return err
}
