//go:build !linux

package stream

import (
	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/family"
)

type VSockDialer struct {
	Resolver *family.Resolver
}

func (d *VSockDialer) Open() (Socket, error) {
	if _, err := d.Resolver.Resolve(); err != nil {
		return nil, err
	}
	return nil, errors.Stage(errors.CodeSocketOpen, "socket", errors.ErrNotBindable)
}

func ListenVSock(r *family.Resolver, port uint32) (Listener, error) {
	if _, err := r.Resolve(); err != nil {
		return nil, err
	}
	return nil, errors.Stage(errors.CodeSocketOpen, "socket", errors.ErrNotBindable)
}
