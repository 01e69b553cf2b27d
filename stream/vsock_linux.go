//go:build linux

package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/mdlayher/socket"
	"golang.org/x/sys/unix"

	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/family"
	"github.com/brodyxchen/vsockcmd/models"
)

// VSockDialer opens AF_VSOCK stream sockets using the resolved family.
type VSockDialer struct {
	Resolver *family.Resolver
}

func (d *VSockDialer) Open() (Socket, error) {
	c, err := openVSock(d.Resolver)
	if err != nil {
		return nil, err
	}
	return &vsockSocket{c: c}, nil
}

func openVSock(r *family.Resolver) (*socket.Conn, error) {
	h, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	c, err := socket.Socket(h.Family, unix.SOCK_STREAM, 0, "vsock", nil)
	if err != nil {
		return nil, errors.Stage(errors.CodeSocketOpen, "socket", err)
	}
	return c, nil
}

type vsockSocket struct {
	c *socket.Conn
}

func (s *vsockSocket) Bind(port uint32) error {
	return s.c.Bind(&unix.SockaddrVM{CID: unix.VMADDR_CID_ANY, Port: port})
}

func (s *vsockSocket) Connect(ctx context.Context, contextId, port uint32) error {
	_, err := s.c.Connect(ctx, &unix.SockaddrVM{CID: contextId, Port: port})
	return err
}

func (s *vsockSocket) Read(p []byte) (int, error)    { return s.c.Read(p) }
func (s *vsockSocket) Write(p []byte) (int, error)   { return s.c.Write(p) }
func (s *vsockSocket) SetDeadline(t time.Time) error { return s.c.SetDeadline(t) }
func (s *vsockSocket) Close() error                  { return s.c.Close() }

// ListenVSock binds port on any local context id.
func ListenVSock(r *family.Resolver, port uint32) (Listener, error) {
	c, err := openVSock(r)
	if err != nil {
		return nil, err
	}
	if err := c.Bind(&unix.SockaddrVM{CID: unix.VMADDR_CID_ANY, Port: port}); err != nil {
		_ = c.Close()
		return nil, errors.Stage(errors.CodeBind, "bind", err)
	}
	return &vsockListener{c: c, port: port}, nil
}

type vsockListener struct {
	c    *socket.Conn
	port uint32
}

func (l *vsockListener) Listen(backlog int) error {
	return l.c.Listen(backlog)
}

func (l *vsockListener) Accept(ctx context.Context) (PeerConn, error) {
	c, sa, err := l.c.Accept(ctx, 0)
	if err != nil {
		return nil, err
	}
	return &vsockConn{vsockSocket: vsockSocket{c: c}, sa: sa}, nil
}

func (l *vsockListener) Port() uint32 {
	return l.port
}

func (l *vsockListener) Close() error {
	return l.c.Close()
}

type vsockConn struct {
	vsockSocket
	sa unix.Sockaddr
}

// Peer prefers the address returned by accept and falls back to getpeername.
func (c *vsockConn) Peer() (models.PeerID, error) {
	sa := c.sa
	if sa == nil {
		var err error
		if sa, err = c.c.Getpeername(); err != nil {
			return models.PeerID{}, err
		}
	}
	vm, ok := sa.(*unix.SockaddrVM)
	if !ok {
		return models.PeerID{}, fmt.Errorf("unexpected peer address %T", sa)
	}
	return models.PeerID{ContextId: vm.CID, Port: vm.Port, Known: true}, nil
}
