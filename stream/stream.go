// Package stream opens the raw stream sockets the client and server exchange
// frames over: vsock for real deployments, loopback TCP for development.
package stream

import (
	"context"
	"io"
	"time"

	"github.com/brodyxchen/vsockcmd/models"
)

// Conn is a connected stream socket.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// PeerConn is an accepted connection that can name its peer.
type PeerConn interface {
	Conn
	Peer() (models.PeerID, error)
}

// Socket is a client socket: opened unconnected, optionally bound to a
// source port, then connected. It is a Conn once connected.
type Socket interface {
	Conn
	Bind(port uint32) error
	Connect(ctx context.Context, contextId, port uint32) error
}

// Dialer opens unconnected client sockets.
type Dialer interface {
	Open() (Socket, error)
}

// Listener is a bound server socket.
type Listener interface {
	Listen(backlog int) error
	Accept(ctx context.Context) (PeerConn, error)
	Port() uint32
	Close() error
}
