package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/log"
	"github.com/brodyxchen/vsockcmd/models"
	"github.com/brodyxchen/vsockcmd/socket"
	"github.com/brodyxchen/vsockcmd/statistics"
	"github.com/brodyxchen/vsockcmd/stream"
)

// Transport holds what the connections of one backend share: how sockets are
// opened, the frame codec and the source port cursor.
type Transport struct {
	Name string

	dialer stream.Dialer
	codec  socket.Codec

	bindPorts bool
	startPort uint32
	endPort   uint32
	lastPort  atomic.Uint32 // last port bound, 0 before the first bind

	timeout  time.Duration
	maxReply int
}

func NewTransport(name string, dialer stream.Dialer, cfg *Config, bindPorts bool) *Transport {
	start, end := cfg.GetPortRange()
	return &Transport{
		Name:      name,
		dialer:    dialer,
		codec:     socket.Codec{Order: cfg.GetByteOrder()},
		bindPorts: bindPorts,
		startPort: start,
		endPort:   end,
		timeout:   cfg.GetTimeout(),
		maxReply:  cfg.GetMaxReplyBytes(),
	}
}

func (tp *Transport) NewBackend() Backend {
	return &streamConn{tp: tp}
}

// firstPort is where the next bind attempt starts: the start of the range on
// first use, otherwise right after the last bound port.
func (tp *Transport) firstPort() uint32 {
	last := tp.lastPort.Load()
	if last < tp.startPort || last >= tp.endPort {
		return tp.startPort
	}
	return last + 1
}

// bind tries every port of the range once, wrapping at the end.
func (tp *Transport) bind(sock stream.Socket) error {
	span := tp.endPort - tp.startPort + 1
	offset := tp.firstPort() - tp.startPort

	var lastErr error
	for i := uint32(0); i < span; i++ {
		port := tp.startPort + (offset+i)%span
		if err := sock.Bind(port); err != nil {
			lastErr = err
			continue
		}
		tp.lastPort.Store(port)
		return nil
	}
	return errors.Stage(errors.CodeBindExhausted, "bind",
		fmt.Errorf("ports %d-%d: %w", tp.startPort, tp.endPort, lastErr))
}

// withTimeout bounds ctx by the transport timeout unless ctx ends sooner.
func (tp *Transport) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if tp.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, tp.timeout)
}

type connState int

const (
	stateUnconnected connState = iota
	stateConnected
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateUnconnected:
		return "unconnected"
	case stateConnected:
		return "connected"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// streamConn is one exchange over a socket from its transport.
type streamConn struct {
	tp    *Transport
	sock  stream.Socket
	state connState
}

func (c *streamConn) Init(ctx context.Context, contextId, port uint32) error {
	if c.state != stateUnconnected {
		return errors.Stage(errors.CodeConnect, "init", fmt.Errorf("connection is %v", c.state))
	}

	ctx, cancel := c.tp.withTimeout(ctx)
	defer cancel()

	now := time.Now()
	sock, err := c.tp.dialer.Open()
	if err != nil {
		if errors.CodeOf(err) < 0 {
			err = errors.Stage(errors.CodeSocketOpen, "socket", err)
		}
		return err
	}

	if c.tp.bindPorts {
		if err := c.tp.bind(sock); err != nil {
			_ = sock.Close()
			return err
		}
	}

	addr := &models.VSockAddr{ContextId: contextId, Port: port}
	if err := sock.Connect(ctx, contextId, port); err != nil {
		_ = sock.Close()
		return errors.Stage(errors.CodeConnect, "connect", fmt.Errorf("%s: %w", addr.GetAddr(), err))
	}
	statistics.ClientHist("client.connect", time.Since(now))

	c.sock = sock
	c.state = stateConnected
	log.Debugf("%s connected to %s", c.tp.Name, addr.GetAddr())
	return nil
}

func (c *streamConn) Exchange(ctx context.Context, request []byte) (*Reply, error) {
	if c.state != stateConnected {
		return nil, errors.Stage(errors.CodeMagicSend, "exchange", errors.ErrClosed)
	}

	ctx, cancel := c.tp.withTimeout(ctx)
	defer cancel()

	if dl, ok := ctx.Deadline(); ok {
		_ = c.sock.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.sock.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.tp.codec.WriteFrame(c.sock, request); err != nil {
		return nil, err
	}

	n, err := c.tp.codec.ReadHeader(c.sock)
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(c.tp.maxReply) {
		return nil, errors.Stage(errors.CodeTooLarge, "read", fmt.Errorf("reply length %d > limit %d", n, c.tp.maxReply))
	}

	reply := newReply(int(n))
	if err := c.tp.codec.ReadPayload(c.sock, reply.data); err != nil {
		reply.Release()
		return nil, err
	}
	return reply, nil
}

// Release closes the socket whatever state the connection is in.
func (c *streamConn) Release() error {
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}
