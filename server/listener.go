package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brodyxchen/vsockcmd/constant"
	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/log"
	"github.com/brodyxchen/vsockcmd/models"
	"github.com/brodyxchen/vsockcmd/socket"
	"github.com/brodyxchen/vsockcmd/statistics"
	"github.com/brodyxchen/vsockcmd/stream"
)

// Listener is the bound service socket of the host. It accepts one
// connection at a time.
type Listener struct {
	Backend string

	ln        stream.Listener
	codec     socket.Codec
	cfg       *Config
	listening bool

	mu     sync.Mutex
	closed bool
}

// Init binds the service port on any local context id. Nothing is accepted
// until AcceptOne.
func Init(cfg *Config) (*Listener, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	var (
		ln  stream.Listener
		err error
	)
	switch cfg.GetBackend() {
	case constant.DefaultBackend:
		ln, err = stream.ListenVSock(cfg.GetResolver(), cfg.GetPort())
	case constant.TCPBackend:
		ln, err = stream.ListenTCP(cfg.GetTCPAddr())
	default:
		err = errors.Stage(errors.CodeBadBackend, "init", fmt.Errorf("%q", cfg.Backend))
	}
	if err != nil {
		log.Errorf("server.Init(%v) failed: %v", cfg.GetBackend(), err)
		return nil, err
	}

	return &Listener{
		Backend: cfg.GetBackend(),
		ln:      ln,
		codec:   socket.Codec{Order: cfg.GetByteOrder()},
		cfg:     cfg,
	}, nil
}

// Port is the bound port; useful when the tcp backend was given port 0.
func (l *Listener) Port() uint32 {
	return l.ln.Port()
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// AcceptOne accepts a connection and reads one request into buf. The returned
// request aliases buf and keeps its terminator. On success the caller must
// answer through Conn.Reply; on failure the connection is already closed.
func (l *Listener) AcceptOne(ctx context.Context, buf []byte) (*Conn, models.PeerID, []byte, error) {
	var peer models.PeerID
	if l == nil || l.isClosed() {
		return nil, peer, nil, errors.Stage(errors.CodeAccept, "accept", errors.ErrClosed)
	}

	if !l.listening {
		if err := l.ln.Listen(constant.ServerBacklog); err != nil {
			return nil, peer, nil, errors.Stage(errors.CodeListen, "listen", err)
		}
		l.listening = true
	}

	pc, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, peer, nil, errors.Stage(errors.CodeAccept, "accept", err)
	}

	if peer, err = pc.Peer(); err != nil {
		log.Warnf("%v", errors.Stage(errors.CodeSockaddrGet, "peer", err))
	}

	readNow := time.Now()
	request, err := l.readRequest(pc, buf)
	statistics.ServerHist("server.read", time.Since(readNow))
	if err != nil {
		_ = pc.Close()
		statistics.ServerCount("server.error." + fmt.Sprint(int(errors.CodeOf(err))))
		return nil, peer, nil, err
	}

	return &Conn{rwc: pc, codec: l.codec, writeTimeout: l.cfg.GetWriteTimeout(), peer: peer}, peer, request, nil
}

func (l *Listener) readRequest(pc stream.PeerConn, buf []byte) ([]byte, error) {
	_ = pc.SetDeadline(time.Now().Add(l.cfg.GetReadTimeout()))

	n, err := l.codec.ReadHeader(pc)
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(buf)) {
		return nil, errors.Stage(errors.CodeBufTooSmall, "read", fmt.Errorf("length %d > buffer %d", n, len(buf)))
	}

	request := buf[:n]
	if err := l.codec.ReadPayload(pc, request); err != nil {
		return nil, err
	}
	if err := socket.CheckTerminated(request); err != nil {
		return nil, err
	}
	return request, nil
}

// Close releases the service socket. Safe on a nil or closed listener.
func (l *Listener) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.ln.Close()
}
