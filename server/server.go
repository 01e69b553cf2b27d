package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/log"
	"github.com/brodyxchen/vsockcmd/models"
	"github.com/brodyxchen/vsockcmd/socket"
	"github.com/brodyxchen/vsockcmd/statistics"
)

// HandlerFunc answers one request. request is the text without its
// terminator and is only valid until the handler returns. A nil reply is
// sent as "OK"; an error is sent as {"Error":"<message>"}.
type HandlerFunc func(ctx context.Context, peer models.PeerID, request []byte) ([]byte, error)

type Server struct {
	Listener *Listener
	Handler  HandlerFunc

	// MaxSkipCount consecutive failed requests make Serve give up.
	MaxSkipCount int
	BufferSize   int
}

func NewServer(l *Listener, handler HandlerFunc) *Server {
	return &Server{
		Listener:     l,
		Handler:      handler,
		MaxSkipCount: l.cfg.GetMaxSkipCount(),
		BufferSize:   l.cfg.GetBufferSize(),
	}
}

// Serve answers requests one at a time until ctx ends, the listener is
// closed, or MaxSkipCount requests in a row fail. It returns nil
// for the first two.
func (srv *Server) Serve(ctx context.Context) error {
	log.Debugf("srv.Serve(%v:%v)...", srv.Listener.Backend, srv.Listener.Port())

	buf := getRecvBuf(srv.bufferSize())
	defer putRecvBuf(buf)

	var (
		skipped   int
		tempDelay time.Duration // how long to sleep on accept failure
	)
	for {
		conn, peer, request, err := srv.Listener.AcceptOne(ctx, *buf)
		if err != nil {
			if ctx.Err() != nil || isClosed(err) {
				return nil
			}
			if errors.CodeOf(err) == errors.CodeAccept && isTemporary(err) {
				tempDelay = srv.sleep(ctx, tempDelay)
				continue
			}
			skipped++
			if skipped >= srv.maxSkipCount() {
				log.Errorf("srv.Serve: giving up after %d failed requests: %v", skipped, err)
				return err
			}
			log.Warnf("srv.Serve: skipping failed request (%d/%d): %v", skipped, srv.maxSkipCount(), err)
			continue
		}

		skipped = 0
		tempDelay = 0
		srv.serveOne(ctx, conn, peer, socket.Text(request))
	}
}

func (srv *Server) serveOne(ctx context.Context, conn *Conn, peer models.PeerID, request []byte) {
	start := time.Now()
	result := "ok"

	reply, err := srv.handle(ctx, peer, request)
	if err != nil {
		result = "handler"
		reply = errorReply(err)
	}

	if err := conn.Reply(ctx, reply); err != nil {
		result = errors.CodeOf(err).String()
		log.Warnf("reply to %v failed: %v", peer, err)
	}
	statistics.RecordRequest("server", srv.Listener.Backend, result, time.Since(start))
}

func (srv *Server) handle(ctx context.Context, peer models.PeerID, request []byte) (reply []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Errorf("panic serving %v: %v\n%s", peer, r, buf)
			reply, err = nil, fmt.Errorf("panic serving request: %v", r)
		}
	}()

	if srv.Handler == nil {
		return nil, nil
	}
	return srv.Handler(ctx, peer, request)
}

// errorReply is the JSON error object the guest side understands.
func errorReply(err error) []byte {
	b, mErr := json.Marshal(struct {
		Error string `json:"Error"`
	}{Error: err.Error()})
	if mErr != nil {
		return []byte(`{"Error":"internal error"}`)
	}
	return b
}

func (srv *Server) bufferSize() int {
	if srv.BufferSize > 0 {
		return srv.BufferSize
	}
	return srv.Listener.cfg.GetBufferSize()
}

func (srv *Server) maxSkipCount() int {
	if srv.MaxSkipCount > 0 {
		return srv.MaxSkipCount
	}
	return srv.Listener.cfg.GetMaxSkipCount()
}

func (srv *Server) sleep(ctx context.Context, tempDelay time.Duration) time.Duration {
	if tempDelay == 0 {
		tempDelay = 5 * time.Millisecond
	} else {
		tempDelay *= 2
	}
	if max := 1 * time.Second; tempDelay > max {
		tempDelay = max
	}
	t := time.NewTimer(tempDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return tempDelay
}

func isClosed(err error) bool {
	return errors.Is(err, errors.ErrClosed) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)
}

func isTemporary(err error) bool {
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}
