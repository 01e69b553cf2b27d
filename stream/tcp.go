package stream

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/models"
)

// TCPDialer opens loopback sockets. The context id of Connect is ignored;
// the host is always IP.
type TCPDialer struct {
	IP string
}

func (d *TCPDialer) Open() (Socket, error) {
	ip := d.IP
	if ip == "" {
		ip = "127.0.0.1"
	}
	return &tcpSocket{ip: ip}, nil
}

type tcpSocket struct {
	ip   string
	conn net.Conn
}

func (s *tcpSocket) Bind(port uint32) error {
	if port != 0 {
		return errors.ErrNotBindable
	}
	return nil
}

func (s *tcpSocket) Connect(ctx context.Context, _ uint32, port uint32) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.ip, strconv.FormatUint(uint64(port), 10)))
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

func (s *tcpSocket) Read(p []byte) (int, error) {
	if s.conn == nil {
		return 0, errors.ErrClosed
	}
	return s.conn.Read(p)
}

func (s *tcpSocket) Write(p []byte) (int, error) {
	if s.conn == nil {
		return 0, errors.ErrClosed
	}
	return s.conn.Write(p)
}

func (s *tcpSocket) SetDeadline(t time.Time) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.SetDeadline(t)
}

func (s *tcpSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// ListenTCP binds addr, e.g. "127.0.0.1:0".
func ListenTCP(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Stage(errors.CodeBind, "listen tcp", err)
	}
	return &tcpListener{ln: ln.(*net.TCPListener)}, nil
}

type tcpListener struct {
	ln *net.TCPListener
}

// Listen is a no-op: the kernel socket is already listening.
func (l *tcpListener) Listen(int) error {
	return nil
}

func (l *tcpListener) Accept(ctx context.Context) (PeerConn, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = l.ln.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.SetDeadline(time.Now())
	})
	defer func() {
		stop()
		_ = l.ln.SetDeadline(time.Time{})
	}()

	conn, err := l.ln.AcceptTCP()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return &tcpConn{TCPConn: conn}, nil
}

func (l *tcpListener) Port() uint32 {
	return uint32(l.ln.Addr().(*net.TCPAddr).Port)
}

func (l *tcpListener) Close() error {
	return l.ln.Close()
}

type tcpConn struct {
	*net.TCPConn
}

func (c *tcpConn) Peer() (models.PeerID, error) {
	addr, ok := c.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return models.PeerID{}, errors.New("no tcp peer address")
	}
	return models.PeerID{Port: uint32(addr.Port), Known: true}, nil
}
