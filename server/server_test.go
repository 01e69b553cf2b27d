package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/brodyxchen/vsockcmd/constant"
	vserrors "github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/family"
	"github.com/brodyxchen/vsockcmd/models"
	"github.com/brodyxchen/vsockcmd/socket"
)

func newTestListener(t *testing.T, cfg *Config) *Listener {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Backend = constant.TCPBackend
	cfg.TCPAddr = "127.0.0.1:0"
	l, err := Init(cfg)
	if err != nil {
		t.Fatalf("init listener: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func dial(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", l.Port()), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// roundTrip sends raw bytes and returns the reply payload, or the read error.
func roundTrip(t *testing.T, l *Listener, raw []byte) ([]byte, error) {
	t.Helper()
	conn := dial(t, l)
	defer conn.Close()
	if _, err := conn.Write(raw); err != nil {
		return nil, err
	}
	return (socket.Codec{}).ReadFrame(conn, constant.MaxRequestBytes)
}

func TestAcceptOneNilReplyIsOK(t *testing.T) {
	l := newTestListener(t, nil)
	ctx := context.Background()

	var g errgroup.Group
	var got []byte
	g.Go(func() error {
		conn, peer, req, err := l.AcceptOne(ctx, make([]byte, constant.MaxServerRequestBytes))
		if err != nil {
			return err
		}
		if !peer.Known {
			return fmt.Errorf("peer not known")
		}
		got = append([]byte(nil), req...)
		return conn.Reply(ctx, nil)
	})

	reply, err := roundTrip(t, l, (socket.Codec{}).Encode(socket.Terminate([]byte(`{"cmd":"list"}`))))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("server: %v", err)
	}

	if diff := cmp.Diff([]byte("{\"cmd\":\"list\"}\x00"), got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte("OK\x00"), reply); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestAcceptOneRejects(t *testing.T) {
	codec := socket.Codec{}
	badMagic := codec.Encode([]byte("abc\x00"))
	badMagic[0] ^= 0xff

	cases := []struct {
		name    string
		bufSize int
		raw     []byte
		want    error
	}{
		{"buffer too small", 4, codec.Encode(socket.Terminate([]byte("0123456789"))), vserrors.ErrBufTooSmall},
		{"missing terminator", 64, codec.Encode([]byte("abc")), vserrors.ErrLenMismatch},
		{"early terminator", 64, codec.Encode([]byte("a\x00bc\x00")), vserrors.ErrLenMismatch},
		{"bad magic", 64, badMagic, vserrors.ErrBadMagic},
		{"truncated content", 64, codec.Encode([]byte("abcdef\x00"))[:10], vserrors.ErrContentReceive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newTestListener(t, &Config{ReadTimeout: 2 * time.Second})

			conn := dial(t, l)
			defer conn.Close()
			if _, err := conn.Write(tc.raw); err != nil {
				t.Fatalf("write: %v", err)
			}
			if tcp, ok := conn.(*net.TCPConn); ok {
				_ = tcp.CloseWrite()
			}

			buf := bytes.Repeat([]byte{0xaa}, tc.bufSize)
			_, _, _, err := l.AcceptOne(context.Background(), buf)
			if !vserrors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want == vserrors.ErrBufTooSmall && !bytes.Equal(buf, bytes.Repeat([]byte{0xaa}, tc.bufSize)) {
				t.Fatalf("buffer touched: % x", buf)
			}

			// the server closed its end, so the client reads EOF or a reset
			if _, err := conn.Read(make([]byte, 1)); err == nil {
				t.Fatalf("connection still open after %v", tc.want)
			}
		})
	}
}

func TestAcceptOneAfterClose(t *testing.T) {
	l := newTestListener(t, nil)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	var nilListener *Listener
	if err := nilListener.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}

	_, _, _, err := l.AcceptOne(context.Background(), make([]byte, 16))
	if !vserrors.Is(err, vserrors.ErrClosed) || !vserrors.Is(err, vserrors.ErrAccept) {
		t.Fatalf("expected closed accept error, got %v", err)
	}
}

func TestInitUnknownBackend(t *testing.T) {
	_, err := Init(&Config{Backend: "carrier-pigeon"})
	if !vserrors.Is(err, vserrors.ErrBadBackend) {
		t.Fatalf("expected ErrBadBackend, got %v", err)
	}
}

func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skipf("cannot count descriptors: %v", err)
	}
	return len(entries)
}

func TestDescriptorsStableAcrossCycles(t *testing.T) {
	l := newTestListener(t, nil)
	ctx := context.Background()
	buf := make([]byte, constant.MaxServerRequestBytes)
	request := (socket.Codec{}).Encode(socket.Terminate([]byte("ping")))

	cycle := func() {
		var g errgroup.Group
		g.Go(func() error {
			conn, _, _, err := l.AcceptOne(ctx, buf)
			if err != nil {
				return err
			}
			return conn.Reply(ctx, []byte("pong"))
		})
		if _, err := roundTrip(t, l, request); err != nil {
			t.Fatalf("round trip: %v", err)
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("server: %v", err)
		}
	}

	cycle()
	before := openFDs(t)
	for i := 0; i < 50; i++ {
		cycle()
	}
	if after := openFDs(t); after != before {
		t.Fatalf("descriptor count changed: %d -> %d", before, after)
	}
}

func startServe(t *testing.T, srv *Server) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestServeSurvivesBadRequests(t *testing.T) {
	l := newTestListener(t, nil)
	srv := NewServer(l, func(_ context.Context, _ models.PeerID, req []byte) ([]byte, error) {
		switch string(req) {
		case "fail":
			return nil, fmt.Errorf("volume not found")
		case "panic":
			panic("boom")
		case "ok":
			return nil, nil
		}
		return append([]byte("echo:"), req...), nil
	})
	cancel, done := startServe(t, srv)

	codec := socket.Codec{}
	badMagic := codec.Encode([]byte("x\x00"))
	badMagic[3] = 0
	if _, err := roundTrip(t, l, badMagic); err == nil {
		t.Fatalf("expected bad magic request to be dropped")
	}

	cases := []struct {
		req  string
		want string
	}{
		{"hello", "echo:hello\x00"},
		{"ok", "OK\x00"},
		{"fail", "{\"Error\":\"volume not found\"}\x00"},
		{"panic", "{\"Error\":\"panic serving request: boom\"}\x00"},
		{"again", "echo:again\x00"},
	}
	for _, tc := range cases {
		reply, err := roundTrip(t, l, codec.Encode(socket.Terminate([]byte(tc.req))))
		if err != nil {
			t.Fatalf("%s: %v", tc.req, err)
		}
		if diff := cmp.Diff(tc.want, string(reply)); diff != "" {
			t.Fatalf("%s: reply mismatch (-want +got):\n%s", tc.req, diff)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestServeGivesUpAfterSkipCount(t *testing.T) {
	l := newTestListener(t, nil)
	srv := NewServer(l, nil)
	srv.MaxSkipCount = 2
	_, done := startServe(t, srv)

	for i := 0; i < 2; i++ {
		_, _ = roundTrip(t, l, (socket.Codec{}).Encode([]byte("no terminator")))
	}

	select {
	case err := <-done:
		if !vserrors.Is(err, vserrors.ErrLenMismatch) {
			t.Fatalf("expected ErrLenMismatch, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not give up")
	}
}

func TestServeStopsOnClose(t *testing.T) {
	l := newTestListener(t, nil)
	_, done := startServe(t, NewServer(l, nil))

	reply, err := roundTrip(t, l, (socket.Codec{}).Encode(socket.Terminate([]byte("x"))))
	if err != nil || !strings.HasPrefix(string(reply), constant.DefaultReply) {
		t.Fatalf("reply %q, err %v", reply, err)
	}

	_ = l.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestErrorReplyEscapes(t *testing.T) {
	got := string(errorReply(io.ErrUnexpectedEOF))
	if got != `{"Error":"unexpected EOF"}` {
		t.Fatalf("error reply = %s", got)
	}
	got = string(errorReply(fmt.Errorf(`say "hi"`)))
	if got != `{"Error":"say \"hi\""}` {
		t.Fatalf("error reply = %s", got)
	}
}

func TestGetResolverDefaultsToShared(t *testing.T) {
	a, b := (&Config{}).GetResolver(), (&Config{}).GetResolver()
	if a != family.Default() || b != a {
		t.Fatalf("resolver-less configs got %p and %p, want the shared %p", a, b, family.Default())
	}
	own := family.NewResolver()
	if got := (&Config{Resolver: own}).GetResolver(); got != own {
		t.Fatalf("injected resolver replaced")
	}
}

func TestServeSkipCountResetsOnSuccess(t *testing.T) {
	l := newTestListener(t, nil)
	srv := NewServer(l, nil)
	srv.MaxSkipCount = 2
	_, done := startServe(t, srv)

	bad := (socket.Codec{}).Encode([]byte("no terminator"))
	good := (socket.Codec{}).Encode(socket.Terminate([]byte("x")))
	for i := 0; i < 3; i++ {
		_, _ = roundTrip(t, l, bad)
		if _, err := roundTrip(t, l, good); err != nil {
			t.Fatalf("round %d: serve stopped after one failure: %v", i, err)
		}
	}
	select {
	case err := <-done:
		t.Fatalf("serve returned early: %v", err)
	default:
	}
}
