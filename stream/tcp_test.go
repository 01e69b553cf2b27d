package stream

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/brodyxchen/vsockcmd/errors"
)

func TestTCPSocketLifecycle(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	sock, err := (&TCPDialer{}).Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sock.Close()

	if err := sock.Bind(100); !errors.Is(err, errors.ErrNotBindable) {
		t.Fatalf("expected ErrNotBindable, got %v", err)
	}
	if _, err := sock.Write([]byte("x")); !errors.Is(err, errors.ErrClosed) {
		t.Fatalf("write before connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sock.Connect(ctx, 2, ln.Port()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	pc, err := ln.Accept(ctx)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	defer pc.Close()

	peer, err := pc.Peer()
	if err != nil || !peer.Known || peer.Port == 0 {
		t.Fatalf("peer = %+v, %v", peer, err)
	}

	if _, err := sock.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(pc, buf); err != nil || string(buf) != "ping" {
		t.Fatalf("read %q, %v", buf, err)
	}

	if err := sock.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sock.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestTCPAcceptHonorsContext(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := ln.Accept(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("accept ignored the deadline")
	}
}
