package server

import (
	"context"
	"time"

	"github.com/brodyxchen/vsockcmd/constant"
	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/models"
	"github.com/brodyxchen/vsockcmd/socket"
	"github.com/brodyxchen/vsockcmd/statistics"
	"github.com/brodyxchen/vsockcmd/stream"
)

// Conn is an accepted connection waiting for its reply.
type Conn struct {
	rwc          stream.Conn
	codec        socket.Codec
	writeTimeout time.Duration
	peer         models.PeerID
}

func (c *Conn) Peer() models.PeerID {
	return c.peer
}

// Reply sends reply text, or "OK" when reply is nil, and closes the
// connection whether or not the send succeeded.
func (c *Conn) Reply(ctx context.Context, reply []byte) error {
	if c.rwc == nil {
		return errors.Stage(errors.CodeMagicSend, "reply", errors.ErrClosed)
	}
	defer c.Close()

	if reply == nil {
		reply = []byte(constant.DefaultReply)
	}

	deadline := time.Now().Add(c.writeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = c.rwc.SetDeadline(deadline)

	writeNow := time.Now()
	err := c.codec.WriteFrame(c.rwc, socket.Terminate(socket.Text(reply)))
	statistics.ServerHist("server.write", time.Since(writeNow))
	return err
}

// Close drops the connection without replying. Safe to call more than once.
func (c *Conn) Close() error {
	if c.rwc == nil {
		return nil
	}
	err := c.rwc.Close()
	c.rwc = nil
	return err
}
