package client

import (
	"sync/atomic"

	"github.com/brodyxchen/vsockcmd/socket"
)

// Reply is a received reply payload. Its memory may be reused after Release,
// so callers copy anything they keep.
type Reply struct {
	buf      *[]byte
	data     []byte
	released atomic.Bool
}

func newReply(n int) *Reply {
	buf := getReplyBuf(n)
	return &Reply{buf: buf, data: (*buf)[:n]}
}

func textReply(text string) *Reply {
	return &Reply{data: socket.Terminate([]byte(text))}
}

// Raw is the payload as received, terminator included.
func (r *Reply) Raw() []byte {
	return r.data
}

// Bytes is the reply text up to its terminator.
func (r *Reply) Bytes() []byte {
	return socket.Text(r.data)
}

func (r *Reply) String() string {
	return string(r.Bytes())
}

// Release returns the buffer. Releasing twice is a no-op.
func (r *Reply) Release() {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return
	}
	buf := r.buf
	r.buf, r.data = nil, nil
	putReplyBuf(buf)
}
