package constant

import "time"

const (
	// MaxServerRequestBytes is the default receive buffer of the host listener.
	// Queries are small; anything larger is refused before it is read.
	MaxServerRequestBytes = 4 << 10

	ServerBacklog = 1

	// MaxSkipCount consecutive failed requests stop the run loop.
	MaxSkipCount = 16

	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 30 * time.Second

	DefaultReply = "OK"
)
