package constant

import "time"

const (
	// DefaultMagic opens every frame on the wire, request and reply alike.
	DefaultMagic = uint32(0x0BADBEEF)

	HeaderSize = 8 // magic + length

	HostContextId      = uint32(2) // host side of the hypervisor socket family
	DefaultServicePort = uint32(15000)

	// MaxRequestBytes bounds both the request a client sends and the reply it will accept.
	MaxRequestBytes = 1 << 20

	StartClientPort = uint32(100)  // first source port tried by the client
	MaxClientPort   = uint32(1023) // last privileged port

	ClientTimeout = 30 * time.Second

	DefaultBackend = "vsocket"
	DummyBackend   = "dummy"
	TCPBackend     = "tcp"

	DummyReply = "none"
)
