package errors

import "syscall"

// Code identifies the stage of a request/reply exchange that failed.
type Code int

const (
	CodeOK Code = iota

	CodeAddressFamily
	CodeAddressFamilyMissing
	CodeSocketOpen
	CodeBind
	CodeBindExhausted
	CodeListen
	CodeAccept
	CodeConnect
	CodeSockaddrGet

	CodeMagicSend
	CodeLenSend
	CodeContentSend
	CodeMagicReceive
	CodeBadMagic
	CodeLenReceive
	CodeContentReceive

	CodeLenMismatch
	CodeMallocFailed
	CodeBufTooSmall
	CodeTooLarge

	CodeBadBackend
)

var codeText = map[Code]string{
	CodeOK:                   "success",
	CodeAddressFamily:        "failed to get vsock address family",
	CodeAddressFamilyMissing: "missing vsock address family (internal error)",
	CodeSocketOpen:           "failed to open vsock socket",
	CodeBind:                 "failed to bind vsock socket",
	CodeBindExhausted:        "no free source port to bind",
	CodeListen:               "failed to listen on vsock socket",
	CodeAccept:               "failed on accept on vsock socket",
	CodeConnect:              "failed to connect to vsock socket",
	CodeSockaddrGet:          "failed sockaddr get",
	CodeMagicSend:            "failed MAGIC send",
	CodeLenSend:              "failed LEN send",
	CodeContentSend:          "failed content send",
	CodeMagicReceive:         "failed MAGIC receive",
	CodeBadMagic:             "bad MAGIC received",
	CodeLenReceive:           "failed LEN receive",
	CodeContentReceive:       "failed to receive content",
	CodeLenMismatch:          "message length mismatch",
	CodeMallocFailed:         "failed buffer allocation",
	CodeBufTooSmall:          "request buffer is too small",
	CodeTooLarge:             "message exceeds size limit",
	CodeBadBackend:           "bad back end name",
}

func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return "unknown error"
}

// errno is used when the failure carries no OS error of its own.
var errno = map[Code]syscall.Errno{
	CodeAddressFamily:        syscall.EAFNOSUPPORT,
	CodeAddressFamilyMissing: syscall.EAFNOSUPPORT,
	CodeBindExhausted:        syscall.EADDRINUSE,
	CodeBadMagic:             syscall.EPROTO,
	CodeLenMismatch:          syscall.EPROTO,
	CodeMallocFailed:         syscall.ENOMEM,
	CodeBufTooSmall:          syscall.EMSGSIZE,
	CodeTooLarge:             syscall.EMSGSIZE,
	CodeBadBackend:           syscall.ENODEV,
}
