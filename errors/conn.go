package errors

import (
	"errors"
	"io"
	"syscall"
)

// ConnError is the only error shape returned by the client and server cores.
// Code names the failed stage, Op the operation that hit it, Err the underlying cause.
type ConnError struct {
	Code Code
	Op   string
	Err  error
}

func (e *ConnError) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// Is matches a bare sentinel of the same code.
func (e *ConnError) Is(target error) bool {
	t, ok := target.(*ConnError)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Code == e.Code
}

// Errno reports the OS error code surfaced at the process boundary.
func (e *ConnError) Errno() syscall.Errno {
	var en syscall.Errno
	if errors.As(e.Err, &en) {
		return en
	}
	if v, ok := errno[e.Code]; ok {
		return v
	}
	if errors.Is(e.Err, io.EOF) || errors.Is(e.Err, io.ErrUnexpectedEOF) {
		return syscall.ECONNRESET
	}
	return syscall.EIO
}

func Stage(code Code, op string, err error) *ConnError {
	return &ConnError{Code: code, Op: op, Err: err}
}

// CodeOf returns the stage code carried by err, CodeOK for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var ce *ConnError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return -1
}

// Errno reports the boundary error code for any error, 0 for nil.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var ce *ConnError
	if errors.As(err, &ce) {
		return ce.Errno()
	}
	var en syscall.Errno
	if errors.As(err, &en) {
		return en
	}
	return syscall.EIO
}

var (
	ErrAddressFamily = &ConnError{Code: CodeAddressFamily}
	ErrSocketOpen    = &ConnError{Code: CodeSocketOpen}
	ErrBind          = &ConnError{Code: CodeBind}
	ErrBindExhausted = &ConnError{Code: CodeBindExhausted}
	ErrListen        = &ConnError{Code: CodeListen}
	ErrAccept        = &ConnError{Code: CodeAccept}
	ErrConnect       = &ConnError{Code: CodeConnect}

	ErrMagicSend      = &ConnError{Code: CodeMagicSend}
	ErrLenSend        = &ConnError{Code: CodeLenSend}
	ErrContentSend    = &ConnError{Code: CodeContentSend}
	ErrMagicReceive   = &ConnError{Code: CodeMagicReceive}
	ErrBadMagic       = &ConnError{Code: CodeBadMagic}
	ErrLenReceive     = &ConnError{Code: CodeLenReceive}
	ErrContentReceive = &ConnError{Code: CodeContentReceive}

	ErrLenMismatch  = &ConnError{Code: CodeLenMismatch}
	ErrMallocFailed = &ConnError{Code: CodeMallocFailed}
	ErrBufTooSmall  = &ConnError{Code: CodeBufTooSmall}
	ErrTooLarge     = &ConnError{Code: CodeTooLarge}

	ErrBadBackend = &ConnError{Code: CodeBadBackend}
)

var (
	ErrClosed      = errors.New("socket is closed")
	ErrNotBindable = errors.New("transport does not support source port binding")
)
