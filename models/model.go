package models

import "github.com/brodyxchen/vsockcmd/constant"

const (
	HeaderSize = constant.HeaderSize
)

// Header precedes every payload on the wire.
type Header struct {
	Magic  uint32
	Length uint32 // payload bytes, terminator included
}
