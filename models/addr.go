package models

import "strconv"

// VSockAddr is a vsock endpoint: context id and port.
type VSockAddr struct {
	ContextId uint32
	Port      uint32
}

func (va *VSockAddr) GetAddr() string {
	return strconv.FormatUint(uint64(va.ContextId), 10) + ":" + strconv.FormatUint(uint64(va.Port), 10)
}

// PeerID identifies the peer of an accepted connection. For vsock it is the
// peer context id; Known is false when the identity could not be read.
type PeerID struct {
	ContextId uint32
	Port      uint32
	Known     bool
}

func (p PeerID) String() string {
	if !p.Known {
		return "unknown"
	}
	return strconv.FormatUint(uint64(p.ContextId), 10) + ":" + strconv.FormatUint(uint64(p.Port), 10)
}
