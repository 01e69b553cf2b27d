package server

import "sync"

var recvBufPool sync.Pool

// getRecvBuf returns a request buffer of exactly size bytes.
func getRecvBuf(size int) *[]byte {
	if v := recvBufPool.Get(); v != nil {
		b := v.(*[]byte)
		if cap(*b) >= size {
			*b = (*b)[:size]
			return b
		}
	}
	b := make([]byte, size)
	return &b
}

func putRecvBuf(b *[]byte) {
	recvBufPool.Put(b)
}
