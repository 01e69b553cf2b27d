package client

import "sync"

// Replies up to pooledReplySize reuse buffers; larger ones are plain allocations.
const pooledReplySize = 64 << 10

var replyBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, pooledReplySize)
		return &b
	},
}

func getReplyBuf(n int) *[]byte {
	if n > pooledReplySize {
		b := make([]byte, n)
		return &b
	}
	return replyBufPool.Get().(*[]byte)
}

func putReplyBuf(b *[]byte) {
	if b == nil || cap(*b) != pooledReplySize {
		return
	}
	replyBufPool.Put(b)
}
