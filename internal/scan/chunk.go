package scan

import "sync/atomic"

// chunk is a ref-counted read buffer backing TextPart/Element slices taken
// out in file-source mode. It is modeled on jcorbin-soc's
// internal/scanio.ByteArena, generalized from an arena-relative offset
// scheme to an explicit atomic reference count: a chunk's backing array is
// only released once every live slice referencing it has called release,
// which lets the scanner bound memory during a streamed render instead of
// waiting on the next GC cycle.
type chunk struct {
	buf  []byte
	refs int32
}

func newChunk(capacity int) *chunk {
	return &chunk{buf: make([]byte, 0, capacity)}
}

// retain adds a reference. Called once per TextPart/Element slice taken
// out of the chunk.
func (c *chunk) retain() {
	if c == nil {
		return
	}
	atomic.AddInt32(&c.refs, 1)
}

// release drops a reference, freeing the backing array once the count
// reaches zero.
func (c *chunk) release() {
	if c == nil {
		return
	}
	if atomic.AddInt32(&c.refs, -1) == 0 {
		c.buf = nil
	}
}
