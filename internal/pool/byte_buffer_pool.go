// Package pool provides reusable byte buffers for the hot path that reads
// blocked binary streams: rawbin.Reader staging the raw bytes of each
// block before reshaping them into float32 columns.
package pool

import (
	"io"
	"sync"
)

// Default and max sizes for the block staging pool. A typical signal block
// (e.g. 256 channels * 128 samples * 4 bytes = 128KiB) outgrows the
// default once and then stays well under the max threshold; the max
// threshold keeps one oversized block from permanently growing the pool's
// retained memory.
const (
	BlockBufferDefaultSize  = 1024 * 64   // 64KiB
	BlockBufferMaxThreshold = 1024 * 1024 // 1MiB
)

// ByteBuffer is a growable byte slice that can be reset and returned to a
// pool instead of freed.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the given starting capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the underlying slice.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Reset empties the buffer while keeping its backing array.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// Len returns the buffer's current length.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Cap returns the buffer's current capacity.
func (bb *ByteBuffer) Cap() int { return cap(bb.B) }

// Grow ensures the buffer can hold at least requiredBytes more bytes without
// reallocating, copying existing content into a larger backing array if
// needed. Growth is by a fixed default size for small buffers and by 25% of
// current capacity for larger ones, to balance memory use against the cost
// of repeated reallocation on long streams.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	if cap(bb.B)-len(bb.B) >= requiredBytes {
		return
	}

	growBy := BlockBufferDefaultSize
	if cap(bb.B) > 4*BlockBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// SetLength resizes the buffer to exactly n bytes, growing the backing
// array first if necessary. Bytes beyond the previous length are not
// zeroed; callers read or write into them immediately after resizing.
func (bb *ByteBuffer) SetLength(n int) {
	if n < 0 {
		panic("pool: SetLength with negative length")
	}
	if n > len(bb.B) {
		bb.Grow(n - len(bb.B))
	}
	bb.B = bb.B[:n]
}

// Write appends data to the buffer, growing it as needed. It satisfies
// io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.Grow(len(data))
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the buffer's contents to w. It satisfies io.WriterTo.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a sync.Pool of ByteBuffers with a retention size cap.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a pool whose buffers start at defaultSize and
// are discarded, rather than retained, once they grow past maxThreshold.
func NewByteBufferPool(defaultSize, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool, allocating one if empty.
func (p *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns bb to the pool after resetting it, unless it has grown past
// the pool's retention threshold.
func (p *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

var blockBufferPool = NewByteBufferPool(BlockBufferDefaultSize, BlockBufferMaxThreshold)

// GetBlockBuffer retrieves a ByteBuffer from the shared block-staging pool.
func GetBlockBuffer() *ByteBuffer { return blockBufferPool.Get() }

// PutBlockBuffer returns bb to the shared block-staging pool.
func PutBlockBuffer(bb *ByteBuffer) { blockBufferPool.Put(bb) }
