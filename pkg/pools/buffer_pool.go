package pools

import (
	"bytes"
	"sync"
)

// DefaultMaxRetained is the largest buffer the default pool keeps
const DefaultMaxRetained = 8 << 20

// BufferPool pools bytes.Buffer values. Buffers that grew beyond
// maxRetained are dropped on Put so one huge frame does not pin memory.
type BufferPool struct {
	pool        sync.Pool
	maxRetained int
}

// NewBufferPool creates a pool that keeps buffers up to maxRetained bytes
func NewBufferPool(maxRetained int) *BufferPool {
	return &BufferPool{
		pool:        sync.Pool{New: func() any { return new(bytes.Buffer) }},
		maxRetained: maxRetained,
	}
}

// Get returns an empty buffer
func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf for reuse. buf must not be used afterwards.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > p.maxRetained {
		return
	}
	p.pool.Put(buf)
}

var defaultBufferPool = NewBufferPool(DefaultMaxRetained)

// GetBuffer returns a buffer from the default pool
func GetBuffer() *bytes.Buffer {
	return defaultBufferPool.Get()
}

// PutBuffer returns a buffer to the default pool
func PutBuffer(buf *bytes.Buffer) {
	defaultBufferPool.Put(buf)
}
