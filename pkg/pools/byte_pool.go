package pools

import (
	"sync"
)

// Size classes. A saved layout for a few hundred nodes fits SmallSize; the
// largest graphs a session accepts need LargeSize.
const (
	SmallSize  = 4 << 10
	MediumSize = 64 << 10
	LargeSize  = 1 << 20
	MaxPool    = 4 << 20 // larger slices are never pooled
)

var classes = [...]int{SmallSize, MediumSize, LargeSize, MaxPool}

// BytePool pools byte slices by capacity class
type BytePool struct {
	pools [len(classes)]sync.Pool
}

// NewBytePool creates an empty pool
func NewBytePool() *BytePool {
	p := &BytePool{}
	for i, size := range classes {
		size := size
		p.pools[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

// class returns the smallest class holding size, or -1
func class(size int) int {
	for i, c := range classes {
		if size <= c {
			return i
		}
	}
	return -1
}

// Get returns an empty slice with capacity of at least size
func (p *BytePool) Get(size int) []byte {
	i := class(size)
	if i < 0 {
		return make([]byte, 0, size)
	}
	bp, ok := p.pools[i].Get().(*[]byte)
	if !ok || cap(*bp) < size {
		return make([]byte, 0, classes[i])
	}
	return (*bp)[:0]
}

// Put returns b for reuse. It is filed under the largest class its
// capacity satisfies, so Get never hands out a slice that is too small.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c < SmallSize || c > MaxPool {
		return
	}
	i := len(classes) - 1
	for i > 0 && classes[i] > c {
		i--
	}
	b = b[:0]
	p.pools[i].Put(&b)
}

var defaultBytePool = NewBytePool()

// GetBytes returns a slice from the default pool
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// PutBytes returns a slice to the default pool
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
