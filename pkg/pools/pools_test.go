package pools

import (
	"sync"
	"testing"
)

func TestBytePool_Get(t *testing.T) {
	p := NewBytePool()
	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{"tiny rounds up to small", 10, SmallSize},
		{"small", SmallSize, SmallSize},
		{"medium", SmallSize + 1, MediumSize},
		{"large", MediumSize + 1, LargeSize},
		{"max", LargeSize + 1, MaxPool},
		{"oversized", MaxPool + 1, MaxPool + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := p.Get(tt.size)
			if len(b) != 0 {
				t.Errorf("len = %d, want 0", len(b))
			}
			if cap(b) < tt.size {
				t.Errorf("cap = %d, smaller than requested %d", cap(b), tt.size)
			}
			if cap(b) != tt.wantCap {
				t.Errorf("cap = %d, want %d", cap(b), tt.wantCap)
			}
		})
	}
}

func TestBytePool_PutFilesByCapacity(t *testing.T) {
	p := NewBytePool()

	// 100KB satisfies the medium class but not large
	b := make([]byte, 10, 100<<10)
	p.Put(b)
	got := p.Get(MediumSize)
	if cap(got) < MediumSize || len(got) != 0 {
		t.Errorf("got len=%d cap=%d", len(got), cap(got))
	}

	large := p.Get(LargeSize)
	if cap(large) < LargeSize {
		t.Errorf("a large request must never get a smaller slice, cap = %d", cap(large))
	}
}

func TestBytePool_IgnoresUnpoolableSizes(t *testing.T) {
	p := NewBytePool()
	p.Put(make([]byte, 0, 16))
	p.Put(make([]byte, 0, MaxPool+1))
	p.Put(nil)
	if b := p.Get(1); cap(b) != SmallSize {
		t.Errorf("cap = %d, want %d", cap(b), SmallSize)
	}
}

func TestDefaultBytePool(t *testing.T) {
	b := GetBytes(1000)
	b = append(b, "layout"...)
	PutBytes(b)
	if b := GetBytes(1000); len(b) != 0 {
		t.Errorf("reused slice not reset, len = %d", len(b))
	}
}

func TestBufferPool(t *testing.T) {
	p := NewBufferPool(1 << 10)

	buf := p.Get()
	buf.WriteString("<svg/>")
	p.Put(buf)
	if again := p.Get(); again.Len() != 0 {
		t.Errorf("reused buffer not reset, len = %d", again.Len())
	}

	big := p.Get()
	big.Grow(4 << 10)
	p.Put(big) // dropped: above maxRetained
	p.Put(nil)
}

func TestDefaultBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("frame")
	PutBuffer(buf)
	if GetBuffer().Len() != 0 {
		t.Error("default pool returned a dirty buffer")
	}
}

func TestPools_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b := GetBytes(SmallSize * (1 + i%3))
				b = append(b, byte(j))
				PutBytes(b)

				buf := GetBuffer()
				buf.WriteByte(byte(j))
				PutBuffer(buf)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkBytePool_Get(b *testing.B) {
	p := NewBytePool()
	for i := 0; i < b.N; i++ {
		buf := p.Get(MediumSize)
		p.Put(buf)
	}
}

func BenchmarkBytePool_WithoutPool(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = make([]byte, 0, MediumSize)
	}
}
