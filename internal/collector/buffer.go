package collector

import "sync"

// DefaultBufferCapacity holds 30 seconds of samples at 50Hz.
const DefaultBufferCapacity = 1500

// SampleBuffer is a fixed-capacity rolling window of the most recent samples.
// It is safe for concurrent use.
type SampleBuffer struct {
	mu    sync.Mutex
	items []Sample
	head  int // index of the oldest sample
	size  int
}

// NewSampleBuffer returns a buffer holding at most capacity samples.
// If capacity <= 0, DefaultBufferCapacity is used.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &SampleBuffer{items: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest sample when the buffer is full.
func (b *SampleBuffer) Push(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := len(b.items)
	if b.size < c {
		b.items[(b.head+b.size)%c] = s
		b.size++
		return
	}
	b.items[b.head] = s
	b.head = (b.head + 1) % c
}

// Occupancy returns the number of buffered samples.
func (b *SampleBuffer) Occupancy() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Capacity returns the maximum number of buffered samples.
func (b *SampleBuffer) Capacity() int {
	return len(b.items)
}

// Snapshot returns the buffered samples, oldest first.
func (b *SampleBuffer) Snapshot() []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Sample, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(b.head+i)%len(b.items)])
	}
	return out
}

// Range returns, in arrival order, every buffered sample whose timestamp
// falls within [fromNs, toNs] inclusive.
func (b *SampleBuffer) Range(fromNs, toNs int64) []Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Sample
	for i := 0; i < b.size; i++ {
		s := b.items[(b.head+i)%len(b.items)]
		if s.Timestamp >= fromNs && s.Timestamp <= toNs {
			out = append(out, s)
		}
	}
	return out
}
