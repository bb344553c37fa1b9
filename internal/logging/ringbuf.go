package logging

import "sync"

// RingBuffer keeps the last size bytes written to it.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []byte
	pos  int
	full bool
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{buf: make([]byte, max(size, 1))}
}

// Write appends p, overwriting the oldest bytes once the buffer is full.
// It never fails.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(p)
	if n >= len(rb.buf) {
		copy(rb.buf, p[n-len(rb.buf):])
		rb.pos = 0
		rb.full = true
		return n, nil
	}
	c := copy(rb.buf[rb.pos:], p)
	if c < n {
		copy(rb.buf, p[c:])
		rb.full = true
	}
	rb.pos = (rb.pos + n) % len(rb.buf)
	if rb.pos == 0 && n > 0 {
		rb.full = true
	}
	return n, nil
}

// Read returns a copy of the last n bytes, or everything held when fewer
// are available.
func (rb *RingBuffer) Read(n int) []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n = min(n, rb.len())
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	start := rb.pos - n
	if start >= 0 {
		copy(out, rb.buf[start:rb.pos])
		return out
	}
	c := copy(out, rb.buf[len(rb.buf)+start:])
	copy(out[c:], rb.buf[:rb.pos])
	return out
}

// Bytes returns everything held, oldest first.
func (rb *RingBuffer) Bytes() []byte {
	return rb.Read(len(rb.buf))
}

// Len returns the number of bytes stored.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.len()
}

func (rb *RingBuffer) len() int {
	if rb.full {
		return len(rb.buf)
	}
	return rb.pos
}

// Reset clears the buffer.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.pos = 0
	rb.full = false
}
