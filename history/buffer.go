/*Package history keeps bounded time series of per-channel values.

A Buffer holds at most Cap values and drops the oldest on overflow.  The
series exported by this package are written in a whitespace delimited text
layout, one series per row, that numpy.loadtxt reads directly.

*/
package history

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is generated when a capacity below 1 is requested
	ErrInvalidCapacity = errors.New("history capacity must be at least 1")

	// ErrCapacityViolation is generated by Check if a buffer holds more values
	// than its capacity.  It indicates a bug, not a user error
	ErrCapacityViolation = errors.New("history buffer exceeds its capacity")
)

// Buffer is a fixed capacity FIFO of float64 values.  It is not thread safe.
type Buffer struct {
	data []float64
	head int
	n    int
}

// New returns an empty buffer with the given capacity
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{data: make([]float64, capacity)}, nil
}

// Append adds v to the end of the buffer, evicting the oldest value if full
func (b *Buffer) Append(v float64) {
	c := len(b.data)
	if b.n < c {
		b.data[(b.head+b.n)%c] = v
		b.n++
		return
	}
	b.data[b.head] = v
	b.head = (b.head + 1) % c
}

// SetCapacity changes the capacity.  If the buffer holds more than n values
// the oldest are evicted immediately
func (b *Buffer) SetCapacity(n int) error {
	if n < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidCapacity, n)
	}
	vals := b.Values()
	if len(vals) > n {
		vals = vals[len(vals)-n:]
	}
	b.data = make([]float64, n)
	copy(b.data, vals)
	b.head = 0
	b.n = len(vals)
	return nil
}

// Values returns a copy of the contents, oldest first
func (b *Buffer) Values() []float64 {
	out := make([]float64, b.n)
	c := len(b.data)
	for i := range out {
		out[i] = b.data[(b.head+i)%c]
	}
	return out
}

// Len returns the number of values held
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the capacity
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Last returns the most recent value.  ok is false if the buffer is empty
func (b *Buffer) Last() (v float64, ok bool) {
	if b.n == 0 {
		return 0, false
	}
	return b.data[(b.head+b.n-1)%len(b.data)], true
}

// Reset empties the buffer, keeping its capacity
func (b *Buffer) Reset() {
	b.head = 0
	b.n = 0
}

// Check verifies 1 <= Cap and Len <= Cap
func (b *Buffer) Check() error {
	if len(b.data) < 1 || b.n > len(b.data) || b.n < 0 {
		return fmt.Errorf("%w: len %d cap %d", ErrCapacityViolation, b.n, len(b.data))
	}
	return nil
}
