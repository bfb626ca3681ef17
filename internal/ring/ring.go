// Package ring provides a fixed-capacity FIFO that overwrites its oldest
// entry when full. It backs the MQTT replay buffer and the event logger's
// recent-entries view.
package ring

// Buffer holds at most Cap() values, oldest first.
// Not safe for concurrent use; callers synchronize.
type Buffer[T any] struct {
	items []T
	head  int // next write position
	count int
}

// New creates a Buffer. Capacities below one are raised to one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v and reports whether the oldest value was overwritten.
func (b *Buffer[T]) Push(v T) (dropped bool) {
	b.items[b.head] = v
	b.head = (b.head + 1) % len(b.items)
	if b.count == len(b.items) {
		return true
	}
	b.count++
	return false
}

// Items returns a copy of the contents, oldest first. Never nil.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.count)
	start := (b.head - b.count + len(b.items)) % len(b.items)
	for i := range out {
		out[i] = b.items[(start+i)%len(b.items)]
	}
	return out
}

// Drain returns the contents oldest first and empties the buffer.
// Returns nil when empty.
func (b *Buffer[T]) Drain() []T {
	if b.count == 0 {
		return nil
	}
	out := b.Items()
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head, b.count = 0, 0
	return out
}

func (b *Buffer[T]) Len() int { return b.count }

func (b *Buffer[T]) Cap() int { return len(b.items) }
