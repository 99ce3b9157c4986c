// Package ring provides a fixed-capacity FIFO buffer suitable for a single
// producer and a single consumer operating concurrently without a lock.
//
// The buffer stores values in buffer[head..head+count) modulo capacity and
// maintains head, tail and count with acquire/release atomics so that a
// successful Push happens-before the matching Pop observes the value, and
// so that ForcePush's overwrite of the oldest slot is never observed as a
// torn or uninitialized read by a concurrent Pop.
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by Push when the buffer is at capacity.
var ErrFull = errors.New("ring: buffer is full")

// ErrEmpty is returned by Pop when the buffer holds no elements.
var ErrEmpty = errors.New("ring: buffer is empty")

// Buffer is a fixed-capacity FIFO of T. The zero value is not usable; build
// one with New. All operations except Snapshot, which copies the contents,
// are O(1).
type Buffer[T any] struct {
	data     []T
	capacity int
	head     atomic.Uint64
	tail     atomic.Uint64
	count    atomic.Uint64
}

// New creates a Buffer with the given strictly positive capacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// Capacity returns the fixed capacity the buffer was created with.
func (b *Buffer[T]) Capacity() int { return b.capacity }

// Len returns the number of elements currently stored.
func (b *Buffer[T]) Len() int { return int(b.count.Load()) }

// IsEmpty reports whether the buffer holds no elements.
func (b *Buffer[T]) IsEmpty() bool { return b.Len() == 0 }

// IsFull reports whether the buffer is at capacity.
func (b *Buffer[T]) IsFull() bool { return b.Len() == b.capacity }

// Push appends item at the tail. It returns ErrFull without modifying the
// buffer if the buffer is already at capacity.
func (b *Buffer[T]) Push(item T) error {
	tail := b.tail.Load()
	count := b.count.Load()
	if int(count) == b.capacity {
		return ErrFull
	}
	b.data[int(tail)%b.capacity] = item
	b.tail.Store((tail + 1) % uint64(b.capacity))
	b.count.Add(1)
	return nil
}

// ForcePush appends item at the tail, overwriting the oldest element if the
// buffer is at capacity. It never fails. On overflow, head is advanced
// before the new value is written so a concurrent Pop either observes the
// old element or the new one, never a half-written slot.
func (b *Buffer[T]) ForcePush(item T) {
	tail := b.tail.Load()
	count := b.count.Load()
	if int(count) == b.capacity {
		head := b.head.Load()
		b.head.Store((head + 1) % uint64(b.capacity))
	} else {
		b.count.Add(1)
	}
	b.data[int(tail)%b.capacity] = item
	b.tail.Store((tail + 1) % uint64(b.capacity))
}

// Snapshot returns a copy of every element currently stored, oldest first,
// without removing them. It is intended for single-consumer readers that
// want to inspect the buffer's contents (e.g. rendering a scrollback) rather
// than drain it.
func (b *Buffer[T]) Snapshot() []T {
	count := int(b.count.Load())
	head := int(b.head.Load())
	out := make([]T, count)
	for i := 0; i < count; i++ {
		out[i] = b.data[(head+i)%b.capacity]
	}
	return out
}

// Pop removes and returns the oldest element, or ErrEmpty if none remain.
func (b *Buffer[T]) Pop() (T, error) {
	var zero T
	head := b.head.Load()
	count := b.count.Load()
	if count == 0 {
		return zero, ErrEmpty
	}
	item := b.data[int(head)%b.capacity]
	b.head.Store((head + 1) % uint64(b.capacity))
	b.count.Add(^uint64(0)) // count - 1
	return item, nil
}
