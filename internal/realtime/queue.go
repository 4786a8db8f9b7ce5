package realtime

import "sync/atomic"

// LatestOnly is a single-slot mailbox. Put overwrites any unread item and
// Get takes whatever is there; neither blocks. It is safe for one producer
// and any number of consumers.
type LatestOnly[T any] struct {
	slot    atomic.Pointer[T]
	puts    atomic.Uint64
	dropped atomic.Uint64
}

func NewLatestOnly[T any]() *LatestOnly[T] {
	return &LatestOnly[T]{}
}

// Put stores item, counting a drop when an unread item is replaced.
func (q *LatestOnly[T]) Put(item T) {
	v := item
	if old := q.slot.Swap(&v); old != nil {
		q.dropped.Add(1)
	}
	q.puts.Add(1)
}

// Get removes and returns the newest item, or false when there is none.
func (q *LatestOnly[T]) Get() (T, bool) {
	p := q.slot.Swap(nil)
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Pending reports whether an unread item is waiting.
func (q *LatestOnly[T]) Pending() bool { return q.slot.Load() != nil }

func (q *LatestOnly[T]) Dropped() uint64 { return q.dropped.Load() }

func (q *LatestOnly[T]) Puts() uint64 { return q.puts.Load() }
