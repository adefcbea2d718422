// Package ringchan provides a bounded channel with overwrite-oldest
// semantics, used to buffer scan advertisements without ever blocking
// the radio callback.
package ringchan

import "sync/atomic"

// RingChannel wraps a buffered channel so that producers never block:
// when the buffer is full, Send discards the oldest element to make
// room. Consumers read through C(), Receive or TryReceive.
type RingChannel[T any] struct {
	ch      chan T
	metrics Metrics
}

func New[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel. Reads through it
// bypass the Processed counter.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send inserts a value, discarding the oldest buffered element when
// the buffer is full. It never blocks indefinitely.
func (rc *RingChannel[T]) Send(v T) {
	select {
	case rc.ch <- v:
		rc.metrics.addWritten(1)
	default:
		<-rc.ch // drop oldest
		rc.metrics.addOverwritten(1)
		rc.ch <- v
		rc.metrics.addWritten(1)
	}
}

// TrySend inserts without blocking and without discarding; it returns
// false when the buffer is full.
func (rc *RingChannel[T]) TrySend(v T) bool {
	select {
	case rc.ch <- v:
		rc.metrics.addWritten(1)
		return true
	default:
		return false
	}
}

// Receive blocks until a value arrives or the channel is closed.
func (rc *RingChannel[T]) Receive() (v T, ok bool) {
	v, ok = <-rc.ch
	if ok {
		rc.metrics.addProcessed(1)
	}
	return
}

// TryReceive performs a non-blocking receive.
func (rc *RingChannel[T]) TryReceive() (v T, ok bool) {
	select {
	case v, ok = <-rc.ch:
		if ok {
			rc.metrics.addProcessed(1)
		}
		return
	default:
		var zero T
		return zero, false
	}
}

func (rc *RingChannel[T]) Len() int { return len(rc.ch) }
func (rc *RingChannel[T]) Cap() int { return cap(rc.ch) }

// Close closes the underlying channel. Send panics afterwards.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}

// GetMetrics returns an atomic snapshot of the counters.
func (rc *RingChannel[T]) GetMetrics() Metrics {
	return Metrics{
		Processed:   atomic.LoadInt64(&rc.metrics.Processed),
		Written:     atomic.LoadInt64(&rc.metrics.Written),
		Overwritten: atomic.LoadInt64(&rc.metrics.Overwritten),
	}
}

// Metrics counts ring traffic. All fields are updated atomically.
type Metrics struct {
	Processed   int64
	Written     int64
	Overwritten int64
}

func (m *Metrics) addProcessed(n int)   { atomic.AddInt64(&m.Processed, int64(n)) }
func (m *Metrics) addWritten(n int)     { atomic.AddInt64(&m.Written, int64(n)) }
func (m *Metrics) addOverwritten(n int) { atomic.AddInt64(&m.Overwritten, int64(n)) }
