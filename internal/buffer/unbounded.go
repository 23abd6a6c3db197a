// Package buffer provides an unbounded queue for handing values to slow readers.
package buffer

import (
	"sync"
)

// Unbounded is a FIFO queue whose Send never blocks. Values are delivered in order on
// the channel returned by Receive.
//
//	q := buffer.NewUnbounded[loopguard.Detection]()
//	go func() {
//	    for d := range q.Receive() {
//	        alert(d)
//	    }
//	}()
//	q.Send(d)  // never blocks
//	q.Close()  // Receive is closed once the backlog is delivered
type Unbounded[T any] struct {
	mu      sync.Mutex
	pending []T
	closed  bool

	// wake has capacity 1; a pending token means "pending or closed changed".
	wake chan struct{}
	out  chan T
}

// NewUnbounded creates a queue and starts its delivery goroutine.
func NewUnbounded[T any]() *Unbounded[T] {
	q := &Unbounded[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
	}
	go q.deliver()
	return q
}

func (q *Unbounded[T]) deliver() {
	defer close(q.out)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, v := range batch {
			q.out <- v
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}

func (q *Unbounded[T]) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Send enqueues v. Values sent after Close are dropped.
func (q *Unbounded[T]) Send(v T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, v)
	q.mu.Unlock()
	q.notify()
}

// Receive returns the delivery channel. It is closed after Close once every value
// sent before Close has been received.
func (q *Unbounded[T]) Receive() <-chan T {
	return q.out
}

// Close stops accepting values. Safe to call more than once.
func (q *Unbounded[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notify()
}

// Len returns the number of values not yet picked up by the delivery goroutine.
func (q *Unbounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
