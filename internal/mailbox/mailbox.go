// Package mailbox provides an unbounded FIFO queue with a channel on the
// receive side. Senders never block, so background goroutines can report to
// a consumer that is busy or has not started reading yet.
package mailbox

import "sync"

// Mailbox is an unbounded queue of T.
type Mailbox[T any] struct {
	mu      sync.Mutex
	pending []T
	closed  bool
	wake    chan struct{}
	out     chan T
	done    chan struct{}
}

// New starts a mailbox and its forwarding goroutine.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go m.forward()
	return m
}

// Put appends v. It reports false if the mailbox is closed.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.pending = append(m.pending, v)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// C returns the receive channel. It is closed after Close once every queued
// value has been received.
func (m *Mailbox[T]) C() <-chan T {
	return m.out
}

// Len returns the number of values not yet handed to a receiver.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Close stops accepting values. Queued values are still delivered.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Abandon closes the mailbox and discards anything still queued. It waits for
// the forwarding goroutine to exit.
func (m *Mailbox[T]) Abandon() {
	m.mu.Lock()
	m.closed = true
	m.pending = nil
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}

	// Drain so a blocked send in forward can finish.
	for {
		select {
		case _, ok := <-m.out:
			if !ok {
				<-m.done
				return
			}
		case <-m.done:
			return
		}
	}
}

func (m *Mailbox[T]) forward() {
	defer close(m.done)
	defer close(m.out)

	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			closed := m.closed
			m.mu.Unlock()
			if closed {
				return
			}
			<-m.wake
			continue
		}
		v := m.pending[0]
		var zero T
		m.pending[0] = zero
		m.pending = m.pending[1:]
		m.mu.Unlock()

		m.out <- v
	}
}
