package events

import (
	"album-engine/internal/mailbox"
	"album-engine/internal/metrics"
)

// Bus is a tagged-union event queue with a single consumer.
type Bus struct {
	box *mailbox.Mailbox[Event]
}

// NewBus returns an open bus.
func NewBus() *Bus {
	return &Bus{box: mailbox.New[Event]()}
}

// Publish enqueues ev without blocking. Events published after Close are dropped.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	if b.box.Put(ev) {
		metrics.EventsPublishedTotal.WithLabelValues(ev.Kind()).Inc()
	}
}

// Events returns the channel the consumer loop reads from. It is closed after
// Close once all queued events have been received.
func (b *Bus) Events() <-chan Event {
	return b.box.C()
}

// Pending returns the number of events not yet received.
func (b *Bus) Pending() int {
	return b.box.Len()
}

// Close stops accepting events.
func (b *Bus) Close() {
	b.box.Close()
}
