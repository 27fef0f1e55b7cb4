// Package bus provides an in-process publish/subscribe channel for agent
// events. Agents notify each other through typed proto.Event values instead
// of calling into one another directly.
package bus

import (
	"sync"

	"assistant/pkg/logx"
	"assistant/pkg/proto"
)

// subscriberBuffer is the per-subscriber channel depth. Publish never blocks;
// events beyond this depth are dropped with a warning.
const subscriberBuffer = 16

// EventCounter counts published events by type. Satisfied by
// *metrics.Recorder.
type EventCounter interface {
	IncEvent(eventType string)
}

// Bus fans events out to subscribers by event type.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[proto.EventType][]chan *proto.Event
	logger      *logx.Logger
	counter     EventCounter
	closed      bool
}

// New creates a bus. counter may be nil to disable event counting.
func New(counter EventCounter) *Bus {
	return &Bus{
		subscribers: make(map[proto.EventType][]chan *proto.Event),
		logger:      logx.NewLogger("bus"),
		counter:     counter,
	}
}

// Subscribe registers interest in one event type and returns the delivery
// channel. The channel is closed when the bus shuts down.
func (b *Bus) Subscribe(eventType proto.EventType) <-chan *proto.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *proto.Event, subscriberBuffer)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// Publish delivers an event to all subscribers of its type. Delivery is
// best-effort: a full subscriber buffer drops the event rather than blocking
// the publishing agent.
func (b *Bus) Publish(evt *proto.Event) {
	if evt == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("Dropping event %s: bus is closed", evt.Type)
		return
	}

	if b.counter != nil {
		b.counter.IncEvent(string(evt.Type))
	}

	subs := b.subscribers[evt.Type]
	if len(subs) == 0 {
		b.logger.Debug("No subscribers for event %s from %s", evt.Type, evt.FromAgent)
		return
	}

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("Subscriber buffer full, dropping event %s from %s", evt.Type, evt.FromAgent)
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = make(map[proto.EventType][]chan *proto.Event)
}
