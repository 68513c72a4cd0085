package service

import (
	"sync"

	"vidmill/internal/port"
)

// JobEvent is an Event tagged with the job it belongs to, delivered on
// firehose subscriptions.
type JobEvent struct {
	JobID string     `json:"job_id"`
	Event port.Event `json:"event"`
}

// EventBus fans job transition events out to per-job subscribers and to
// firehose subscribers watching every job (admin views). It implements the
// notification hook; nothing depends on it for correctness.
type EventBus struct {
	mu       sync.RWMutex
	perJob   map[string][]chan port.Event
	firehose []chan JobEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		perJob: make(map[string][]chan port.Event),
	}
}

// Subscribe returns a channel receiving events for one job.
func (b *EventBus) Subscribe(jobID string) chan port.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan port.Event, 16)
	b.perJob[jobID] = append(b.perJob[jobID], ch)
	return ch
}

func (b *EventBus) Unsubscribe(jobID string, ch chan port.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.perJob[jobID]
	for i, sub := range subs {
		if sub == ch {
			b.perJob[jobID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.perJob[jobID]) == 0 {
		delete(b.perJob, jobID)
	}
}

// SubscribeAll returns a channel receiving every job's events.
func (b *EventBus) SubscribeAll() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan JobEvent, 64)
	b.firehose = append(b.firehose, ch)
	return ch
}

func (b *EventBus) UnsubscribeAll(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.firehose {
		if sub == ch {
			b.firehose = append(b.firehose[:i], b.firehose[i+1:]...)
			close(ch)
			break
		}
	}
}

// Notify implements port.Notifier. Slow subscribers drop events rather than
// blocking the scheduler.
func (b *EventBus) Notify(jobID string, event port.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.perJob[jobID] {
		select {
		case ch <- event:
		default:
		}
	}
	for _, ch := range b.firehose {
		select {
		case ch <- JobEvent{JobID: jobID, Event: event}:
		default:
		}
	}
}

var _ port.Notifier = (*EventBus)(nil)
