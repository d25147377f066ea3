package mocks

import (
	"context"
	"sync"

	"github.com/vytor/realorai/internal/events"
)

// RecordingPublisher is an events.Publisher that keeps everything it receives.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// Events returns a copy of the published events.
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Types returns the published event types in order.
func (p *RecordingPublisher) Types() []string {
	var types []string
	for _, ev := range p.Events() {
		types = append(types, ev.Type)
	}
	return types
}
