package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/mnemo/pkg/eventstream"
)

// RecordingPublisher keeps every published memory event. Err, when set, is
// returned from every publish after recording the event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.MemoryEvent
	Err    error
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) PublishMemory(_ context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilMemoryEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

func (p *RecordingPublisher) Close() error {
	return nil
}

// Events returns the published events in order.
func (p *RecordingPublisher) Events() []*eventstream.MemoryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*eventstream.MemoryEvent, len(p.events))
	copy(out, p.events)
	return out
}
