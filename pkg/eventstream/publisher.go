// Package eventstream publishes committed memory writes to an event stream
// so other services can follow what an agent learns.
package eventstream

import "context"

// Publisher publishes memory events to an event stream backend.
type Publisher interface {
	PublishMemory(ctx context.Context, event *MemoryEvent) error
	Close() error
}
