package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemorized is emitted after a transcript was memorized.
	EventTypeMemorized = "mnemo.memory.memorized"

	// EventTypeSaved is emitted after a single fact was saved directly.
	EventTypeSaved = "mnemo.memory.saved"
)

// MemoryEvent is a transport-neutral event payload describing a committed
// memory write.
type MemoryEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	AgentID       string    `json:"agent_id"`

	// ResourceID anchors the write.
	ResourceID string `json:"resource_id"`

	// ItemIDs are the items created or reinforced, in write order.
	ItemIDs []string `json:"item_ids"`

	Reinforced        int `json:"reinforced"`
	CategoriesUpdated int `json:"categories_updated,omitempty"`

	// Categories names the categories the items were linked to.
	Categories []string `json:"categories,omitempty"`
}

// NewMemoryEvent returns an event of eventType for agentID with a fresh id
// and timestamp.
func NewMemoryEvent(eventType, agentID string, now time.Time) *MemoryEvent {
	return &MemoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
		AgentID:       agentID,
	}
}
