// Package memory defines the records of the long-term memory engine.
//
// Memory is organized around four records: a [Resource] anchors where
// knowledge came from (a conversation, a document, a tool output), an [Item]
// is one atomic fact, a [Category] is a fixed topical bucket carrying a
// running natural-language digest, and a [CategoryItem] links facts to
// categories.
//
// Items are deduplicated by their content hash (see [ContentHash]). Saving
// the same fact twice does not create a second item; it reinforces the first
// one instead, which later feeds salience ranking.
package memory

import "time"

// MemoryType classifies an Item.
type MemoryType string

const (
	TypeProfile   MemoryType = "profile"
	TypeEvent     MemoryType = "event"
	TypeKnowledge MemoryType = "knowledge"
	TypeBehavior  MemoryType = "behavior"
	TypeSkill     MemoryType = "skill"
	TypeTool      MemoryType = "tool"
)

// MemoryTypes lists every known MemoryType.
var MemoryTypes = []MemoryType{
	TypeProfile,
	TypeEvent,
	TypeKnowledge,
	TypeBehavior,
	TypeSkill,
	TypeTool,
}

// Valid reports whether t is one of the known memory types.
func (t MemoryType) Valid() bool {
	for _, known := range MemoryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Modality values for Resource.Modality.
const (
	ModalityConversation = "conversation"
	ModalityDocument     = "document"
	ModalityImage        = "image"
)

// Record holds the fields shared by every memory record.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resource is an external or synthetic source of information.
type Resource struct {
	Record

	URL       string    `json:"url"`
	Modality  string    `json:"modality"`
	LocalPath string    `json:"local_path"`
	Caption   *string   `json:"caption,omitempty"`
	Embedding []float32 `json:"-"`
}

// Extra is the reinforcement bookkeeping attached to every Item.
type Extra struct {
	ContentHash        string     `json:"content_hash"`
	ReinforcementCount int        `json:"reinforcement_count"`
	LastReinforcedAt   *time.Time `json:"last_reinforced_at,omitempty"`
}

// Item is one atomic fact.
type Item struct {
	Record

	ResourceID *string    `json:"resource_id,omitempty"`
	MemoryType MemoryType `json:"memory_type"`
	Summary    string     `json:"summary"`
	Embedding  []float32  `json:"-"`
	HappenedAt *time.Time `json:"happened_at,omitempty"`
	Extra      Extra      `json:"extra"`
}

// Category is a topical bucket with an evolving summary.
type Category struct {
	Record

	Name        string    `json:"name"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"-"`
	Summary     string    `json:"summary"`
}

// CategoryItem links an Item to a Category.
type CategoryItem struct {
	Record

	ItemID     string `json:"item_id"`
	CategoryID string `json:"category_id"`
}

// Clone returns a deep copy of r.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	c := *r
	c.Caption = cloneString(r.Caption)
	c.Embedding = cloneVector(r.Embedding)
	return &c
}

// Clone returns a deep copy of i.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.ResourceID = cloneString(i.ResourceID)
	c.Embedding = cloneVector(i.Embedding)
	c.HappenedAt = cloneTime(i.HappenedAt)
	c.Extra.LastReinforcedAt = cloneTime(i.Extra.LastReinforcedAt)
	return &c
}

// Clone returns a deep copy of c.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Embedding = cloneVector(c.Embedding)
	return &cp
}

// Clone returns a copy of ci.
func (ci *CategoryItem) Clone() *CategoryItem {
	if ci == nil {
		return nil
	}
	c := *ci
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
