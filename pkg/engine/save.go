package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/mnemo/pkg/categories"
	"github.com/papercomputeco/mnemo/pkg/eventstream"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
)

const savedResourceURL = "tool:save_memory"

// SaveInput is one fact handed to Save.
type SaveInput struct {
	Content string

	// Category defaults to categories.Default.
	Category string

	// MemoryType defaults to memory.TypeProfile.
	MemoryType memory.MemoryType
}

// SaveResult reports the item Save wrote or reinforced.
type SaveResult struct {
	Item       *memory.Item `json:"item"`
	Reinforced bool         `json:"reinforced"`
	Category   string       `json:"category"`
}

// Save stores one explicit fact without an extraction call. A fact that is
// already known is reinforced instead of duplicated.
func (e *Engine) Save(ctx context.Context, agentID string, in SaveInput) (*SaveResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, memory.ErrEmptySummary
	}

	name := strings.ToLower(strings.TrimSpace(in.Category))
	if name == "" {
		name = categories.Default
	}
	if _, ok := categories.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, in.Category)
	}

	memType := in.MemoryType
	if memType == "" {
		memType = memory.TypeProfile
	}
	if !memType.Valid() {
		return nil, fmt.Errorf("%w: %q", memory.ErrInvalidMemoryType, memType)
	}

	as, err := e.open(ctx, agentID)
	if err != nil {
		return nil, err
	}
	store := as.store

	cat, err := store.Categories().GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting category %s: %w", name, err)
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: %q is not bootstrapped", ErrUnknownCategory, name)
	}

	res, err := store.Resources().Create(ctx, storage.ResourceInput{
		URL:      savedResourceURL,
		Modality: memory.ModalityConversation,
		Caption:  &content,
	})
	if err != nil {
		return nil, fmt.Errorf("creating saved resource: %w", err)
	}

	vec := e.embedPadded(ctx, agentID, []string{content})[0]

	item, reinforced, err := store.Items().CreateOrReinforce(ctx, storage.ItemInput{
		ResourceID: &res.ID,
		MemoryType: memType,
		Summary:    content,
		Embedding:  vec,
	})
	if err != nil {
		return nil, fmt.Errorf("writing memory item: %w", err)
	}
	e.metrics.RecordItemWritten(reinforced)

	if _, err := store.Relations().Link(ctx, item.ID, cat.ID); err != nil {
		return nil, fmt.Errorf("linking item %s to category %s: %w", item.ID, name, err)
	}

	e.logger.Info("saved memory", "agent_id", agentID, "item_id", item.ID, "category", name, "reinforced", reinforced)

	event := eventstream.NewMemoryEvent(eventstream.EventTypeSaved, agentID, e.now())
	event.ResourceID = res.ID
	event.ItemIDs = []string{item.ID}
	event.Categories = []string{name}
	if reinforced {
		event.Reinforced = 1
	}
	e.publish(ctx, event)

	return &SaveResult{Item: item, Reinforced: reinforced, Category: name}, nil
}
