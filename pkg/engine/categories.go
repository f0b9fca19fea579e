package engine

import (
	"context"
	"fmt"

	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
)

// CategoryOverview is a category with the number of items linked to it.
type CategoryOverview struct {
	*memory.Category
	ItemCount int `json:"item_count"`
}

// Categories lists the categories of agentID in canonical order.
func (e *Engine) Categories(ctx context.Context, agentID string) ([]CategoryOverview, error) {
	store, err := e.Store(ctx, agentID)
	if err != nil {
		return nil, err
	}

	cats, err := orderedCategories(ctx, store)
	if err != nil {
		return nil, err
	}

	out := make([]CategoryOverview, 0, len(cats))
	for _, c := range cats {
		rels, err := store.Relations().List(ctx, &storage.RelationFilter{CategoryID: c.ID})
		if err != nil {
			return nil, fmt.Errorf("listing relations of category %s: %w", c.Name, err)
		}
		out = append(out, CategoryOverview{Category: c, ItemCount: len(rels)})
	}
	return out, nil
}
