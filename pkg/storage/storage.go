// Package storage defines the persistent store of a single agent's memory.
//
// A Store owns every record of one agent and exposes one repository per
// record type. Repository calls are short, self-contained transactions:
// nothing holds a connection across calls, so callers are free to perform
// slow external work (embedding, LLM calls) between them.
//
// Lookups of unknown ids return a nil record and a nil error. Only I/O
// failures of the underlying database surface as errors.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

// Store is one agent's memory database.
type Store interface {
	Resources() ResourceRepo
	Items() ItemRepo
	Categories() CategoryRepo
	Relations() RelationRepo

	// Close releases the underlying database.
	Close() error
}

// ResourceInput holds the fields of a new Resource.
type ResourceInput struct {
	URL       string
	Modality  string
	LocalPath string
	Caption   *string
	Embedding []float32
}

// ResourceFilter narrows ResourceRepo.List. Zero fields match everything.
type ResourceFilter struct {
	Modality string
	URL      string
}

// ResourceRepo persists Resources.
type ResourceRepo interface {
	List(ctx context.Context, filter *ResourceFilter) (map[string]*memory.Resource, error)
	Get(ctx context.Context, id string) (*memory.Resource, error)
	Create(ctx context.Context, in ResourceInput) (*memory.Resource, error)

	// UpdateCaption is the only mutation a Resource allows.
	UpdateCaption(ctx context.Context, id string, caption *string) (*memory.Resource, error)
}

// ItemInput holds the fields of a new Item. The content hash and
// reinforcement bookkeeping are derived by the repository.
type ItemInput struct {
	ResourceID *string
	MemoryType memory.MemoryType
	Summary    string
	Embedding  []float32
	HappenedAt *time.Time
}

// ItemFilter narrows ItemRepo.List. Zero fields match everything.
type ItemFilter struct {
	MemoryType  memory.MemoryType
	ResourceID  string
	ContentHash string
}

// SearchOptions configures ItemRepo.VectorSearch.
type SearchOptions struct {
	// Ranking defaults to vector.RankingSimilarity.
	Ranking vector.Ranking

	// RecencyDecayDays is the salience half-life; zero uses the default.
	RecencyDecayDays float64

	// Filter restricts the searched items.
	Filter *ItemFilter
}

// ItemRepo persists Items.
type ItemRepo interface {
	List(ctx context.Context, filter *ItemFilter) (map[string]*memory.Item, error)
	Get(ctx context.Context, id string) (*memory.Item, error)

	// Create always inserts a new item with a reinforcement count of 1.
	Create(ctx context.Context, in ItemInput) (*memory.Item, error)

	// CreateOrReinforce inserts a new item unless one with the same content
	// hash exists, in which case that item's reinforcement count is
	// incremented and it is returned with reinforced set to true.
	CreateOrReinforce(ctx context.Context, in ItemInput) (item *memory.Item, reinforced bool, err error)

	// VectorSearch ranks every item matching opts.Filter against query and
	// returns the best k.
	VectorSearch(ctx context.Context, query []float32, k int, opts SearchOptions) ([]vector.Hit, error)
}

// CategoryFilter narrows CategoryRepo.List. Zero fields match everything.
type CategoryFilter struct {
	Name string
}

// CategoryUpdate holds the mutable fields of a Category. Nil fields are left
// unchanged.
type CategoryUpdate struct {
	Description *string
	Summary     *string
	Embedding   []float32
}

// CategoryRepo persists Categories.
type CategoryRepo interface {
	List(ctx context.Context, filter *CategoryFilter) (map[string]*memory.Category, error)
	Get(ctx context.Context, id string) (*memory.Category, error)
	GetByName(ctx context.Context, name string) (*memory.Category, error)

	// GetOrCreate returns the category called name, creating it with the
	// given description and summary when it does not exist.
	GetOrCreate(ctx context.Context, name, description string, summary *string) (*memory.Category, error)

	// Update returns ErrNotFound for an unknown id.
	Update(ctx context.Context, id string, update CategoryUpdate) (*memory.Category, error)
}

// RelationFilter narrows RelationRepo.List. Zero fields match everything.
type RelationFilter struct {
	ItemID     string
	CategoryID string
}

// RelationRepo persists CategoryItem links.
type RelationRepo interface {
	List(ctx context.Context, filter *RelationFilter) (map[string]*memory.CategoryItem, error)
	Get(ctx context.Context, id string) (*memory.CategoryItem, error)

	// Link is idempotent: linking an already linked pair returns the
	// existing relation.
	Link(ctx context.Context, itemID, categoryID string) (*memory.CategoryItem, error)
}
