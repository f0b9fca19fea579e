package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/mnemo/pkg/categories"
	"github.com/papercomputeco/mnemo/pkg/llm/chat"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

// Method selects a retrieval strategy.
type Method string

const (
	MethodEmbedding Method = "embedding"
	MethodLLM       Method = "llm"
)

const (
	DefaultTopKCategory = 3
	DefaultTopKItem     = 10
	DefaultTopKResource = 5
)

// resourceContextInfo is the context line handed to the resource ranker.
const resourceContextInfo = "Relevant categories and items above."

// RetrieveOptions configures Retrieve. Zero fields take their defaults.
type RetrieveOptions struct {
	Method           Method
	TopKCategory     int
	TopKItem         int
	TopKResource     int
	ItemRanking      vector.Ranking
	RecencyDecayDays float64
}

// DefaultRetrieveOptions returns the default options.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		Method:           MethodEmbedding,
		TopKCategory:     DefaultTopKCategory,
		TopKItem:         DefaultTopKItem,
		TopKResource:     DefaultTopKResource,
		ItemRanking:      vector.RankingSimilarity,
		RecencyDecayDays: vector.DefaultRecencyDecayDays,
	}
}

func (o RetrieveOptions) withDefaults() (RetrieveOptions, error) {
	d := DefaultRetrieveOptions()
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.TopKCategory <= 0 {
		o.TopKCategory = d.TopKCategory
	}
	if o.TopKItem <= 0 {
		o.TopKItem = d.TopKItem
	}
	if o.TopKResource <= 0 {
		o.TopKResource = d.TopKResource
	}
	if o.ItemRanking == "" {
		o.ItemRanking = d.ItemRanking
	}
	if o.RecencyDecayDays <= 0 {
		o.RecencyDecayDays = d.RecencyDecayDays
	}

	if o.Method != MethodEmbedding && o.Method != MethodLLM {
		return o, fmt.Errorf("%w: %q", ErrUnknownMethod, o.Method)
	}
	if !o.ItemRanking.Valid() {
		return o, fmt.Errorf("%w: %q", ErrUnknownRanking, o.ItemRanking)
	}
	return o, nil
}

// ScoredCategory is a retrieved category. Embedding is always nil.
type ScoredCategory struct {
	memory.Category
	Score float64 `json:"score"`
}

// ScoredItem is a retrieved item. Embedding is always nil.
type ScoredItem struct {
	memory.Item
	Score float64 `json:"score"`
}

// ScoredResource is a retrieved resource. Embedding is always nil.
type ScoredResource struct {
	memory.Resource
	Score float64 `json:"score"`
}

// RetrieveResult holds the ranked results of each stage, best first. The
// slices are never nil.
type RetrieveResult struct {
	Categories []ScoredCategory `json:"categories"`
	Items      []ScoredItem     `json:"items"`
	Resources  []ScoredResource `json:"resources"`
}

func emptyResult() *RetrieveResult {
	return &RetrieveResult{
		Categories: []ScoredCategory{},
		Items:      []ScoredItem{},
		Resources:  []ScoredResource{},
	}
}

// Retrieve returns the memories of agentID most relevant to query.
// External failures degrade the affected stage to an empty list; only
// storage failures and invalid options are returned as errors.
func (e *Engine) Retrieve(ctx context.Context, agentID, query string, opts RetrieveOptions) (*RetrieveResult, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	switch opts.Method {
	case MethodEmbedding:
		if e.embedder == nil {
			return nil, ErrNoEmbedder
		}
	case MethodLLM:
		if e.chat == nil {
			return nil, ErrNoChat
		}
	}

	as, err := e.open(ctx, agentID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var result *RetrieveResult
	empty, err := isEmpty(ctx, as.store)
	switch {
	case err != nil:
		return nil, err
	case empty:
		result = emptyResult()
	case opts.Method == MethodLLM:
		result, err = e.retrieveLLM(ctx, as.store, query, opts)
	default:
		result, err = e.retrieveEmbedding(ctx, as.store, query, opts)
	}
	if err != nil {
		return nil, err
	}
	e.metrics.RecordRetrieve(string(opts.Method), time.Since(start))

	e.logger.Debug("retrieved memories",
		"agent_id", agentID,
		"method", opts.Method,
		"categories", len(result.Categories),
		"items", len(result.Items),
		"resources", len(result.Resources),
	)
	return result, nil
}

func (e *Engine) retrieveEmbedding(ctx context.Context, store storage.Store, query string, opts RetrieveOptions) (*RetrieveResult, error) {
	result := emptyResult()

	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 || len(vecs[0]) == 0 {
		e.logger.Warn("query embedding failed", "error", err)
		e.metrics.RecordDegraded(stageQueryEmbedding)
		return result, nil
	}
	qv := vecs[0]

	cats, err := e.rankCategoriesByEmbedding(ctx, store, qv, opts.TopKCategory)
	if err != nil {
		return nil, err
	}
	result.Categories = cats

	hits, err := store.Items().VectorSearch(ctx, qv, opts.TopKItem, storage.SearchOptions{
		Ranking:          opts.ItemRanking,
		RecencyDecayDays: opts.RecencyDecayDays,
	})
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	for _, hit := range hits {
		item, err := store.Items().Get(ctx, hit.ID)
		if err != nil {
			return nil, fmt.Errorf("getting item %s: %w", hit.ID, err)
		}
		if item == nil {
			continue
		}
		result.Items = append(result.Items, scoredItem(item, hit.Score))
	}

	resources, err := store.Resources().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	corpus := make([]vector.Entry, 0, len(resources))
	for _, id := range sortedKeys(resources) {
		corpus = append(corpus, vector.Entry{ID: id, Embedding: resources[id].Embedding})
	}
	for _, hit := range vector.CosineTopK(qv, corpus, opts.TopKResource) {
		result.Resources = append(result.Resources, scoredResource(resources[hit.ID], hit.Score))
	}

	return result, nil
}

// rankCategoriesByEmbedding embeds the non-empty category summaries on the
// fly and ranks them against qv. Summary vectors are not stored.
func (e *Engine) rankCategoriesByEmbedding(ctx context.Context, store storage.Store, qv []float32, k int) ([]ScoredCategory, error) {
	out := []ScoredCategory{}

	cats, err := orderedCategories(ctx, store)
	if err != nil {
		return nil, err
	}

	var withSummary []*memory.Category
	var texts []string
	for _, c := range cats {
		if strings.TrimSpace(c.Summary) == "" {
			continue
		}
		withSummary = append(withSummary, c)
		texts = append(texts, c.Summary)
	}
	if len(texts) == 0 {
		return out, nil
	}

	vecs, err := e.embedder.Embed(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		e.logger.Warn("category summary embedding failed", "error", err)
		e.metrics.RecordDegraded(stageCategoryEmbed)
		return out, nil
	}

	byID := make(map[string]*memory.Category, len(withSummary))
	corpus := make([]vector.Entry, len(withSummary))
	for i, c := range withSummary {
		byID[c.ID] = c
		corpus[i] = vector.Entry{ID: c.ID, Embedding: vecs[i]}
	}
	for _, hit := range vector.CosineTopK(qv, corpus, k) {
		out = append(out, scoredCategory(byID[hit.ID], hit.Score))
	}
	return out, nil
}

func (e *Engine) retrieveLLM(ctx context.Context, store storage.Store, query string, opts RetrieveOptions) (*RetrieveResult, error) {
	result := emptyResult()

	cats, err := orderedCategories(ctx, store)
	if err != nil {
		return nil, err
	}
	catByID := make(map[string]*memory.Category, len(cats))
	var catData strings.Builder
	for _, c := range cats {
		catByID[c.ID] = c
		fmt.Fprintf(&catData, "ID: %s\nName: %s\nDescription: %s\n", c.ID, c.Name, c.Description)
		if c.Summary != "" {
			fmt.Fprintf(&catData, "Summary: %s\n", c.Summary)
		}
		catData.WriteString("---\n")
	}

	catIDs := e.rank(ctx, stageCategoryRank,
		buildCategoryRankerPrompt(query, opts.TopKCategory, catData.String()),
		"categories", func(id string) bool { return catByID[id] != nil }, opts.TopKCategory)
	if len(catIDs) == 0 {
		return result, nil
	}

	var relevant strings.Builder
	for i, id := range catIDs {
		c := catByID[id]
		result.Categories = append(result.Categories, scoredCategory(c, rankScore(i, len(catIDs))))
		fmt.Fprintf(&relevant, "- %s: %s\n", c.Name, c.Summary)
	}

	pool, err := itemsInCategories(ctx, store, catIDs)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return result, nil
	}

	itemByID := make(map[string]*memory.Item, len(pool))
	var itemData strings.Builder
	for _, item := range pool {
		itemByID[item.ID] = item
		fmt.Fprintf(&itemData, "ID: %s\nType: %s\nSummary: %s\n---\n", item.ID, item.MemoryType, item.Summary)
	}

	itemIDs := e.rank(ctx, stageItemRank,
		buildItemRankerPrompt(query, opts.TopKItem, relevant.String(), itemData.String()),
		"items", func(id string) bool { return itemByID[id] != nil }, opts.TopKItem)
	if len(itemIDs) == 0 {
		return result, nil
	}

	var selected []*memory.Item
	for i, id := range itemIDs {
		item := itemByID[id]
		selected = append(selected, item)
		result.Items = append(result.Items, scoredItem(item, rankScore(i, len(itemIDs))))
	}

	resPool, err := resourcesOfItems(ctx, store, selected)
	if err != nil {
		return nil, err
	}
	if len(resPool) == 0 {
		return result, nil
	}

	resByID := make(map[string]*memory.Resource, len(resPool))
	var resData strings.Builder
	for _, r := range resPool {
		resByID[r.ID] = r
		fmt.Fprintf(&resData, "ID: %s\nURL: %s\nModality: %s\n", r.ID, r.URL, r.Modality)
		if r.Caption != nil && *r.Caption != "" {
			fmt.Fprintf(&resData, "Caption: %s\n", *r.Caption)
		}
		resData.WriteString("---\n")
	}

	resIDs := e.rank(ctx, stageResourceRank,
		buildResourceRankerPrompt(query, opts.TopKResource, resourceContextInfo, resData.String()),
		"resources", func(id string) bool { return resByID[id] != nil }, opts.TopKResource)
	for i, id := range resIDs {
		result.Resources = append(result.Resources, scoredResource(resByID[id], rankScore(i, len(resIDs))))
	}

	return result, nil
}

// isEmpty reports whether the store holds no memories yet. Categories whose
// summary is still the bundled seed do not count, so seeded text is never
// returned for an agent that has memorized nothing. A migrated or refreshed
// summary does count.
func isEmpty(ctx context.Context, store storage.Store) (bool, error) {
	items, err := store.Items().List(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("listing items: %w", err)
	}
	if len(items) > 0 {
		return false, nil
	}
	resources, err := store.Resources().List(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("listing resources: %w", err)
	}
	if len(resources) > 0 {
		return false, nil
	}

	cats, err := store.Categories().List(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("listing categories: %w", err)
	}
	for _, c := range cats {
		summary := strings.TrimSpace(c.Summary)
		if summary == "" {
			continue
		}
		if known, ok := categories.Lookup(c.Name); ok && summary == known.Seed() {
			continue
		}
		return false, nil
	}
	return true, nil
}

// rank runs one ranker call. A failed call yields no ids.
func (e *Engine) rank(ctx context.Context, stage, prompt, key string, valid func(string) bool, k int) []string {
	reply, err := chat.Prompt(ctx, e.chat, prompt)
	if err != nil {
		e.logger.Warn("llm ranking failed", "stage", stage, "error", err)
		e.metrics.RecordDegraded(stage)
		return nil
	}
	return parseRankedIDs(reply, key, valid, k)
}

// rankScore maps a 0-based rank among n selections to (0, 1], first = 1.
func rankScore(rank, n int) float64 {
	return 1 - float64(rank)/float64(n)
}

// orderedCategories lists categories in canonical order, followed by any
// others by name.
func orderedCategories(ctx context.Context, store storage.Store) ([]*memory.Category, error) {
	all, err := store.Categories().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	order := make(map[string]int, len(categories.All))
	for i, c := range categories.All {
		order[c.Name] = i
	}

	out := make([]*memory.Category, 0, len(all))
	for _, c := range all {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *memory.Category) int {
		ai, aok := order[a.Name]
		bi, bok := order[b.Name]
		switch {
		case aok && bok:
			return ai - bi
		case aok:
			return -1
		case bok:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// itemsInCategories returns the items linked to any of categoryIDs, oldest
// first.
func itemsInCategories(ctx context.Context, store storage.Store, categoryIDs []string) ([]*memory.Item, error) {
	seen := make(map[string]bool)
	var out []*memory.Item
	for _, cid := range categoryIDs {
		rels, err := store.Relations().List(ctx, &storage.RelationFilter{CategoryID: cid})
		if err != nil {
			return nil, fmt.Errorf("listing relations of category %s: %w", cid, err)
		}
		for _, rel := range rels {
			if seen[rel.ItemID] {
				continue
			}
			seen[rel.ItemID] = true
			item, err := store.Items().Get(ctx, rel.ItemID)
			if err != nil {
				return nil, fmt.Errorf("getting item %s: %w", rel.ItemID, err)
			}
			if item != nil {
				out = append(out, item)
			}
		}
	}
	sortItems(out)
	return out, nil
}

// resourcesOfItems returns the distinct resources the items came from, in
// item order.
func resourcesOfItems(ctx context.Context, store storage.Store, items []*memory.Item) ([]*memory.Resource, error) {
	seen := make(map[string]bool)
	var out []*memory.Resource
	for _, item := range items {
		if item.ResourceID == nil || seen[*item.ResourceID] {
			continue
		}
		seen[*item.ResourceID] = true
		r, err := store.Resources().Get(ctx, *item.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("getting resource %s: %w", *item.ResourceID, err)
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func sortItems(items []*memory.Item) {
	slices.SortStableFunc(items, func(a, b *memory.Item) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func scoredCategory(c *memory.Category, score float64) ScoredCategory {
	cp := c.Clone()
	cp.Embedding = nil
	return ScoredCategory{Category: *cp, Score: score}
}

func scoredItem(item *memory.Item, score float64) ScoredItem {
	cp := item.Clone()
	cp.Embedding = nil
	return ScoredItem{Item: *cp, Score: score}
}

func scoredResource(r *memory.Resource, score float64) ScoredResource {
	cp := r.Clone()
	cp.Embedding = nil
	return ScoredResource{Resource: *cp, Score: score}
}
