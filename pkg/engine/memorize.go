package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/mnemo/pkg/categories"
	"github.com/papercomputeco/mnemo/pkg/eventstream"
	"github.com/papercomputeco/mnemo/pkg/llm"
	"github.com/papercomputeco/mnemo/pkg/llm/chat"
	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/metrics"
	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

const (
	conversationResourceURL = "conversation:in_memory"
	captionMaxRunes         = 500
)

// Degraded stage labels.
const (
	stageExtract         = "extract"
	stageEmbed           = "embed"
	stageCategorySummary = "category_summary"
	stageQueryEmbedding  = "query_embedding"
	stageCategoryEmbed   = "category_embedding"
	stageCategoryRank    = "category_rank"
	stageItemRank        = "item_rank"
	stageResourceRank    = "resource_rank"
)

// MemorizeResult reports what one Memorize call wrote.
type MemorizeResult struct {
	ResourceID string `json:"resource_id"`

	// ItemsCount is the number of extracted entries, new or reinforced.
	ItemsCount int `json:"items_count"`

	// CategoriesUpdated counts categories whose summary was persisted.
	CategoriesUpdated int `json:"categories_updated"`

	// Reinforced is how many entries matched an existing item.
	Reinforced int `json:"reinforced"`
}

// Memorize extracts facts from transcript and writes them to agentID's
// memory. It returns nil and no error when nothing was memorized: an empty
// transcript, a failed extraction call, or a reply with no entries.
func (e *Engine) Memorize(ctx context.Context, agentID string, transcript []llm.Message) (*MemorizeResult, error) {
	logger := e.logger.With("agent_id", agentID)

	text := renderTranscript(transcript)
	if text == "" {
		e.metrics.RecordMemorize(metrics.OutcomeEmpty)
		return nil, nil
	}

	if e.chat == nil {
		return nil, ErrNoChat
	}

	reply, err := chat.Prompt(ctx, e.chat, buildExtractPrompt(categories.Names(), text))
	if err != nil {
		logger.Warn("memory extraction failed", "error", err)
		e.metrics.RecordDegraded(stageExtract)
		e.metrics.RecordMemorize(metrics.OutcomeEmpty)
		return nil, nil
	}

	entries := parseExtraction(reply)
	if len(entries) == 0 {
		logger.Debug("extraction returned no memories")
		e.metrics.RecordMemorize(metrics.OutcomeEmpty)
		return nil, nil
	}

	result, event, err := e.memorizeEntries(ctx, agentID, text, entries)
	if err != nil {
		e.metrics.RecordMemorize(metrics.OutcomeFailed)
		return nil, err
	}

	e.metrics.RecordMemorize(metrics.OutcomeStored)
	logger.Info("memorized conversation",
		"resource_id", result.ResourceID,
		"items", result.ItemsCount,
		"reinforced", result.Reinforced,
		"categories_updated", result.CategoriesUpdated,
	)
	e.publish(ctx, event)
	return result, nil
}

func (e *Engine) memorizeEntries(ctx context.Context, agentID, text string, entries []extracted) (*MemorizeResult, *eventstream.MemoryEvent, error) {
	as, err := e.open(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	store := as.store

	byName, err := categoriesByName(ctx, store)
	if err != nil {
		return nil, nil, err
	}

	caption := truncateRunes(text, captionMaxRunes)
	res, err := store.Resources().Create(ctx, storage.ResourceInput{
		URL:      conversationResourceURL,
		Modality: memory.ModalityConversation,
		Caption:  &caption,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating conversation resource: %w", err)
	}

	summaries := make([]string, len(entries))
	for i, entry := range entries {
		summaries[i] = entry.Content
	}
	vectors := e.embedPadded(ctx, agentID, summaries)

	result := &MemorizeResult{ResourceID: res.ID, ItemsCount: len(entries)}
	event := eventstream.NewMemoryEvent(eventstream.EventTypeMemorized, agentID, e.now())
	event.ResourceID = res.ID

	// Category name to the new fact lines for it, in first-seen order.
	touched := make(map[string][]string)
	for i, entry := range entries {
		item, reinforced, err := store.Items().CreateOrReinforce(ctx, storage.ItemInput{
			ResourceID: &res.ID,
			MemoryType: memory.TypeProfile,
			Summary:    entry.Content,
			Embedding:  vectors[i],
		})
		if err != nil {
			return nil, nil, fmt.Errorf("writing memory item: %w", err)
		}
		e.metrics.RecordItemWritten(reinforced)
		event.ItemIDs = append(event.ItemIDs, item.ID)
		if reinforced {
			result.Reinforced++
		}

		for _, name := range entry.Categories {
			cat, ok := byName[name]
			if !ok {
				continue
			}
			if _, err := store.Relations().Link(ctx, item.ID, cat.ID); err != nil {
				return nil, nil, fmt.Errorf("linking item %s to category %s: %w", item.ID, name, err)
			}
			touched[name] = append(touched[name], "- "+entry.Content)
		}
	}

	for _, c := range categories.All {
		lines, ok := touched[c.Name]
		if !ok {
			continue
		}
		event.Categories = append(event.Categories, c.Name)
		updated, err := e.refreshCategorySummary(ctx, store, byName[c.Name], lines)
		if err != nil {
			return nil, nil, err
		}
		if updated {
			result.CategoriesUpdated++
		}
	}

	event.Reinforced = result.Reinforced
	event.CategoriesUpdated = result.CategoriesUpdated
	return result, event, nil
}

// refreshCategorySummary folds new fact lines into a category summary. Chat
// failures and empty replies leave the summary unchanged.
func (e *Engine) refreshCategorySummary(ctx context.Context, store storage.Store, cat *memory.Category, lines []string) (bool, error) {
	reply, err := chat.Prompt(ctx, e.chat, buildCategorySummaryPrompt(cat.Name, cat.Summary, lines))
	if err != nil {
		e.logger.Warn("category summary update failed", "category", cat.Name, "error", err)
		e.metrics.RecordDegraded(stageCategorySummary)
		return false, nil
	}

	summary := stripMarkdownFence(reply)
	if summary == "" {
		return false, nil
	}

	if _, err := store.Categories().Update(ctx, cat.ID, storage.CategoryUpdate{Summary: &summary}); err != nil {
		return false, fmt.Errorf("updating category %s summary: %w", cat.Name, err)
	}
	return true, nil
}

// embedPadded embeds texts, substituting zero vectors for anything the
// embedder could not return. The zero vector width follows the first
// returned vector, else the configured dimensions.
func (e *Engine) embedPadded(ctx context.Context, agentID string, texts []string) [][]float32 {
	var got [][]float32
	if e.embedder != nil {
		vecs, err := e.embedder.Embed(ctx, texts)
		if err != nil {
			e.logger.Warn("embedding failed, storing zero vectors", "agent_id", agentID, "error", err)
			e.metrics.RecordDegraded(stageEmbed)
		} else {
			got = vecs
		}
	}

	dims := e.dimensions
	for _, v := range got {
		if len(v) > 0 {
			dims = len(v)
			break
		}
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		if i < len(got) && len(got[i]) > 0 {
			out[i] = got[i]
			continue
		}
		out[i] = vector.Zero(dims)
	}
	return out
}

// renderTranscript flattens a conversation into "role: text" lines.
func renderTranscript(transcript []llm.Message) string {
	var b strings.Builder
	for _, msg := range transcript {
		text := strings.TrimSpace(msg.GetText())
		if text == "" {
			continue
		}
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "" {
			role = llm.RoleUser
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", role, text)
	}
	return b.String()
}

func categoriesByName(ctx context.Context, store storage.Store) (map[string]*memory.Category, error) {
	all, err := store.Categories().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	byName := make(map[string]*memory.Category, len(all))
	for _, c := range all {
		byName[c.Name] = c
	}
	return byName, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
