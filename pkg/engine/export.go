package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papercomputeco/mnemo/pkg/categories"
	"github.com/papercomputeco/mnemo/pkg/memory"
)

const exportSummaryMaxRunes = 200

// Export writes a Markdown view of agentID's memory to w: category summaries
// in canonical order, then items grouped by category, then items linked to
// no category.
func (e *Engine) Export(ctx context.Context, agentID string, w io.Writer) error {
	as, err := e.open(ctx, agentID)
	if err != nil {
		return err
	}
	store := as.store

	cats, err := store.Categories().List(ctx, nil)
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	items, err := store.Items().List(ctx, nil)
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	rels, err := store.Relations().List(ctx, nil)
	if err != nil {
		return fmt.Errorf("listing relations: %w", err)
	}

	catByName := make(map[string]*memory.Category, len(cats))
	for _, c := range cats {
		catByName[c.Name] = c
	}

	// category name -> linked items
	grouped := make(map[string][]*memory.Item)
	linked := make(map[string]bool)
	for _, rel := range sortedRelations(rels) {
		c, ok := cats[rel.CategoryID]
		if !ok {
			continue
		}
		item, ok := items[rel.ItemID]
		if !ok {
			continue
		}
		grouped[c.Name] = append(grouped[c.Name], item)
		linked[item.ID] = true
	}

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# Long-term memory export\n\n")
	fmt.Fprintf(bw, "Agent: `%s`  |  Exported at: %s\n\n---\n\n", agentID, e.now().Format(time.RFC3339))

	fmt.Fprintf(bw, "## Category summaries\n\n")
	for _, def := range categories.All {
		c, ok := catByName[def.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(bw, "### %s (%s)\n\n", def.Description, def.Name)
		if summary := strings.TrimSpace(c.Summary); summary != "" {
			fmt.Fprintf(bw, "%s\n\n\n", summary)
		} else {
			fmt.Fprintf(bw, "*(no summary yet)*\n\n\n")
		}
	}

	fmt.Fprintf(bw, "---\n\n## Memory items\n\n")
	for _, def := range categories.All {
		list := grouped[def.Name]
		if len(list) == 0 {
			continue
		}
		sortItems(list)
		fmt.Fprintf(bw, "### %s\n\n", def.Description)
		for _, item := range list {
			writeExportItem(bw, item)
		}
		fmt.Fprintf(bw, "\n")
	}

	var ungrouped []*memory.Item
	for _, item := range items {
		if !linked[item.ID] {
			ungrouped = append(ungrouped, item)
		}
	}
	if len(ungrouped) > 0 {
		sortItems(ungrouped)
		fmt.Fprintf(bw, "### Uncategorized\n\n")
		for _, item := range ungrouped {
			writeExportItem(bw, item)
		}
	}

	return bw.Flush()
}

// ExportToFile writes the export to path, or to the agent's default export
// path when path is empty, creating parent directories. It returns the
// absolute path written.
func (e *Engine) ExportToFile(ctx context.Context, agentID, path string) (string, error) {
	as, err := e.open(ctx, agentID)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = as.dir.ExportPath()
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving export path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}

	if err := e.Export(ctx, agentID, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing export file: %w", err)
	}
	return path, nil
}

func writeExportItem(w io.Writer, item *memory.Item) {
	summary := strings.TrimSpace(item.Summary)
	if truncated := truncateRunes(summary, exportSummaryMaxRunes); truncated != summary {
		summary = truncated + "…"
	}
	fmt.Fprintf(w, "- **%s**\n", summary)

	var meta []string
	if item.MemoryType != "" {
		meta = append(meta, "type: "+string(item.MemoryType))
	}
	if !item.CreatedAt.IsZero() {
		meta = append(meta, "recorded at: "+item.CreatedAt.Format("2006-01-02T15:04:05"))
	}
	if len(meta) > 0 {
		fmt.Fprintf(w, "  - %s\n", strings.Join(meta, ", "))
	}
	fmt.Fprintf(w, "\n")
}

func sortedRelations(rels map[string]*memory.CategoryItem) []*memory.CategoryItem {
	out := make([]*memory.CategoryItem, 0, len(rels))
	for _, id := range sortedKeys(rels) {
		out = append(out, rels[id])
	}
	return out
}
