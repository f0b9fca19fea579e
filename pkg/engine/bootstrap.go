package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/mnemo/pkg/categories"
	"github.com/papercomputeco/mnemo/pkg/dotdir"
	"github.com/papercomputeco/mnemo/pkg/storage"
)

// bootstrap makes sure every category of the fixed set exists. New
// categories take their summary from a legacy file in the agent directory,
// else from the bundled seed. Existing categories with a blank summary pick
// up a legacy file once. An unreadable legacy file is logged and skipped.
func bootstrap(ctx context.Context, store storage.Store, dir *dotdir.AgentDir, logger *slog.Logger) error {
	repo := store.Categories()

	for _, c := range categories.All {
		legacy := ""
		if c.LegacyFile != "" {
			content, ok, err := dir.ReadLegacy(c.LegacyFile)
			if err != nil {
				logger.Warn("skipping legacy memory file", "file", c.LegacyFile, "error", err)
			} else if ok {
				legacy = content
			}
		}

		existing, err := repo.GetByName(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("getting category %s: %w", c.Name, err)
		}

		if existing == nil {
			summary := c.Seed()
			if legacy != "" {
				summary = legacy
			}
			var sp *string
			if summary != "" {
				sp = &summary
			}
			if _, err := repo.GetOrCreate(ctx, c.Name, c.Description, sp); err != nil {
				return fmt.Errorf("creating category %s: %w", c.Name, err)
			}
			continue
		}

		if strings.TrimSpace(existing.Summary) == "" && legacy != "" {
			if _, err := repo.Update(ctx, existing.ID, storage.CategoryUpdate{Summary: &legacy}); err != nil {
				return fmt.Errorf("migrating %s into category %s: %w", c.LegacyFile, c.Name, err)
			}
			logger.Info("migrated legacy memory file", "file", c.LegacyFile, "category", c.Name)
		}
	}

	return nil
}
