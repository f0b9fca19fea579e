package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
)

const relationColumns = `id, created_at, updated_at, item_id, category_id`

type relationRepo struct {
	repoBase
	cache *recordCache[*memory.CategoryItem]
}

func newRelationRepo(base repoBase) (*relationRepo, error) {
	cache, err := newRecordCache((*memory.CategoryItem).Clone)
	if err != nil {
		return nil, err
	}
	return &relationRepo{repoBase: base, cache: cache}, nil
}

func scanRelation(s scanner) (*memory.CategoryItem, error) {
	var (
		rel              memory.CategoryItem
		created, updated string
		err              error
	)

	if err := s.Scan(&rel.ID, &created, &updated, &rel.ItemID, &rel.CategoryID); err != nil {
		return nil, err
	}

	if rel.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if rel.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}

	return &rel, nil
}

func (r *relationRepo) List(ctx context.Context, filter *storage.RelationFilter) (map[string]*memory.CategoryItem, error) {
	w := &where{}
	if filter != nil {
		w.eq("item_id", filter.ItemID)
		w.eq("category_id", filter.CategoryID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+relationColumns+` FROM category_items`+w.String()+` ORDER BY created_at, id`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*memory.CategoryItem)
	for rows.Next() {
		rel, err := scanRelation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		result[rel.ID] = rel
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relations: %w", err)
	}

	for id, rel := range result {
		r.cache.put(id, rel)
	}
	return result, nil
}

func (r *relationRepo) Get(ctx context.Context, id string) (*memory.CategoryItem, error) {
	if rel, ok := r.cache.get(id); ok {
		return rel, nil
	}

	rel, err := scanRelation(r.db.QueryRowContext(ctx,
		`SELECT `+relationColumns+` FROM category_items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting relation %s: %w", id, err)
	}

	r.cache.put(rel.ID, rel)
	return rel, nil
}

func (r *relationRepo) Link(ctx context.Context, itemID, categoryID string) (*memory.CategoryItem, error) {
	var rel *memory.CategoryItem

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(r.timestamp())
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_items(`+relationColumns+`) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(item_id, category_id) DO NOTHING`,
			newID(), now, now, itemID, categoryID,
		); err != nil {
			return fmt.Errorf("inserting relation: %w", err)
		}

		var err error
		rel, err = scanRelation(tx.QueryRowContext(ctx,
			`SELECT `+relationColumns+` FROM category_items WHERE item_id = ? AND category_id = ?`,
			itemID, categoryID,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("linking item %s to category %s: %w", itemID, categoryID, err)
	}

	r.cache.put(rel.ID, rel)
	return rel, nil
}
