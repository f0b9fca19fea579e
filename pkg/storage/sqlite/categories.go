package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

const categoryColumns = `id, created_at, updated_at, name, description, embedding, summary`

type categoryRepo struct {
	repoBase
	cache *recordCache[*memory.Category]
}

func newCategoryRepo(base repoBase) (*categoryRepo, error) {
	cache, err := newRecordCache((*memory.Category).Clone)
	if err != nil {
		return nil, err
	}
	return &categoryRepo{repoBase: base, cache: cache}, nil
}

func scanCategory(s scanner) (*memory.Category, error) {
	var (
		cat              memory.Category
		created, updated string
		embedding        []byte
		err              error
	)

	if err := s.Scan(&cat.ID, &created, &updated, &cat.Name, &cat.Description, &embedding, &cat.Summary); err != nil {
		return nil, err
	}

	if cat.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if cat.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if cat.Embedding, err = vector.DeserializeFloat32(embedding); err != nil {
		return nil, fmt.Errorf("category %s: %w", cat.ID, err)
	}

	return &cat, nil
}

func (r *categoryRepo) List(ctx context.Context, filter *storage.CategoryFilter) (map[string]*memory.Category, error) {
	w := &where{}
	if filter != nil {
		w.eq("name", filter.Name)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM memory_categories`+w.String()+` ORDER BY created_at, id`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*memory.Category)
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		result[cat.ID] = cat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	for id, cat := range result {
		r.cache.put(id, cat)
	}
	return result, nil
}

func (r *categoryRepo) Get(ctx context.Context, id string) (*memory.Category, error) {
	if cat, ok := r.cache.get(id); ok {
		return cat, nil
	}

	cat, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM memory_categories WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category %s: %w", id, err)
	}

	r.cache.put(cat.ID, cat)
	return cat, nil
}

func (r *categoryRepo) GetByName(ctx context.Context, name string) (*memory.Category, error) {
	cat, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM memory_categories WHERE name = ?`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", name, err)
	}

	r.cache.put(cat.ID, cat)
	return cat, nil
}

func (r *categoryRepo) GetOrCreate(ctx context.Context, name, description string, summary *string) (*memory.Category, error) {
	if name == "" {
		return nil, errors.New("category name is required")
	}

	var cat *memory.Category

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(r.timestamp())
		initial := ""
		if summary != nil {
			initial = *summary
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memory_categories(`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, NULL, ?)
			ON CONFLICT(name) DO NOTHING`,
			newID(), now, now, name, description, initial,
		); err != nil {
			return fmt.Errorf("inserting category: %w", err)
		}

		var err error
		cat, err = scanCategory(tx.QueryRowContext(ctx,
			`SELECT `+categoryColumns+` FROM memory_categories WHERE name = ?`, name,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting or creating category %q: %w", name, err)
	}

	r.cache.put(cat.ID, cat)
	return cat, nil
}

func (r *categoryRepo) Update(ctx context.Context, id string, update storage.CategoryUpdate) (*memory.Category, error) {
	var updated *memory.Category

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		cat, err := scanCategory(tx.QueryRowContext(ctx,
			`SELECT `+categoryColumns+` FROM memory_categories WHERE id = ?`, id,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound{Kind: "category", ID: id}
		}
		if err != nil {
			return err
		}

		if update.Description != nil {
			cat.Description = *update.Description
		}
		if update.Summary != nil {
			cat.Summary = *update.Summary
		}
		if update.Embedding != nil {
			cat.Embedding = update.Embedding
		}
		cat.UpdatedAt = r.timestamp()

		if _, err := tx.ExecContext(ctx,
			`UPDATE memory_categories SET description = ?, summary = ?, embedding = ?, updated_at = ? WHERE id = ?`,
			cat.Description, cat.Summary, vector.SerializeFloat32(cat.Embedding), formatTime(cat.UpdatedAt), id,
		); err != nil {
			return err
		}

		updated = cat
		return nil
	})
	r.cache.invalidate(id)
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}

	return updated, nil
}
