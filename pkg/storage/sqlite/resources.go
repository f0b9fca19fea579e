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

const resourceColumns = `id, created_at, updated_at, url, modality, local_path, caption, embedding`

type resourceRepo struct {
	repoBase
	cache *recordCache[*memory.Resource]
}

func newResourceRepo(base repoBase) (*resourceRepo, error) {
	cache, err := newRecordCache((*memory.Resource).Clone)
	if err != nil {
		return nil, err
	}
	return &resourceRepo{repoBase: base, cache: cache}, nil
}

func scanResource(s scanner) (*memory.Resource, error) {
	var (
		res              memory.Resource
		created, updated string
		caption          sql.NullString
		embedding        []byte
		err              error
	)

	if err := s.Scan(&res.ID, &created, &updated, &res.URL, &res.Modality, &res.LocalPath, &caption, &embedding); err != nil {
		return nil, err
	}

	if res.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if res.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	res.Caption = stringPtr(caption)
	if res.Embedding, err = vector.DeserializeFloat32(embedding); err != nil {
		return nil, fmt.Errorf("resource %s: %w", res.ID, err)
	}

	return &res, nil
}

func (r *resourceRepo) List(ctx context.Context, filter *storage.ResourceFilter) (map[string]*memory.Resource, error) {
	list, err := r.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*memory.Resource, len(list))
	for _, res := range list {
		result[res.ID] = res
	}
	return result, nil
}

// list returns matching resources in creation order and refreshes the cache.
func (r *resourceRepo) list(ctx context.Context, filter *storage.ResourceFilter) ([]*memory.Resource, error) {
	w := &where{}
	if filter != nil {
		w.eq("modality", filter.Modality)
		w.eq("url", filter.URL)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources`+w.String()+` ORDER BY created_at, id`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	var result []*memory.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resource: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resources: %w", err)
	}

	for _, res := range result {
		r.cache.put(res.ID, res)
	}
	return result, nil
}

func (r *resourceRepo) Get(ctx context.Context, id string) (*memory.Resource, error) {
	if res, ok := r.cache.get(id); ok {
		return res, nil
	}

	res, err := scanResource(r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting resource %s: %w", id, err)
	}

	r.cache.put(res.ID, res)
	return res, nil
}

func (r *resourceRepo) Create(ctx context.Context, in storage.ResourceInput) (*memory.Resource, error) {
	now := r.timestamp()
	res := &memory.Resource{
		Record: memory.Record{
			ID:        newID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		URL:       in.URL,
		Modality:  in.Modality,
		LocalPath: in.LocalPath,
		Caption:   in.Caption,
		Embedding: in.Embedding,
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO resources(`+resourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.ID, formatTime(res.CreatedAt), formatTime(res.UpdatedAt),
			res.URL, res.Modality, res.LocalPath, nullString(res.Caption),
			vector.SerializeFloat32(res.Embedding),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	r.cache.put(res.ID, res)
	return res.Clone(), nil
}

func (r *resourceRepo) UpdateCaption(ctx context.Context, id string, caption *string) (*memory.Resource, error) {
	var updated *memory.Resource

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := scanResource(tx.QueryRowContext(ctx,
			`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound{Kind: "resource", ID: id}
		}
		if err != nil {
			return err
		}

		res.Caption = caption
		res.UpdatedAt = r.timestamp()

		if _, err := tx.ExecContext(ctx,
			`UPDATE resources SET caption = ?, updated_at = ? WHERE id = ?`,
			nullString(res.Caption), formatTime(res.UpdatedAt), id,
		); err != nil {
			return err
		}

		updated = res
		return nil
	})
	r.cache.invalidate(id)
	if err != nil {
		return nil, fmt.Errorf("updating resource caption: %w", err)
	}

	return updated, nil
}
