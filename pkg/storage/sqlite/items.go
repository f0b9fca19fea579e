package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/mnemo/pkg/memory"
	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

const itemColumns = `id, created_at, updated_at, resource_id, memory_type, summary, embedding, happened_at, content_hash, extra`

type itemRepo struct {
	repoBase
	cache *recordCache[*memory.Item]
}

func newItemRepo(base repoBase) (*itemRepo, error) {
	cache, err := newRecordCache((*memory.Item).Clone)
	if err != nil {
		return nil, err
	}
	return &itemRepo{repoBase: base, cache: cache}, nil
}

func scanItem(s scanner) (*memory.Item, error) {
	var (
		item             memory.Item
		created, updated string
		resourceID       sql.NullString
		happenedAt       sql.NullString
		memoryType       string
		contentHash      string
		extra            string
		embedding        []byte
		err              error
	)

	if err := s.Scan(&item.ID, &created, &updated, &resourceID, &memoryType, &item.Summary,
		&embedding, &happenedAt, &contentHash, &extra); err != nil {
		return nil, err
	}

	if item.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if item.HappenedAt, err = timePtr(happenedAt); err != nil {
		return nil, err
	}
	item.ResourceID = stringPtr(resourceID)
	item.MemoryType = memory.MemoryType(memoryType)

	if item.Embedding, err = vector.DeserializeFloat32(embedding); err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}

	if extra != "" {
		if err := json.Unmarshal([]byte(extra), &item.Extra); err != nil {
			return nil, fmt.Errorf("item %s: decoding extra: %w", item.ID, err)
		}
	}
	if item.Extra.ContentHash == "" {
		item.Extra.ContentHash = contentHash
	}
	if item.Extra.ReinforcementCount < 1 {
		item.Extra.ReinforcementCount = 1
	}

	return &item, nil
}

func (r *itemRepo) List(ctx context.Context, filter *storage.ItemFilter) (map[string]*memory.Item, error) {
	list, err := r.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*memory.Item, len(list))
	for _, item := range list {
		result[item.ID] = item
	}
	return result, nil
}

// list returns matching items in creation order and refreshes the cache.
func (r *itemRepo) list(ctx context.Context, filter *storage.ItemFilter) ([]*memory.Item, error) {
	w := &where{}
	if filter != nil {
		w.eq("memory_type", string(filter.MemoryType))
		w.eq("resource_id", filter.ResourceID)
		w.eq("content_hash", filter.ContentHash)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM memory_items`+w.String()+` ORDER BY created_at, id`,
		w.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var result []*memory.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}

	for _, item := range result {
		r.cache.put(item.ID, item)
	}
	return result, nil
}

func (r *itemRepo) Get(ctx context.Context, id string) (*memory.Item, error) {
	if item, ok := r.cache.get(id); ok {
		return item, nil
	}

	item, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM memory_items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}

	r.cache.put(item.ID, item)
	return item, nil
}

func (r *itemRepo) Create(ctx context.Context, in storage.ItemInput) (*memory.Item, error) {
	item, err := r.newItem(in)
	if err != nil {
		return nil, err
	}

	if err := r.withTx(ctx, func(tx *sql.Tx) error {
		return insertItem(ctx, tx, item)
	}); err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	r.cache.put(item.ID, item)
	return item.Clone(), nil
}

func (r *itemRepo) CreateOrReinforce(ctx context.Context, in storage.ItemInput) (*memory.Item, bool, error) {
	candidate, err := r.newItem(in)
	if err != nil {
		return nil, false, err
	}

	var (
		result     *memory.Item
		reinforced bool
	)

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanItem(tx.QueryRowContext(ctx,
			`SELECT `+itemColumns+` FROM memory_items WHERE content_hash = ? ORDER BY created_at, id LIMIT 1`,
			candidate.Extra.ContentHash,
		))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result = candidate
			return insertItem(ctx, tx, candidate)
		case err != nil:
			return fmt.Errorf("looking up content hash: %w", err)
		}

		now := r.timestamp()
		existing.Extra.ReinforcementCount++
		existing.Extra.LastReinforcedAt = &now
		existing.UpdatedAt = now

		extra, err := json.Marshal(existing.Extra)
		if err != nil {
			return fmt.Errorf("encoding extra: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE memory_items SET extra = ?, updated_at = ? WHERE id = ?`,
			string(extra), formatTime(existing.UpdatedAt), existing.ID,
		); err != nil {
			return fmt.Errorf("reinforcing item %s: %w", existing.ID, err)
		}

		result = existing
		reinforced = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("creating or reinforcing item: %w", err)
	}

	if reinforced {
		r.cache.invalidate(result.ID)
		r.logger.Debug("reinforced memory item",
			"item_id", result.ID,
			"reinforcement_count", result.Extra.ReinforcementCount,
		)
	} else {
		r.cache.put(result.ID, result)
	}

	return result.Clone(), reinforced, nil
}

func (r *itemRepo) VectorSearch(ctx context.Context, query []float32, k int, opts storage.SearchOptions) ([]vector.Hit, error) {
	pool, err := r.list(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}

	if opts.Ranking == vector.RankingSalience {
		corpus := make([]vector.SalienceEntry, 0, len(pool))
		for _, item := range pool {
			corpus = append(corpus, vector.SalienceEntry{
				Entry:              vector.Entry{ID: item.ID, Embedding: item.Embedding},
				ReinforcementCount: item.Extra.ReinforcementCount,
				LastReinforcedAt:   item.Extra.LastReinforcedAt,
			})
		}
		return vector.CosineTopKSalience(query, corpus, k, opts.RecencyDecayDays, r.timestamp()), nil
	}

	corpus := make([]vector.Entry, 0, len(pool))
	for _, item := range pool {
		corpus = append(corpus, vector.Entry{ID: item.ID, Embedding: item.Embedding})
	}
	return vector.CosineTopK(query, corpus, k), nil
}

// newItem validates in and builds a fresh item with a reinforcement count of 1.
func (r *itemRepo) newItem(in storage.ItemInput) (*memory.Item, error) {
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return nil, memory.ErrEmptySummary
	}

	memoryType := in.MemoryType
	if memoryType == "" {
		memoryType = memory.TypeProfile
	}
	if !memoryType.Valid() {
		return nil, fmt.Errorf("%w: %q", memory.ErrInvalidMemoryType, memoryType)
	}

	now := r.timestamp()
	return &memory.Item{
		Record: memory.Record{
			ID:        newID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ResourceID: in.ResourceID,
		MemoryType: memoryType,
		Summary:    summary,
		Embedding:  in.Embedding,
		HappenedAt: in.HappenedAt,
		Extra: memory.Extra{
			ContentHash:        memory.ContentHash(summary, memoryType),
			ReinforcementCount: 1,
			LastReinforcedAt:   &now,
		},
	}, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item *memory.Item) error {
	extra, err := json.Marshal(item.Extra)
	if err != nil {
		return fmt.Errorf("encoding extra: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memory_items(`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
		nullString(item.ResourceID), string(item.MemoryType), item.Summary,
		vector.SerializeFloat32(item.Embedding), nullTime(item.HappenedAt),
		item.Extra.ContentHash, string(extra),
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}
