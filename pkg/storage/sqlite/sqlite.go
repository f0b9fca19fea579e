// Package sqlite provides the SQLite-backed memory store. Each agent gets its
// own database file; embeddings are stored as sqlite-vec float32 BLOBs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/mnemo/pkg/storage"
)

// Config holds configuration for a SQLite memory store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Now overrides the clock used for record timestamps. Defaults to time.Now.
	Now func() time.Time
}

// SQLiteStore implements storage.Store.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	resources  *resourceRepo
	items      *itemRepo
	categories *categoryRepo
	relations  *relationRepo
}

// NewSQLiteStore opens (creating if needed) the database at c.DBPath and
// applies the schema.
func NewSQLiteStore(c Config, logger *slog.Logger) (*SQLiteStore, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: a single writer and reader per agent, and pragmas
	// below apply to every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	base := repoBase{db: db, now: now, logger: logger}

	if s.resources, err = newResourceRepo(base); err != nil {
		db.Close()
		return nil, err
	}
	if s.items, err = newItemRepo(base); err != nil {
		db.Close()
		return nil, err
	}
	if s.categories, err = newCategoryRepo(base); err != nil {
		db.Close()
		return nil, err
	}
	if s.relations, err = newRelationRepo(base); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("sqlite memory store opened",
		"db_path", c.DBPath,
		"vec_version", vecVersion,
	)

	return s, nil
}

func (s *SQLiteStore) Resources() storage.ResourceRepo  { return s.resources }
func (s *SQLiteStore) Items() storage.ItemRepo          { return s.items }
func (s *SQLiteStore) Categories() storage.CategoryRepo { return s.categories }
func (s *SQLiteStore) Relations() storage.RelationRepo  { return s.relations }

// Close releases the caches and the database.
func (s *SQLiteStore) Close() error {
	s.resources.cache.close()
	s.items.cache.close()
	s.categories.cache.close()
	s.relations.cache.close()
	return s.db.Close()
}

var _ storage.Store = (*SQLiteStore)(nil)
