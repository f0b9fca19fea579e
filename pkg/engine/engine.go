// Package engine is the memory engine: it owns one store per agent and runs
// the memorize, retrieve, save, and export pipelines on top of it.
//
// Stores are opened lazily on first use of an agent id, bootstrapped with
// the fixed category set, and kept open until Close. External calls
// (embedding, chat) are never made while a store lock is held.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/mnemo/pkg/dotdir"
	"github.com/papercomputeco/mnemo/pkg/embeddings"
	"github.com/papercomputeco/mnemo/pkg/eventstream"
	"github.com/papercomputeco/mnemo/pkg/eventstream/nop"
	"github.com/papercomputeco/mnemo/pkg/llm/chat"
	"github.com/papercomputeco/mnemo/pkg/metrics"
	"github.com/papercomputeco/mnemo/pkg/storage"
	"github.com/papercomputeco/mnemo/pkg/storage/sqlite"
)

// DefaultDimensions is the zero-vector width used when no embedding has
// been observed and none is configured.
const DefaultDimensions = 768

var (
	// ErrUnknownMethod is returned for a retrieve method other than
	// embedding or llm.
	ErrUnknownMethod = errors.New("unknown retrieve method")

	// ErrUnknownRanking is returned for an item ranking other than
	// similarity or salience.
	ErrUnknownRanking = errors.New("unknown item ranking")

	// ErrNoChat is returned when an operation needs a chat model and none
	// is configured.
	ErrNoChat = errors.New("no chat model configured")

	// ErrNoEmbedder is returned when embedding retrieval is requested and no
	// embedder is configured.
	ErrNoEmbedder = errors.New("no embedder configured")

	// ErrUnknownCategory is returned when Save names a category outside the
	// fixed set.
	ErrUnknownCategory = errors.New("unknown category")
)

// Options configures an Engine.
type Options struct {
	// Root is the .mnemo directory holding agents/.
	Root string

	Embedder embeddings.Embedder
	Chat     chat.Func
	Logger   *slog.Logger
	Metrics  *metrics.Manager

	// Publisher receives an event after every committed write. Defaults to
	// a no-op publisher.
	Publisher eventstream.Publisher

	// Dimensions is the width of zero vectors stored when embedding fails.
	Dimensions int

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Engine is safe for concurrent use.
type Engine struct {
	root       string
	embedder   embeddings.Embedder
	chat       chat.Func
	logger     *slog.Logger
	metrics    *metrics.Manager
	publisher  eventstream.Publisher
	dimensions int
	now        func() time.Time
	dirs       *dotdir.Manager

	mu     sync.Mutex
	agents map[string]*agentStore
}

type agentStore struct {
	dir   *dotdir.AgentDir
	store storage.Store
}

// New creates an Engine rooted at opts.Root.
func New(opts Options) (*Engine, error) {
	if opts.Root == "" {
		return nil, errors.New("engine root directory is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NoOpManager()
	}

	var pub eventstream.Publisher = nop.NewPublisher()
	if opts.Publisher != nil {
		pub = opts.Publisher
	}

	dims := opts.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		root:       opts.Root,
		embedder:   opts.Embedder,
		chat:       opts.Chat,
		logger:     logger,
		metrics:    m,
		publisher:  pub,
		dimensions: dims,
		now:        now,
		dirs:       dotdir.NewManager(),
		agents:     make(map[string]*agentStore),
	}, nil
}

// Store returns the bootstrapped store of agentID, opening it on first use.
func (e *Engine) Store(ctx context.Context, agentID string) (storage.Store, error) {
	as, err := e.open(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return as.store, nil
}

// Agents lists every agent with a directory under the engine root.
func (e *Engine) Agents() ([]string, error) {
	return e.dirs.Agents(e.root)
}

func (e *Engine) open(ctx context.Context, agentID string) (*agentStore, error) {
	// Registry keys outlive the call; callers may hand in views of reused
	// buffers.
	agentID = strings.Clone(agentID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if as, ok := e.agents[agentID]; ok {
		return as, nil
	}

	dir, err := e.dirs.Agent(e.root, agentID)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With("agent_id", agentID)
	store, err := sqlite.NewSQLiteStore(sqlite.Config{DBPath: dir.DBPath(), Now: e.now}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store for agent %s: %w", agentID, err)
	}

	if err := bootstrap(ctx, store, dir, logger); err != nil {
		store.Close()
		return nil, fmt.Errorf("bootstrapping agent %s: %w", agentID, err)
	}

	as := &agentStore{dir: dir, store: store}
	e.agents[agentID] = as
	logger.Debug("opened agent store", "path", dir.DBPath())
	return as, nil
}

// Close closes every open store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for id, as := range e.agents {
		if err := as.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store for agent %s: %w", id, err))
		}
		delete(e.agents, id)
	}
	return errors.Join(errs...)
}

// publish hands event to the publisher. The write it describes is already
// committed, so a failure is only logged.
func (e *Engine) publish(ctx context.Context, event *eventstream.MemoryEvent) {
	if err := e.publisher.PublishMemory(ctx, event); err != nil {
		e.logger.Warn("publishing memory event failed",
			"agent_id", event.AgentID,
			"event_type", event.EventType,
			"error", err,
		)
	}
}
