// Package worker provides an asynchronous worker pool that memorizes
// conversation transcripts in the background.
//
// The pool decouples extraction (one chat call, a batch embedding and one
// summary refresh per touched category) from the API hot path, so a caller
// can hand off a transcript and return immediately.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/llm"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
)

// Job is one transcript to memorize for an agent.
type Job struct {
	AgentID    string
	Transcript []llm.Message
}

// Memorizer is the part of the engine the pool drives.
type Memorizer interface {
	Memorize(ctx context.Context, agentID string, transcript []llm.Message) (*engine.MemorizeResult, error)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Memorizer runs each job.
	Memorizer Memorizer

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes memorize jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Memorizer == nil {
		return nil, errors.New("worker pool requires a memorizer")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("memorize job queued",
			"agent_id", job.AgentID,
			"messages", len(job.Transcript),
		)
		return true
	default:
		p.logger.Error("memorize job not queued, queue full, job dropped",
			"agent_id", job.AgentID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("memorize worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("memorize worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	result, err := p.config.Memorizer.Memorize(context.Background(), job.AgentID, job.Transcript)
	if err != nil {
		p.logger.Error("async memorize failed",
			"agent_id", job.AgentID,
			"error", err,
		)
		return
	}

	if result == nil {
		p.logger.Debug("async memorize stored nothing", "agent_id", job.AgentID)
		return
	}

	p.logger.Info("conversation memorized",
		"agent_id", job.AgentID,
		"resource_id", result.ResourceID,
		"items", result.ItemsCount,
	)
}
