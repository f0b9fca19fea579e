package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/llm"
)

// recordingMemorizer records every job it runs. When gate is set, each call
// blocks until the gate is closed.
type recordingMemorizer struct {
	mu    sync.Mutex
	calls []Job
	gate  chan struct{}
	err   error
}

func (m *recordingMemorizer) Memorize(_ context.Context, agentID string, transcript []llm.Message) (*engine.MemorizeResult, error) {
	if m.gate != nil {
		<-m.gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Job{AgentID: agentID, Transcript: transcript})
	if m.err != nil {
		return nil, m.err
	}
	return &engine.MemorizeResult{ResourceID: "res-" + agentID, ItemsCount: len(transcript)}, nil
}

func (m *recordingMemorizer) agents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.AgentID)
	}
	return out
}

func job(agentID string) Job {
	return Job{
		AgentID:    agentID,
		Transcript: []llm.Message{llm.NewTextMessage("user", "I live in Lisbon")},
	}
}

var _ = Describe("Worker Pool", func() {
	It("requires a memorizer", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(MatchError(ContainSubstring("memorizer")))
	})

	It("applies default sizes", func() {
		cfg := &Config{Memorizer: &recordingMemorizer{}}
		wp, err := NewPool(cfg)
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(cfg.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(cfg.QueueSize).To(Equal(defaultJobQueueSize))
	})

	It("runs every enqueued job before Close returns", func() {
		m := &recordingMemorizer{}
		wp, err := NewPool(&Config{Memorizer: m, NumWorkers: 3})
		Expect(err).NotTo(HaveOccurred())

		for _, id := range []string{"alice", "bob", "carol"} {
			Expect(wp.Enqueue(job(id))).To(BeTrue())
		}
		wp.Close()

		Expect(m.agents()).To(ConsistOf("alice", "bob", "carol"))
	})

	It("drops jobs when the queue is full", func() {
		m := &recordingMemorizer{gate: make(chan struct{})}
		wp, err := NewPool(&Config{Memorizer: m, NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// The single worker picks up the first job and blocks on the gate;
		// the second fills the queue.
		Expect(wp.Enqueue(job("alice"))).To(BeTrue())
		Eventually(func() int { return len(wp.queue) }).Should(Equal(0))
		Expect(wp.Enqueue(job("bob"))).To(BeTrue())
		Expect(wp.Enqueue(job("carol"))).To(BeFalse())

		close(m.gate)
		wp.Close()
		Expect(m.agents()).To(ConsistOf("alice", "bob"))
	})

	It("keeps working after a failed job", func() {
		m := &recordingMemorizer{err: errors.New("chat unavailable")}
		wp, err := NewPool(&Config{Memorizer: m, NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())

		Expect(wp.Enqueue(job("alice"))).To(BeTrue())
		Expect(wp.Enqueue(job("bob"))).To(BeTrue())
		wp.Close()

		Expect(m.agents()).To(Equal([]string{"alice", "bob"}))
	})

	It("tolerates a second Close", func() {
		wp, err := NewPool(&Config{Memorizer: &recordingMemorizer{}})
		Expect(err).NotTo(HaveOccurred())
		wp.Close()
		Expect(wp.Close).NotTo(Panic())
	})
})
