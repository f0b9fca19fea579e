package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/engine"
	"github.com/papercomputeco/mnemo/pkg/llm"
	mnemologger "github.com/papercomputeco/mnemo/pkg/logger"
	"github.com/papercomputeco/mnemo/pkg/metrics"
	testutils "github.com/papercomputeco/mnemo/pkg/utils/test"
)

const extractedMemory = `<item><memory><content>The user drinks oat milk lattes</content><categories><category>preferences</category></categories></memory></item>`

var _ = Describe("Server", func() {
	var (
		ctx      context.Context
		eng      *engine.Engine
		chat     *testutils.MockChat
		embedder *testutils.MockEmbedder
		server   *Server
	)

	newServer := func(cfg Config) *Server {
		s, err := NewServer(cfg, eng, mnemologger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	do := func(s *Server, method, target, body string) (int, string) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequest(method, target, reader)
		Expect(err).NotTo(HaveOccurred())
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(data)
	}

	BeforeEach(func() {
		ctx = context.Background()
		chat = testutils.NewMockChat()
		embedder = testutils.NewMockEmbedder()

		var err error
		eng, err = engine.New(engine.Options{
			Root:       GinkgoT().TempDir(),
			Embedder:   embedder,
			Chat:       chat.Call,
			Dimensions: 3,
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(eng.Close)

		server = newServer(Config{ListenAddr: ":0", Retrieve: engine.DefaultRetrieveOptions()})
	})

	It("answers ping", func() {
		status, body := do(server, http.MethodGet, "/ping", "")
		Expect(status).To(Equal(fiber.StatusOK))
		Expect(body).To(Equal(`"pong"`))
	})

	Describe("agents", func() {
		It("returns an empty list before any agent is used", func() {
			status, body := do(server, http.MethodGet, "/v1/agents", "")
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(body).To(MatchJSON(`{"agents":[]}`))
		})

		It("lists agents once their memory exists", func() {
			_, err := eng.Store(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			_, body := do(server, http.MethodGet, "/v1/agents", "")
			Expect(body).To(MatchJSON(`{"agents":["alice"]}`))
		})
	})

	Describe("save", func() {
		It("stores a fact and reports it", func() {
			status, body := do(server, http.MethodPost, "/v1/agents/alice/save",
				`{"content":"Prefers oat milk","category":"preferences"}`)
			Expect(status).To(Equal(fiber.StatusCreated))

			var result engine.SaveResult
			Expect(json.Unmarshal([]byte(body), &result)).To(Succeed())
			Expect(result.Category).To(Equal("preferences"))
			Expect(result.Item.Summary).To(Equal("Prefers oat milk"))
			Expect(result.Reinforced).To(BeFalse())
		})

		It("rejects an unknown category", func() {
			status, body := do(server, http.MethodPost, "/v1/agents/alice/save",
				`{"content":"Prefers oat milk","category":"beverages"}`)
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(body).To(ContainSubstring("unknown category"))
		})

		It("rejects empty content", func() {
			status, _ := do(server, http.MethodPost, "/v1/agents/alice/save", `{"content":"  "}`)
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			status, body := do(server, http.MethodPost, "/v1/agents/alice/save", `{"content":`)
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(body).To(ContainSubstring("invalid request body"))
		})
	})

	Describe("memorize", func() {
		It("extracts memories from the messages", func() {
			chat.On("# Conversation", extractedMemory)
			chat.On("Merge the new memory items", "Drinks oat milk lattes.")

			status, body := do(server, http.MethodPost, "/v1/agents/alice/memorize",
				`{"messages":[{"role":"user","content":"I always order an oat milk latte"}]}`)
			Expect(status).To(Equal(fiber.StatusOK))

			var resp MemorizeResponse
			Expect(json.Unmarshal([]byte(body), &resp)).To(Succeed())
			Expect(resp.Memorized).To(BeTrue())
			Expect(resp.Result.ItemsCount).To(Equal(1))
			Expect(resp.Result.CategoriesUpdated).To(Equal(1))
		})

		It("queues the transcript with async=true", func() {
			chat.On("# Conversation", extractedMemory)
			chat.On("Merge the new memory items", "Drinks oat milk lattes.")

			status, body := do(server, http.MethodPost, "/v1/agents/alice/memorize?async=true",
				`{"messages":[{"role":"user","content":"I always order an oat milk latte"}]}`)
			Expect(status).To(Equal(fiber.StatusAccepted))
			Expect(body).To(MatchJSON(`{"queued":true}`))

			// Close drains the pool.
			server.pool.Close()
			Expect(chat.PromptsContaining("# Conversation")).To(HaveLen(1))
		})

		It("reports when nothing was memorized", func() {
			status, body := do(server, http.MethodPost, "/v1/agents/alice/memorize", `{"messages":[]}`)
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(body).To(MatchJSON(`{"memorized":false,"result":null}`))
		})
	})

	Describe("agent isolation", func() {
		summaries := func(e *engine.Engine, agentID string) []string {
			store, err := e.Store(ctx, agentID)
			Expect(err).NotTo(HaveOccurred())
			items, err := store.Items().List(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			var out []string
			for _, item := range items {
				out = append(out, item.Summary)
			}
			return out
		}

		It("keeps interleaved saves in their own agents", func() {
			for _, req := range []struct{ agent, content string }{
				{"aaaaa", "fact for aaaaa #i"},
				{"bbbbb", "fact for bbbbb #i"},
				{"ccccc", "fact for ccccc #i"},
				{"aaaaa", "fact for aaaaa #ii"},
			} {
				status, _ := do(server, http.MethodPost, "/v1/agents/"+req.agent+"/save",
					`{"content":"`+req.content+`"}`)
				Expect(status).To(Equal(fiber.StatusCreated))
			}

			Expect(summaries(eng, "aaaaa")).To(ConsistOf("fact for aaaaa #i", "fact for aaaaa #ii"))
			Expect(summaries(eng, "bbbbb")).To(ConsistOf("fact for bbbbb #i"))
			Expect(summaries(eng, "ccccc")).To(ConsistOf("fact for ccccc #i"))

			a, err := eng.Store(ctx, "aaaaa")
			Expect(err).NotTo(HaveOccurred())
			b, err := eng.Store(ctx, "bbbbb")
			Expect(err).NotTo(HaveOccurred())
			Expect(a).NotTo(BeIdenticalTo(b))
		})

		It("memorizes a queued transcript into the agent it was posted for", func() {
			chat.On("# Conversation", extractedMemory)
			chat.On("Merge the new memory items", "Drinks oat milk lattes.")

			started := make(chan struct{}, 1)
			gate := make(chan struct{})
			gated := func(ctx context.Context, messages []llm.Message) (string, error) {
				if len(messages) > 0 && strings.Contains(messages[len(messages)-1].GetText(), "# Conversation") {
					started <- struct{}{}
					<-gate
				}
				return chat.Call(ctx, messages)
			}

			gatedEng, err := engine.New(engine.Options{
				Root:       GinkgoT().TempDir(),
				Embedder:   embedder,
				Chat:       gated,
				Dimensions: 3,
			})
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(gatedEng.Close)

			s, err := NewServer(Config{ListenAddr: ":0", Retrieve: engine.DefaultRetrieveOptions()}, gatedEng, mnemologger.Nop())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(s.pool.Close)

			status, _ := do(s, http.MethodPost, "/v1/agents/aaaaa/memorize?async=true",
				`{"messages":[{"role":"user","content":"I always order an oat milk latte"}]}`)
			Expect(status).To(Equal(fiber.StatusAccepted))
			Eventually(started).Should(Receive())

			// Later requests reuse the request buffers the queued job came from.
			status, _ = do(s, http.MethodGet, "/v1/agents/bbbbb/categories", "")
			Expect(status).To(Equal(fiber.StatusOK))
			status, _ = do(s, http.MethodPost, "/v1/agents/ccccc/save", `{"content":"Owns a bicycle"}`)
			Expect(status).To(Equal(fiber.StatusCreated))

			close(gate)
			s.pool.Close()

			Expect(summaries(gatedEng, "aaaaa")).To(ConsistOf("The user drinks oat milk lattes"))
			Expect(summaries(gatedEng, "bbbbb")).To(BeEmpty())
			Expect(summaries(gatedEng, "ccccc")).To(ConsistOf("Owns a bicycle"))
		})
	})

	Describe("retrieve", func() {
		It("requires a query", func() {
			status, body := do(server, http.MethodGet, "/v1/agents/alice/retrieve", "")
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(body).To(ContainSubstring("query parameter is required"))
		})

		It("rejects a non-positive top_k", func() {
			status, body := do(server, http.MethodGet, "/v1/agents/alice/retrieve?query=milk&top_k_item=0", "")
			Expect(status).To(Equal(fiber.StatusBadRequest))
			Expect(body).To(ContainSubstring("top_k_item must be a positive integer"))
		})

		It("rejects an unknown method", func() {
			status, _ := do(server, http.MethodGet, "/v1/agents/alice/retrieve?query=milk&method=telepathy", "")
			Expect(status).To(Equal(fiber.StatusBadRequest))
		})

		It("returns empty lists for an empty memory", func() {
			status, body := do(server, http.MethodGet, "/v1/agents/alice/retrieve?query=milk", "")
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(body).To(MatchJSON(`{"categories":[],"items":[],"resources":[]}`))
		})

		It("returns saved facts", func() {
			_, err := eng.Save(ctx, "alice", engine.SaveInput{Content: "Prefers oat milk", Category: "preferences"})
			Expect(err).NotTo(HaveOccurred())

			status, body := do(server, http.MethodGet, "/v1/agents/alice/retrieve?query=milk&top_k_item=1", "")
			Expect(status).To(Equal(fiber.StatusOK))

			var result engine.RetrieveResult
			Expect(json.Unmarshal([]byte(body), &result)).To(Succeed())
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Summary).To(Equal("Prefers oat milk"))
		})
	})

	Describe("categories", func() {
		It("lists the bootstrapped categories with item counts", func() {
			_, err := eng.Save(ctx, "alice", engine.SaveInput{Content: "Prefers oat milk", Category: "preferences"})
			Expect(err).NotTo(HaveOccurred())

			status, body := do(server, http.MethodGet, "/v1/agents/alice/categories", "")
			Expect(status).To(Equal(fiber.StatusOK))

			var cats []engine.CategoryOverview
			Expect(json.Unmarshal([]byte(body), &cats)).To(Succeed())
			Expect(cats).NotTo(BeEmpty())
			for _, c := range cats {
				if c.Name == "preferences" {
					Expect(c.ItemCount).To(Equal(1))
				}
			}
		})
	})

	Describe("export", func() {
		It("returns the Markdown export", func() {
			_, err := eng.Save(ctx, "alice", engine.SaveInput{Content: "Prefers oat milk", Category: "preferences"})
			Expect(err).NotTo(HaveOccurred())

			status, body := do(server, http.MethodGet, "/v1/agents/alice/export", "")
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(body).To(ContainSubstring("# Long-term memory export"))
			Expect(body).To(ContainSubstring("Prefers oat milk"))
		})
	})

	Describe("metrics", func() {
		It("is not mounted when metrics are disabled", func() {
			status, _ := do(server, http.MethodGet, "/metrics", "")
			Expect(status).To(Equal(fiber.StatusNotFound))
		})

		It("serves the registry when enabled", func() {
			m := metrics.NewManager(metrics.DefaultConfig())
			s := newServer(Config{Metrics: m})

			m.RecordRetrieve(string(engine.MethodEmbedding), 0)
			status, body := do(s, http.MethodGet, "/metrics", "")
			Expect(status).To(Equal(fiber.StatusOK))
			Expect(body).To(ContainSubstring("mnemo_retrieve_total"))
		})
	})

	Describe("mcp", func() {
		It("is mounted for the configured agent", func() {
			s := newServer(Config{MCPAgent: "alice", Retrieve: engine.DefaultRetrieveOptions()})
			_, body := do(s, http.MethodGet, "/mcp", "")
			Expect(body).NotTo(ContainSubstring("Cannot GET /mcp"))
		})

		It("is absent otherwise", func() {
			status, body := do(server, http.MethodGet, "/mcp", "")
			Expect(status).To(Equal(fiber.StatusNotFound))
			Expect(body).To(ContainSubstring("Cannot GET /mcp"))
		})
	})
})
