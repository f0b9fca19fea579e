package mcp_test

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	memorymcp "github.com/papercomputeco/mnemo/api/mcp"
	"github.com/papercomputeco/mnemo/pkg/engine"
	mnemologger "github.com/papercomputeco/mnemo/pkg/logger"
	testutils "github.com/papercomputeco/mnemo/pkg/utils/test"
)

func resultText(res *mcp.CallToolResult) string {
	Expect(res.Content).NotTo(BeEmpty())
	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		ctx      context.Context
		eng      *engine.Engine
		chat     *testutils.MockChat
		embedder *testutils.MockEmbedder
		server   *memorymcp.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		chat = testutils.NewMockChat()
		embedder = testutils.NewMockEmbedder()

		var err error
		eng, err = engine.New(engine.Options{
			Root:     GinkgoT().TempDir(),
			Embedder: embedder,
			Chat:     chat.Call,
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(eng.Close)

		server, err = memorymcp.NewServer(memorymcp.Config{
			Memory:   eng,
			AgentID:  "alice",
			Retrieve: engine.DefaultRetrieveOptions(),
			Logger:   mnemologger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the memory engine is nil", func() {
			_, err := memorymcp.NewServer(memorymcp.Config{AgentID: "alice", Logger: mnemologger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("memory engine is required")))
		})

		It("returns an error when the agent id is empty", func() {
			_, err := memorymcp.NewServer(memorymcp.Config{Memory: eng, Logger: mnemologger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("agent id is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := memorymcp.NewServer(memorymcp.Config{Memory: eng, AgentID: "alice"})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("builds an empty server in noop mode", func() {
			s, err := memorymcp.NewServer(memorymcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).To(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		var session *mcp.ClientSession

		BeforeEach(func() {
			serverTransport, clientTransport := mcp.NewInMemoryTransports()

			ss, err := server.Connect(ctx, serverTransport)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(ss.Close)

			client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
			session, err = client.Connect(ctx, clientTransport, nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(session.Close)
		})

		call := func(name string, args map[string]any) *mcp.CallToolResult {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
			Expect(err).NotTo(HaveOccurred())
			return res
		}

		It("lists the memory tools", func() {
			res, err := session.ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			names := []string{}
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("memory_save", "memory_search", "memory_memorize"))
		})

		It("saves and then finds a memory", func() {
			embedder.Embeddings["The user drinks coffee"] = []float32{1, 0, 0}
			embedder.Embeddings["coffee"] = []float32{1, 0, 0}

			res := call("memory_save", map[string]any{"content": "The user drinks coffee", "category": "preferences"})
			Expect(res.IsError).To(BeFalse())
			Expect(resultText(res)).To(Equal("Saved to memory: The user drinks coffee..."))

			res = call("memory_search", map[string]any{"query": "coffee", "top_k": 1})
			Expect(res.IsError).To(BeFalse())
			Expect(resultText(res)).To(Equal("The user drinks coffee"))
		})

		It("reports when nothing is found", func() {
			res := call("memory_search", map[string]any{"query": "anything"})
			Expect(res.IsError).To(BeFalse())
			Expect(resultText(res)).To(Equal("No relevant memories found."))
		})

		It("returns tool errors for invalid input", func() {
			res := call("memory_save", map[string]any{"content": "x", "category": "gossip"})
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("unknown category"))

			res = call("memory_search", map[string]any{"query": "  "})
			Expect(res.IsError).To(BeTrue())
		})

		It("memorizes a transcript", func() {
			chat.On("# Conversation", "<item><memory><content>The user is vegan</content><categories><category>preferences</category></categories></memory></item>")
			chat.On("Merge the new memory items", "- vegan")

			res := call("memory_memorize", map[string]any{
				"messages": []map[string]any{
					{"role": "user", "text": "I'm vegan."},
					{"role": "assistant", "text": "Got it."},
				},
			})
			Expect(res.IsError).To(BeFalse())
			Expect(resultText(res)).To(Equal("Memorized 1 items (0 reinforced), updated 1 categories."))

			res = call("memory_memorize", map[string]any{"messages": []map[string]any{}})
			Expect(res.IsError).To(BeFalse())
			Expect(resultText(res)).To(Equal("No memories extracted."))
		})
	})
})
