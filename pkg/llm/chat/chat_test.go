package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/llm"
	"github.com/papercomputeco/mnemo/pkg/llm/chat"
)

// recorder is an httptest server that captures the last JSON request body
// and answers with a canned reply.
type recorder struct {
	server *httptest.Server
	path   string
	header http.Header
	body   map[string]any
	status int
	reply  string
}

func newRecorder(reply string) *recorder {
	rec := &recorder{status: http.StatusOK, reply: reply}
	rec.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		rec.path = r.URL.Path
		rec.header = r.Header.Clone()
		Expect(json.NewDecoder(r.Body).Decode(&rec.body)).To(Succeed())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rec.status)
		_, _ = w.Write([]byte(rec.reply))
	}))
	DeferCleanup(rec.server.Close)
	return rec
}

var conversation = []llm.Message{
	llm.NewTextMessage(llm.RoleSystem, "be brief"),
	llm.NewTextMessage(llm.RoleUser, "hello"),
}

var _ = Describe("New", func() {
	It("rejects unknown providers", func() {
		_, err := chat.New(chat.Config{Provider: "carrier-pigeon"})
		Expect(err).To(MatchError(ContainSubstring("unsupported chat provider")))
	})

	Describe("ollama", func() {
		It("posts the conversation to /api/chat", func() {
			rec := newRecorder(`{"message":{"role":"assistant","content":"hi there"},"done":true}`)

			call, err := chat.New(chat.Config{Provider: "ollama", Model: "llama3.2", BaseURL: rec.server.URL})
			Expect(err).NotTo(HaveOccurred())

			reply, err := call(context.Background(), conversation)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("hi there"))
			Expect(rec.path).To(Equal("/api/chat"))
			Expect(rec.body["model"]).To(Equal("llama3.2"))
			Expect(rec.body["stream"]).To(BeFalse())
			Expect(rec.body["messages"]).To(HaveLen(2))
		})

		It("reports non-200 responses", func() {
			rec := newRecorder(`model not found`)
			rec.status = http.StatusNotFound

			call, err := chat.New(chat.Config{Provider: "ollama", BaseURL: rec.server.URL})
			Expect(err).NotTo(HaveOccurred())

			_, err = chat.Prompt(context.Background(), call, "hello")
			Expect(err).To(MatchError(ContainSubstring("status 404")))
		})
	})

	Describe("openai", func() {
		It("sends a chat completion request", func() {
			rec := newRecorder(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)

			call, err := chat.New(chat.Config{
				Provider: "openai",
				Model:    "gpt-4o-mini",
				APIKey:   "sk-test",
				BaseURL:  rec.server.URL + "/v1",
			})
			Expect(err).NotTo(HaveOccurred())

			reply, err := call(context.Background(), conversation)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("ok"))
			Expect(rec.path).To(Equal("/v1/chat/completions"))
			Expect(rec.header.Get("Authorization")).To(Equal("Bearer sk-test"))

			msgs, ok := rec.body["messages"].([]any)
			Expect(ok).To(BeTrue())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0]).To(HaveKeyWithValue("role", "system"))
		})

		It("reports an empty choice list", func() {
			rec := newRecorder(`{"id":"1","object":"chat.completion","choices":[]}`)

			call, err := chat.New(chat.Config{Provider: "openai", APIKey: "k", BaseURL: rec.server.URL + "/v1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = chat.Prompt(context.Background(), call, "hello")
			Expect(err).To(MatchError(ContainSubstring("no choices")))
		})
	})

	Describe("anthropic", func() {
		It("moves system messages into the system prompt", func() {
			rec := newRecorder(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
				"content":[{"type":"text","text":"bonjour"}],"stop_reason":"end_turn",
				"usage":{"input_tokens":3,"output_tokens":1}}`)

			call, err := chat.New(chat.Config{
				Provider: "anthropic",
				APIKey:   "sk-ant-test",
				BaseURL:  rec.server.URL,
			})
			Expect(err).NotTo(HaveOccurred())

			reply, err := call(context.Background(), conversation)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("bonjour"))
			Expect(rec.path).To(Equal("/v1/messages"))
			Expect(rec.header.Get("X-Api-Key")).To(Equal("sk-ant-test"))
			Expect(rec.body["model"]).To(Equal("claude-3-5-haiku-latest"))
			Expect(rec.body["system"]).To(HaveLen(1))
			Expect(rec.body["messages"]).To(HaveLen(1))
		})
	})
})
