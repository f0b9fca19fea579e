package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/embeddings/ollama"
	"github.com/papercomputeco/mnemo/pkg/vector"
)

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		received map[string]any
		status   int
		reply    string
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		reply = `{"embeddings": [[1, 0], [0, 1]]}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		DeferCleanup(server.Close)
	})

	newEmbedder := func() *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "test-embed"})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("embeds a batch in one request", func() {
		vecs, err := newEmbedder().Embed(context.Background(), []string{"a", "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(Equal([][]float32{{1, 0}, {0, 1}}))
		Expect(received["model"]).To(Equal("test-embed"))
		Expect(received["input"]).To(Equal([]any{"a", "b"}))
	})

	It("skips the request for an empty batch", func() {
		vecs, err := newEmbedder().Embed(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(BeEmpty())
		Expect(received).To(BeNil())
	})

	It("reports non-200 responses", func() {
		status = http.StatusInternalServerError
		reply = "boom"

		_, err := newEmbedder().Embed(context.Background(), []string{"a"})
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("boom"))
	})

	It("reports a short response", func() {
		reply = `{"embeddings": [[1, 0]]}`

		_, err := newEmbedder().Embed(context.Background(), []string{"a", "b"})
		Expect(err).To(MatchError(ContainSubstring("requested 2 embeddings, got 1")))
	})

	It("applies defaults", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).NotTo(BeNil())
		Expect(e.Close()).To(Succeed())
	})
})
