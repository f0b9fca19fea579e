package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/papercomputeco/mnemo/pkg/llm"
)

// NewFakeOllama serves the Ollama /api/embed and /api/chat endpoints from
// the given mocks so commands can run their real provider wiring in tests.
// Callers close the returned server.
func NewFakeOllama(chat *MockChat, embedder *MockEmbedder) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vecs, err := embedder.Embed(r.Context(), req.Input)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"embeddings": vecs})
	})

	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		msgs := make([]llm.Message, 0, len(req.Messages))
		for _, m := range req.Messages {
			msgs = append(msgs, llm.NewTextMessage(m.Role, m.Content))
		}
		reply, err := chat.Call(r.Context(), msgs)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{
			"message": map[string]string{"role": llm.RoleAssistant, "content": reply},
			"done":    true,
		})
	})

	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
