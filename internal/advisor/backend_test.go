package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newCompatServer(t *testing.T, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var completions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/models"):
			w.Write([]byte(`{"object":"list","data":[{"id":"llama3","object":"model","created":0,"owned_by":"library"}]}`))
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			completions.Add(1)
			var body struct {
				Model    string `json:"model"`
				Messages []struct {
					Role string `json:"role"`
				} `json:"messages"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Model == "" || len(body.Messages) != 2 {
				http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
				return
			}
			resp := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   body.Model,
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": reply},
				}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &completions
}

func TestRemoteBackendRequiresKey(t *testing.T) {
	_, err := NewFactory(Settings{Backend: BackendRemote})(context.Background())
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestRemoteBackendCompletes(t *testing.T) {
	srv, calls := newCompatServer(t, `{"direction":"up"}`)
	backend, err := NewFactory(Settings{Backend: BackendRemote, OpenAIKey: "sk-test", OpenAIBaseURL: srv.URL})(context.Background())
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if backend.Name() != BackendRemote {
		t.Fatalf("expected remote backend, got %s", backend.Name())
	}
	got, err := backend.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != `{"direction":"up"}` || calls.Load() != 1 {
		t.Fatalf("unexpected reply %q after %d calls", got, calls.Load())
	}
}

func TestLocalBackendProbesServer(t *testing.T) {
	srv, _ := newCompatServer(t, "hello")
	backend, err := NewFactory(Settings{Backend: BackendLocal, OllamaBaseURL: srv.URL + "/v1"})(context.Background())
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if backend.Name() != BackendLocal {
		t.Fatalf("expected local backend, got %s", backend.Name())
	}
	if got, err := backend.Complete(context.Background(), "s", "u"); err != nil || got != "hello" {
		t.Fatalf("unexpected completion %q, %v", got, err)
	}
}

func TestLocalBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewFactory(Settings{Backend: BackendLocal, OllamaBaseURL: url})(context.Background()); err == nil {
		t.Fatal("expected unreachable ollama to fail init")
	}
}

func TestUnknownBackendIsStub(t *testing.T) {
	backend, err := NewFactory(Settings{Backend: "anything"})(context.Background())
	if err != nil || backend.Name() != BackendStub {
		t.Fatalf("expected stub, got %v, %v", backend, err)
	}
}
