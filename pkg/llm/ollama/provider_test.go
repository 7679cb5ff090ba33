package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"legal-assistant-be/pkg/llm"
)

func newTestProvider(srv *httptest.Server) *OllamaProvider {
	return NewOllamaProvider(srv.URL, "test-model", 5*time.Second)
}

func TestStreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("stream not requested")
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}

		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": "Hello"}, "done": false}`)
		fmt.Fprintln(w, `this line is garbage and must be skipped`)
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": " world"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": ""}, "done": true}`)
	}))
	defer srv.Close()

	var got strings.Builder
	err := newTestProvider(srv).StreamChat(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
	}, func(delta string) error {
		got.WriteString(delta)
		return nil
	})

	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if got.String() != "Hello world" {
		t.Errorf("content = %q", got.String())
	}
}

func TestStreamChatErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error": "model not loaded"}`)
	}))
	defer srv.Close()

	err := newTestProvider(srv).StreamChat(context.Background(), nil, func(string) error { return nil })

	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("err = %v", err)
	}
}

func TestStreamChatDeltaCallbackErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message": {"content": "a"}, "done": false}`)
		fmt.Fprintln(w, `{"message": {"content": "b"}, "done": false}`)
	}))
	defer srv.Close()

	hangup := fmt.Errorf("client went away")
	var calls int
	err := newTestProvider(srv).StreamChat(context.Background(), nil, func(string) error {
		calls++
		return hangup
	})

	if err != hangup {
		t.Errorf("err = %v, want the callback error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStreamChatNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model missing", http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestProvider(srv).StreamChat(context.Background(), nil, func(string) error { return nil })

	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("err = %v", err)
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream requested for blocking chat")
		}
		// The "model" role is normalized before it reaches the backend.
		if req.Messages[1].Role != "assistant" {
			t.Errorf("role = %q, want assistant", req.Messages[1].Role)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "full reply"},
			Done:    true,
		})
	}))
	defer srv.Close()

	got, err := newTestProvider(srv).Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "hi"},
		{Role: "model", Content: "previous"},
	})

	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got != "full reply" {
		t.Errorf("content = %q", got)
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "model installed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"models": []map[string]string{{"name": "test-model"}},
				})
			},
			want: true,
		},
		{
			name: "model missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"models": []map[string]string{{"name": "other-model"}},
				})
			},
			want: false,
		},
		{
			name: "backend error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			if got := newTestProvider(srv).Ping(context.Background()); got != tt.want {
				t.Errorf("Ping = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStreamChatOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "override-model" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Options.Temperature != 0.2 {
			t.Errorf("temperature = %v", req.Options.Temperature)
		}
		if req.Options.NumPredict != 256 {
			t.Errorf("num_predict = %d", req.Options.NumPredict)
		}
		fmt.Fprintln(w, `{"message": {"content": ""}, "done": true}`)
	}))
	defer srv.Close()

	err := newTestProvider(srv).StreamChat(context.Background(), nil, func(string) error { return nil },
		llm.WithModel("override-model"),
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(256),
	)
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
}
