package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeOpenAI serves a minimal chat-completions endpoint and captures the
// request payload for assertions.
func fakeOpenAI(t *testing.T, status int, body string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

const completionOK = `{
  "id": "cmpl-1",
  "object": "chat.completion",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "  We open at 9am.  "}, "finish_reason": "stop"}
  ],
  "usage": {"prompt_tokens": 30, "completion_tokens": 12, "total_tokens": 42}
}`

func TestOpenAIProvider_CompleteAndRequestShape(t *testing.T) {
	srv, captured := fakeOpenAI(t, http.StatusOK, completionOK)

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o",
		BaseURL: srv.URL,
	})

	msgs := []Message{
		{Role: RoleSystem, Content: "You are a helpful assistant."},
		{Role: RoleUser, Content: "When do you open?"},
		{Role: RoleAssistant, Content: "Let me check."},
		{Role: RoleUser, Content: "Thanks."},
	}
	text, tokens, err := p.Complete(context.Background(), msgs, Options{Temperature: 0.7, MaxTokens: 500})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "We open at 9am." {
		t.Fatalf("text = %q, want trimmed reply", text)
	}
	if tokens != 42 {
		t.Fatalf("tokens = %d, want 42", tokens)
	}

	req := *captured
	if req["model"] != "gpt-4o" {
		t.Fatalf("model = %v", req["model"])
	}
	if temp, _ := req["temperature"].(float64); temp != 0.7 {
		t.Fatalf("temperature = %v", req["temperature"])
	}
	if mt, _ := req["max_tokens"].(float64); mt != 500 {
		t.Fatalf("max_tokens = %v", req["max_tokens"])
	}
	wire, ok := req["messages"].([]any)
	if !ok || len(wire) != 4 {
		t.Fatalf("messages = %v", req["messages"])
	}
	first := wire[0].(map[string]any)
	if first["role"] != "system" {
		t.Fatalf("first role = %v, want system", first["role"])
	}
	third := wire[2].(map[string]any)
	if third["role"] != "assistant" {
		t.Fatalf("third role = %v, want assistant", third["role"])
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusOK, `{"id":"cmpl-2","object":"chat.completion","choices":[],"usage":{"total_tokens":5}}`)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL})

	_, _, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestOpenAIProvider_BlankContent(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusOK, `{
	  "id": "cmpl-3", "object": "chat.completion",
	  "choices": [{"index":0,"message":{"role":"assistant","content":"   "},"finish_reason":"stop"}],
	  "usage": {"total_tokens": 8}
	}`)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL})

	_, _, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("err = %v, want ErrNoContent", err)
	}
}

func TestOpenAIProvider_BackendErrorPropagates(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusInternalServerError, `{"error":{"message":"overloaded","type":"server_error"}}`)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL})

	_, _, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
}

func TestOpenAIProvider_LimiterHonorsContext(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusOK, completionOK)

	// Burst 1 at a very low rate: the second call must wait ~1000s, so a
	// short deadline cancels it before any request is sent.
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL, RPS: 0.001, Burst: 1})

	if _, _, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "one"}}, Options{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := p.Complete(ctx, []Message{{Role: RoleUser, Content: "two"}}, Options{})
	if err == nil {
		t.Fatal("expected limiter wait to fail on short deadline")
	}
}

func TestNewOpenAIProvider_BurstFloor(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o", RPS: 2, Burst: 0})
	if p.limiter == nil {
		t.Fatal("expected limiter when RPS > 0")
	}
	if p.limiter.Burst() != 1 {
		t.Fatalf("burst = %d, want floor of 1", p.limiter.Burst())
	}

	p = NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "gpt-4o"})
	if p.limiter == nil {
		// Zero RPS disables the guard.
		return
	}
	t.Fatal("expected no limiter when RPS is zero")
}
