package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/0nhc/llm-fortune-teller/internal/config"
	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// captureServer records the last request and replies with reply.
func captureServer(t *testing.T, reply string) (*httptest.Server, *http.Request, *map[string]any) {
	t.Helper()
	var lastReq http.Request
	body := make(map[string]any)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastReq = *r
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &lastReq, &body
}

func newTestClient(t *testing.T, name string, srv *httptest.Server) Client {
	t.Helper()
	cfg := config.Default().Providers[name]
	client, err := NewFromConfig(name, cfg,
		WithoutBreaker(),
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithEnvLookup(func(string) string { return "secret" }),
	)
	if err != nil {
		t.Fatalf("NewFromConfig(%s): %v", name, err)
	}
	return client
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv, req, body := captureServer(t, `{"output":[
		{"type":"reasoning","content":[]},
		{"type":"message","content":[{"type":"output_text","text":"[true, \"fine\"]"}]}
	]}`)
	client := newTestClient(t, "chatgpt", srv)

	temp := 0.2
	got, err := client.Generate(context.Background(), "hello", GenerateOptions{WebSearch: true, Temperature: &temp})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `[true, "fine"]` {
		t.Errorf("Generate() = %q", got)
	}
	if req.URL.Path != "/responses" {
		t.Errorf("path = %q, want /responses", req.URL.Path)
	}
	if req.Header.Get("Authorization") != "Bearer secret" {
		t.Errorf("Authorization = %q", req.Header.Get("Authorization"))
	}
	b := *body
	if b["input"] != "hello" || b["model"] != "gpt-5.2" {
		t.Errorf("request body = %v", b)
	}
	tools, _ := b["tools"].([]any)
	if len(tools) != 1 || tools[0].(map[string]any)["type"] != "web_search_preview" {
		t.Errorf("tools = %v", b["tools"])
	}
	if b["reasoning"].(map[string]any)["effort"] != "medium" {
		t.Errorf("reasoning = %v", b["reasoning"])
	}
	if b["temperature"] != 0.2 {
		t.Errorf("temperature = %v", b["temperature"])
	}
}

func TestOpenAIClient_NoWebSearchUnlessRequested(t *testing.T) {
	srv, _, body := captureServer(t, `{"output":[{"type":"message","content":[{"type":"output_text","text":"ok"}]}]}`)
	client := newTestClient(t, "chatgpt", srv)

	if _, err := client.Generate(context.Background(), "hello", GenerateOptions{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := (*body)["tools"]; ok {
		t.Errorf("tools should be omitted, body = %v", *body)
	}
	if _, ok := (*body)["temperature"]; ok {
		t.Error("temperature should be omitted when unset")
	}
}

func TestChatCompletionsClient_Generate(t *testing.T) {
	srv, req, body := captureServer(t, `{"choices":[{"message":{"content":"  reply  "}}]}`)
	client := newTestClient(t, "deepseek", srv)

	got, err := client.Generate(context.Background(), "hello", GenerateOptions{System: "be terse", WebSearch: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "reply" {
		t.Errorf("Generate() = %q, want %q", got, "reply")
	}
	if req.URL.Path != "/chat/completions" {
		t.Errorf("path = %q", req.URL.Path)
	}
	b := *body
	msgs := b["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("messages = %v", msgs)
	}
	if _, ok := b["thinking"]; !ok {
		t.Errorf("deepseek request should enable thinking, body = %v", b)
	}
	if SupportsWebSearch(client) {
		t.Error("chat completions clients have no managed web search")
	}
}

func TestAnthropicClient_Generate(t *testing.T) {
	srv, req, body := captureServer(t, `{"content":[
		{"type":"server_tool_use","id":"x"},
		{"type":"text","text":"part one "},
		{"type":"text","text":"part two"}
	]}`)
	client := newTestClient(t, "claude", srv)

	got, err := client.Generate(context.Background(), "hello", GenerateOptions{WebSearch: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "part one part two" {
		t.Errorf("Generate() = %q", got)
	}
	if req.URL.Path != "/messages" {
		t.Errorf("path = %q", req.URL.Path)
	}
	if req.Header.Get("x-api-key") != "secret" || req.Header.Get("anthropic-version") == "" {
		t.Errorf("headers = %v", req.Header)
	}
	tools := (*body)["tools"].([]any)
	if tools[0].(map[string]any)["type"] != "web_search_20250305" {
		t.Errorf("tools = %v", tools)
	}
}

func TestGeminiClient_Generate(t *testing.T) {
	srv, req, body := captureServer(t, `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`)
	client := newTestClient(t, "gemini", srv)

	got, err := client.Generate(context.Background(), "hello", GenerateOptions{WebSearch: true, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "ab" {
		t.Errorf("Generate() = %q", got)
	}
	if !strings.HasSuffix(req.URL.Path, "/models/gemini-3-pro-preview:generateContent") {
		t.Errorf("path = %q", req.URL.Path)
	}
	if req.Header.Get("x-goog-api-key") != "secret" {
		t.Error("missing x-goog-api-key header")
	}
	gen := (*body)["generationConfig"].(map[string]any)
	if gen["maxOutputTokens"] != float64(100) {
		t.Errorf("generationConfig = %v", gen)
	}
	if _, ok := (*body)["tools"]; !ok {
		t.Error("google_search tool should be requested")
	}
}

func TestEmptyResponses(t *testing.T) {
	tests := []struct {
		provider string
		reply    string
	}{
		{"chatgpt", `{"output":[]}`},
		{"deepseek", `{"choices":[]}`},
		{"claude", `{"content":[{"type":"text","text":"   "}]}`},
		{"gemini", `{"candidates":[]}`},
		{"gemini", `{"promptFeedback":{"blockReason":"SAFETY"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			srv, _, _ := captureServer(t, tt.reply)
			client := newTestClient(t, tt.provider, srv)

			_, err := client.Generate(context.Background(), "hello", GenerateOptions{})
			if !errors.Is(err, errors.ErrEmptyResponse) {
				t.Errorf("expected ErrEmptyResponse, got %v", err)
			}
			if errors.KindOf(err) != errors.KindProvider {
				t.Errorf("KindOf() = %q, want provider", errors.KindOf(err))
			}
		})
	}
}
