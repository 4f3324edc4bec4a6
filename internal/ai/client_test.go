package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/0nhc/llm-fortune-teller/internal/config"
	apperrors "github.com/0nhc/llm-fortune-teller/internal/errors"
)

func TestNewFromConfig(t *testing.T) {
	defaults := config.Default()

	tests := []struct {
		provider string
		check    func(Client) bool
	}{
		{"chatgpt", func(c Client) bool { _, ok := c.(*OpenAIClient); return ok }},
		{"deepseek", func(c Client) bool { _, ok := c.(*ChatCompletionsClient); return ok }},
		{"qwen", func(c Client) bool { _, ok := c.(*ChatCompletionsClient); return ok }},
		{"claude", func(c Client) bool { _, ok := c.(*AnthropicClient); return ok }},
		{"gemini", func(c Client) bool { _, ok := c.(*GeminiClient); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client, err := NewFromConfig(tt.provider, defaults.Providers[tt.provider], WithoutBreaker())
			if err != nil {
				t.Fatalf("NewFromConfig returned error: %v", err)
			}
			if !tt.check(client) {
				t.Errorf("unexpected client type %T", client)
			}
			if client.Name() != BackendName(tt.provider) {
				t.Errorf("Name() = %q, want %q", client.Name(), tt.provider)
			}
		})
	}

	t.Run("breaker wraps client when enabled", func(t *testing.T) {
		client, err := NewFromConfig("gemini", defaults.Providers["gemini"])
		if err != nil {
			t.Fatalf("NewFromConfig returned error: %v", err)
		}
		b, ok := client.(*Breaker)
		if !ok {
			t.Fatalf("expected *Breaker, got %T", client)
		}
		if !SupportsWebSearch(b) {
			t.Error("breaker should report the wrapped client's web search support")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewFromConfig("x", config.ProviderConfig{Kind: "grpc"})
		if !errors.Is(err, ErrUnknownBackend) {
			t.Errorf("error should be ErrUnknownBackend, got: %v", err)
		}
	})

	t.Run("chat without base url", func(t *testing.T) {
		_, err := NewFromConfig("x", config.ProviderConfig{Kind: config.KindChat, Model: "m"})
		if err == nil {
			t.Fatal("expected error for chat provider without base_url")
		}
	})
}

func TestMissingKeyFailsOnFirstUse(t *testing.T) {
	cfg := config.Default().Providers["deepseek"]

	client, err := NewFromConfig("deepseek", cfg,
		WithoutBreaker(),
		WithEnvLookup(func(string) string { return "" }),
	)
	if err != nil {
		t.Fatalf("construction must not fail on a missing key: %v", err)
	}

	_, err = client.Generate(context.Background(), "hi", GenerateOptions{})
	var authErr *apperrors.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.EnvVar != "DEEPSEEK_API_KEY" {
		t.Errorf("EnvVar = %q, want DEEPSEEK_API_KEY", authErr.EnvVar)
	}
	if !errors.Is(err, apperrors.ErrMissingAPIKey) {
		t.Error("error should wrap ErrMissingAPIKey")
	}
}

func TestThinkingBody(t *testing.T) {
	if thinkingBody("https://api.deepseek.com", false) != nil {
		t.Error("disabled thinking should produce no extra body")
	}
	ds := thinkingBody("https://api.deepseek.com", true)
	if _, ok := ds["thinking"]; !ok {
		t.Errorf("deepseek extra body = %v", ds)
	}
	qw := thinkingBody("https://dashscope-intl.aliyuncs.com/compatible-mode/v1", true)
	if qw["enable_thinking"] != true {
		t.Errorf("dashscope extra body = %v", qw)
	}
}
