// Package ai adapts large-language-model providers to a single text
// generation contract used by the debate engine.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/0nhc/llm-fortune-teller/internal/config"
	"github.com/0nhc/llm-fortune-teller/internal/logging"
)

// BackendName identifies a configured provider, e.g. "gemini" or "deepseek".
type BackendName string

// GenerateOptions configures a single generation call.
type GenerateOptions struct {
	// Temperature overrides the provider default when non-nil.
	Temperature *float64
	// MaxTokens bounds the reply length. Zero means the client default.
	MaxTokens int
	// WebSearch asks the provider to enable its managed search tool.
	// Clients without search support ignore it.
	WebSearch bool
	// System is an optional system instruction.
	System string
}

// Client generates text from a prompt.
//
// Implementations classify failures with the internal/errors taxonomy
// (AuthError, RateLimitError, TimeoutError, ProviderError) and never retry
// on their own; retry policy belongs to the caller.
type Client interface {
	Name() BackendName
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Capabilities is implemented by clients that can report provider features.
type Capabilities interface {
	SupportsWebSearch() bool
}

// SupportsWebSearch reports whether c advertises managed web search.
func SupportsWebSearch(c Client) bool {
	if caps, ok := c.(Capabilities); ok {
		return caps.SupportsWebSearch()
	}
	return false
}

// ErrUnknownBackend is returned when the configured provider kind is unsupported.
var ErrUnknownBackend = fmt.Errorf("unknown AI backend")

// Option configures a client built by NewFromConfig.
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
	lookupEnv  func(string) string
	logger     *logging.Logger
	noBreaker  bool
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL overrides the provider endpoint, mostly for tests.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithEnvLookup replaces os.Getenv for API key resolution.
func WithEnvLookup(fn func(string) string) Option {
	return func(o *options) { o.lookupEnv = fn }
}

// WithLogger sets the logger used for breaker state changes.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithoutBreaker skips the circuit breaker even when the config enables it.
func WithoutBreaker() Option {
	return func(o *options) { o.noBreaker = true }
}

// NewFromConfig builds the client for the named provider. The API key is
// resolved from cfg.APIKeyEnv on every call, so a missing key surfaces as an
// AuthError from Generate rather than here.
func NewFromConfig(name string, cfg config.ProviderConfig, opts ...Option) (Client, error) {
	o := options{
		lookupEnv: os.Getenv,
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout()}
	}

	ep := endpoint{
		provider:   name,
		httpClient: o.httpClient,
		timeout:    cfg.Timeout(),
		apiKeyEnv:  cfg.APIKeyEnv,
		apiKey:     func() string { return o.lookupEnv(cfg.APIKeyEnv) },
	}
	baseURL := cfg.BaseURL
	if o.baseURL != "" {
		baseURL = o.baseURL
	}

	var client Client
	switch strings.ToLower(cfg.Kind) {
	case config.KindOpenAI:
		client = &OpenAIClient{
			endpoint:        ep,
			baseURL:         orDefault(baseURL, openAIBaseURL),
			model:           cfg.Model,
			maxTokens:       cfg.MaxTokens,
			webSearch:       cfg.WebSearch,
			reasoningEffort: cfg.ReasoningEffort,
		}
	case config.KindChat:
		if baseURL == "" {
			return nil, fmt.Errorf("provider %s: base_url is required for chat completions", name)
		}
		client = &ChatCompletionsClient{
			endpoint:  ep,
			baseURL:   baseURL,
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			extraBody: thinkingBody(baseURL, cfg.Thinking),
		}
	case config.KindAnthropic:
		client = &AnthropicClient{
			endpoint:  ep,
			baseURL:   orDefault(baseURL, anthropicBaseURL),
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			webSearch: cfg.WebSearch,
		}
	case config.KindGemini:
		client = &GeminiClient{
			endpoint:  ep,
			baseURL:   orDefault(baseURL, geminiBaseURL),
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			webSearch: cfg.WebSearch,
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Kind)
	}

	if cfg.Breaker.Enabled && !o.noBreaker {
		client = NewBreaker(client, BreakerSettings{
			MaxFailures: uint32(cfg.Breaker.MaxFailures),
			OpenTimeout: cfg.Breaker.OpenTimeout(),
			Logger:      o.logger,
		})
	}
	return client, nil
}

// thinkingBody returns the vendor-specific flag that enables reasoning mode
// on OpenAI-compatible endpoints.
func thinkingBody(baseURL string, enabled bool) map[string]any {
	if !enabled {
		return nil
	}
	if strings.Contains(baseURL, "dashscope") {
		return map[string]any{"enable_thinking": true}
	}
	return map[string]any{"thinking": map[string]any{"type": "enabled"}}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}
