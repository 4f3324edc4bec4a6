package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient implements Client using the Gemini generateContent REST API.
type GeminiClient struct {
	endpoint
	baseURL   string
	model     string
	maxTokens int
	webSearch bool
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Name returns the configured provider name.
func (c *GeminiClient) Name() BackendName { return BackendName(c.provider) }

// SupportsWebSearch reports whether Google Search grounding is enabled.
func (c *GeminiClient) SupportsWebSearch() bool { return c.webSearch }

// Generate sends prompt as a single user turn.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}

	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: pickTokens(opts.MaxTokens, c.maxTokens),
		},
	}
	if opts.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: opts.System}}}
	}
	if c.webSearch && opts.WebSearch {
		req.Tools = []map[string]any{{"google_search": map[string]any{}}}
	}

	endpointURL := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	headers := map[string]string{"x-goog-api-key": key}

	var resp geminiResponse
	if err := c.postJSON(ctx, endpointURL, headers, req, &resp); err != nil {
		return "", err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", errors.NewProviderError(c.provider, "prompt blocked: "+resp.PromptFeedback.BlockReason, errors.ErrEmptyResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", c.emptyResponse()
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", c.emptyResponse()
	}
	return text, nil
}
