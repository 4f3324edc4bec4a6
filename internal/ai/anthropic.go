package ai

import (
	"context"
	"strings"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient implements Client using the Anthropic Messages API.
type AnthropicClient struct {
	endpoint
	baseURL   string
	model     string
	maxTokens int
	webSearch bool
}

type messagesRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	System      string           `json:"system,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	Messages    []chatMessage    `json:"messages"`
	Tools       []anthropicTool  `json:"tools,omitempty"`
	ToolChoice  *anthropicChoice `json:"tool_choice,omitempty"`
}

type anthropicTool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicChoice struct {
	Type string `json:"type"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Name returns the configured provider name.
func (c *AnthropicClient) Name() BackendName { return BackendName(c.provider) }

// SupportsWebSearch reports whether the managed web search tool is enabled.
func (c *AnthropicClient) SupportsWebSearch() bool { return c.webSearch }

// Generate sends prompt as a single user message and joins the text blocks
// of the reply. Tool-use and search-result blocks are skipped.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}

	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   pickTokens(opts.MaxTokens, c.maxTokens),
		System:      opts.System,
		Temperature: opts.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	if c.webSearch && opts.WebSearch {
		req.Tools = []anthropicTool{{Type: "web_search_20250305", Name: "web_search"}}
		req.ToolChoice = &anthropicChoice{Type: "auto"}
	}

	var resp messagesResponse
	headers := map[string]string{
		"x-api-key":         key,
		"anthropic-version": anthropicVersion,
	}
	if err := c.postJSON(ctx, c.baseURL+"/messages", headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", c.emptyResponse()
	}
	return text, nil
}
