package ai

import (
	"context"
	"encoding/json"
	"strings"
)

// ChatCompletionsClient implements Client against an OpenAI-compatible
// /chat/completions endpoint. DeepSeek and Qwen (DashScope compatible mode)
// are served by it.
type ChatCompletionsClient struct {
	endpoint
	baseURL   string
	model     string
	maxTokens int
	// extraBody is merged into the request at the top level.
	extraBody map[string]any
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Name returns the configured provider name.
func (c *ChatCompletionsClient) Name() BackendName { return BackendName(c.provider) }

// SupportsWebSearch is false: compatible-mode endpoints expose no managed search.
func (c *ChatCompletionsClient) SupportsWebSearch() bool { return false }

// Generate sends prompt as a single user message.
func (c *ChatCompletionsClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}

	messages := make([]chatMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := c.requestBody(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   pickTokens(opts.MaxTokens, c.maxTokens),
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + key}
	if err := c.postJSON(ctx, strings.TrimRight(c.baseURL, "/")+"/chat/completions", headers, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", c.emptyResponse()
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", c.emptyResponse()
	}
	return text, nil
}

// requestBody flattens req and extraBody into one JSON object.
func (c *ChatCompletionsClient) requestBody(req chatRequest) (map[string]any, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	body := make(map[string]any)
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	for k, v := range c.extraBody {
		body[k] = v
	}
	return body, nil
}
