package ai

import (
	"context"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements Client using the OpenAI Responses API.
type OpenAIClient struct {
	endpoint
	baseURL         string
	model           string
	maxTokens       int
	webSearch       bool
	reasoningEffort string
}

type responsesRequest struct {
	Model           string          `json:"model"`
	Input           string          `json:"input"`
	Instructions    string          `json:"instructions,omitempty"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	Tools           []responsesTool `json:"tools,omitempty"`
	Reasoning       *reasoning      `json:"reasoning,omitempty"`
}

type responsesTool struct {
	Type string `json:"type"`
}

type reasoning struct {
	Effort string `json:"effort"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Name returns the configured provider name.
func (c *OpenAIClient) Name() BackendName { return BackendName(c.provider) }

// SupportsWebSearch reports whether the web_search_preview tool is enabled.
func (c *OpenAIClient) SupportsWebSearch() bool { return c.webSearch }

// Generate sends prompt as a single-turn response request.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}

	req := responsesRequest{
		Model:           c.model,
		Input:           prompt,
		Instructions:    opts.System,
		MaxOutputTokens: pickTokens(opts.MaxTokens, c.maxTokens),
		Temperature:     opts.Temperature,
	}
	if c.webSearch && opts.WebSearch {
		req.Tools = []responsesTool{{Type: "web_search_preview"}}
	}
	if c.reasoningEffort != "" {
		req.Reasoning = &reasoning{Effort: c.reasoningEffort}
	}

	var resp responsesResponse
	headers := map[string]string{"Authorization": "Bearer " + key}
	if err := c.postJSON(ctx, c.baseURL+"/responses", headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", c.emptyResponse()
	}
	return text, nil
}

func pickTokens(requested, def int) int {
	if requested > 0 {
		return requested
	}
	return def
}
