package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 8 << 20

var tracer = otel.Tracer("fortune-teller/ai")

// endpoint holds what every HTTP adapter needs to talk to its provider.
type endpoint struct {
	provider   string
	httpClient *http.Client
	timeout    time.Duration
	apiKeyEnv  string
	apiKey     func() string
}

// key resolves the API key, failing with an AuthError when it is unset.
func (e *endpoint) key() (string, error) {
	k := ""
	if e.apiKey != nil {
		k = strings.TrimSpace(e.apiKey())
	}
	if k == "" {
		return "", errors.NewAuthError(e.provider, errors.ErrMissingAPIKey).WithEnvVar(e.apiKeyEnv)
	}
	return k, nil
}

// postJSON sends reqBody to url and decodes a 2xx reply into respBody.
// Transport and status failures are mapped onto the error taxonomy.
func (e *endpoint) postJSON(ctx context.Context, url string, headers map[string]string, reqBody, respBody any) error {
	ctx, span := tracer.Start(ctx, "ai.generate")
	defer span.End()
	span.SetAttributes(attribute.String("provider", e.provider))

	err := e.do(ctx, url, headers, reqBody, respBody)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.KindOf(err)))
	}
	return err
}

func (e *endpoint) do(ctx context.Context, url string, headers map[string]string, reqBody, respBody any) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return e.transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return e.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return e.statusError(resp, body)
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return errors.NewProviderError(e.provider, "unmarshal response", err).WithStatusCode(resp.StatusCode)
	}
	return nil
}

func (e *endpoint) transportError(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewTimeoutError(e.provider+" generate", e.timeout).WithCause(err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.NewTimeoutError(e.provider+" generate", e.timeout).WithCause(err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", e.provider, err)
	default:
		return errors.NewProviderError(e.provider, "send request", err)
	}
}

func (e *endpoint) statusError(resp *http.Response, body []byte) error {
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, apiErrorMessage(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthError(e.provider, cause).WithEnvVar(e.apiKeyEnv)
	case http.StatusTooManyRequests, statusOverloaded:
		return errors.NewRateLimitError(e.provider, cause).
			WithRetryAfter(parseRetryAfter(resp.Header.Get("Retry-After")))
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.NewTimeoutError(e.provider+" generate", 0).WithCause(cause)
	default:
		return errors.NewProviderError(e.provider, "unexpected status", cause).WithStatusCode(resp.StatusCode)
	}
}

// statusOverloaded is Anthropic's "overloaded" status.
const statusOverloaded = 529

// apiErrorMessage extracts a readable message from an error body. The common
// shapes are {"error": {"message": "..."}} and {"error": "..."}.
func apiErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = "no body"
	}
	return msg
}

// parseRetryAfter understands the delay-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// emptyResponse builds the ProviderError returned when a 2xx reply carries no text.
func (e *endpoint) emptyResponse() error {
	return errors.NewProviderError(e.provider, "no text in response", errors.ErrEmptyResponse)
}
