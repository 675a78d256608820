package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultModelURL = "https://api-inference.huggingface.co/models/distilgpt2"

var (
	ErrMalformedResponse = errors.New("malformed inference response")
	ErrEmptyGeneration   = errors.New("inference returned no text")
)

// StatusError is returned when the inference endpoint answers with a
// non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference endpoint returned %d: %s", e.Code, e.Body)
}

// InferenceClient calls a hosted text-generation endpoint that takes
// {"inputs": prompt} and answers with generated_text.
type InferenceClient struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewInferenceClient builds a client for url. A nil hc gets a client whose
// transport is traced with otelhttp; timeouts come from the caller's context.
func NewInferenceClient(url, apiKey string, hc *http.Client) *InferenceClient {
	if url == "" {
		url = DefaultModelURL
	}
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &InferenceClient{url: url, apiKey: apiKey, http: hc}
}

type generation struct {
	GeneratedText *string `json:"generated_text"`
}

// Generate sends prompt upstream and returns the generated text.
func (c *InferenceClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"inputs": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return extractText(raw)
}

// extractText accepts either [{"generated_text": …}] or {"generated_text": …}.
func extractText(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	var g generation
	switch {
	case bytes.HasPrefix(raw, []byte("[")):
		var list []generation
		if err := json.Unmarshal(raw, &list); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if len(list) == 0 {
			return "", ErrEmptyGeneration
		}
		g = list[0]
	case bytes.HasPrefix(raw, []byte("{")):
		if err := json.Unmarshal(raw, &g); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	default:
		return "", ErrMalformedResponse
	}
	if g.GeneratedText == nil || *g.GeneratedText == "" {
		return "", ErrEmptyGeneration
	}
	return *g.GeneratedText, nil
}
