// Package client talks to the EventFlow API over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// envelope mirrors the API response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// HTTP is a JSON client for the API. Requests carry the bearer token of tokens when one is set.
type HTTP struct {
	baseURL    string
	httpClient *http.Client
	tokens     func() string
	logger     *zap.Logger
}

// NewHTTP creates a client for baseURL (no trailing slash).
func NewHTTP(baseURL string, httpClient *http.Client, logger *zap.Logger) *HTTP {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{baseURL: baseURL, httpClient: httpClient, tokens: func() string { return "" }, logger: logger}
}

// BaseURL returns the API root.
func (c *HTTP) BaseURL() string { return c.baseURL }

// SetTokenSource sets the bearer token provider.
func (c *HTTP) SetTokenSource(fn func() string) { c.tokens = fn }

// do sends body as JSON and decodes the envelope data into out. out may be nil.
func (c *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	data, err := c.send(ctx, method, path, contentType, reader)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

// send performs the request and returns the envelope data. A 204 yields nil data.
func (c *HTTP) send(ctx context.Context, method, path, contentType string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.tokens(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, transportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg),
		)
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return env.Data, nil
}
