// Package gapi is a minimal authenticated HTTP client for the Google
// Workspace REST APIs. The capability adapters are thin passthroughs over
// it; each adapter catches its own failures and reports them as text.
package gapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/udaysagarm/GentAI/internal/logger"
)

const defaultTimeout = 30 * time.Second

// Client issues authenticated requests against Google REST endpoints using
// a bearer token from the account session.
type Client struct {
	http   *http.Client
	token  string
	logger *logger.Logger
}

// APIError is a non-2xx response from a Google API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google API error: status=%d, body=%s", e.Status, e.Body)
}

// StatusCode returns the HTTP status code of the failed call.
func (e *APIError) StatusCode() int {
	return e.Status
}

// New creates a client for the given access token.
func New(token string, log *logger.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		token:  token,
		logger: log,
	}
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, nil, out)
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into out. out may be nil when the response is not needed.
func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, bytes.NewReader(data), out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.DebugCtx(ctx, "Google API call failed",
			logger.Field{Key: "method", Value: method},
			logger.Field{Key: "url", Value: url},
			logger.Field{Key: "status", Value: resp.StatusCode})
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
