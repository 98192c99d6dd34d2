package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client issues outbound calls to the model backend. Identical blocking
// requests in flight at the same time share one upstream call: the cache is
// keyed by path+body and evicted as soon as the call completes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// inflightCall is one pending upstream request shared by duplicate callers.
type inflightCall struct {
	done chan struct{}
	body []byte
	err  error
}

// NewClient creates a Client for the given backend base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		inflight:   make(map[string]*inflightCall),
	}
}

// Post sends a JSON request and returns the raw response body. Concurrent
// identical requests are de-duplicated against the in-flight table.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal request: %w", err)
	}
	key := path + "\n" + string(body)

	c.mu.Lock()
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.body, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.body, call.err = c.post(ctx, path, body)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(call.done)

	return call.body, call.err
}

// PostStream sends a JSON request with streaming enabled and returns the
// response body for incremental reading. The caller owns closing it.
func (c *Client) PostStream(ctx context.Context, path string, payload interface{}) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("provider: marshal request: %w", err)
	}

	resp, err := c.send(ctx, path, body, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, upstreamError(resp)
	}
	return resp.Body, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	resp, err := c.send(ctx, path, body, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider: read response: %w", err)
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, path string, body []byte, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider: %s: %w", path, err)
	}
	return resp, nil
}

// upstreamError reads the response body and wraps the backend's error
// message, falling back to the raw body text.
func upstreamError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var envelope upstreamErrorBody
	message := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	return &UpstreamError{Status: resp.StatusCode, Message: message}
}
