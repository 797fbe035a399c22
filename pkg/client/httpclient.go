package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 200 * time.Millisecond

	idempotencyHeader = "Idempotency-Key"
)

// HttpClient is a JSON client for one service. Requests that are safe to
// repeat (GETs and anything carrying an Idempotency-Key) are retried when the
// service answers 503, which is how a busy slot lock surfaces.
type HttpClient struct {
	BaseURL      string
	HTTPClient   *http.Client
	Headers      map[string]string
	MaxRetries   int
	RetryBackoff time.Duration
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
		Headers:      map[string]string{},
		MaxRetries:   DefaultMaxRetries,
		RetryBackoff: DefaultRetryBackoff,
	}
}

type Response struct {
	*http.Response
	Body []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *Response) ToString() string {
	return fmt.Sprintf("%s %s -> %d %s", r.Request.Method, r.Request.URL, r.StatusCode, string(r.Body))
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil, nil)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body, nil)
}

func (c *HttpClient) PATCH(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, body, nil)
}

func (c *HttpClient) POSTWithHeaders(ctx context.Context, path string, body any, headers map[string]string) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body, headers)
}

func (c *HttpClient) request(ctx context.Context, method, path string, body any, headers map[string]string) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	retryable := method == http.MethodGet || headers[idempotencyHeader] != "" || c.Headers[idempotencyHeader] != ""
	backoff := c.RetryBackoff

	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, method, path, payload, headers)
		if err != nil || !retryable || resp.StatusCode != http.StatusServiceUnavailable || attempt >= c.MaxRetries {
			return resp, err
		}

		wait := retryAfter(resp, backoff)
		select {
		case <-ctx.Done():
			return resp, nil
		case <-time.After(wait):
		}
		backoff *= 2
	}
}

// retryAfter honours a Retry-After header in seconds, else uses fallback.
func retryAfter(resp *Response, fallback time.Duration) time.Duration {
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func (c *HttpClient) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) (*Response, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response: resp,
		Body:     respBody,
	}, nil
}

// WaitForHealthy polls /health until it answers 200 or maxWait passes.
func (c *HttpClient) WaitForHealthy(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		resp, err := c.GET(ctx, "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %v", maxWait)
		case <-ticker.C:
		}
	}
}

func GetErrorMessage(resp *Response) string {
	var errResp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := resp.DecodeJSON(&errResp); err != nil {
		return string(bytes.TrimSpace(resp.Body))
	}
	if errResp.Error != "" {
		return errResp.Error
	}
	return errResp.Code
}
