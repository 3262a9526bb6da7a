package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the provider's JSON API. Each call gets a bounded
// timeout and one retry with backoff on transport or 5xx failures.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type linkPayload struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Status   string `json:"status"`
}

type createLinkPayload struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name,omitempty"`
}

// CreateLink issues a new hosted payment link.
func (c *HTTPClient) CreateLink(ctx context.Context, req CreateLinkRequest) (*Link, error) {
	body, err := json.Marshal(createLinkPayload{
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Reference:     req.Reference,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create link request: %w", err)
	}
	var out linkPayload
	if err := c.do(ctx, http.MethodPost, "/v1/links", body, &out); err != nil {
		return nil, err
	}
	return &Link{ID: out.ID, ShortURL: out.ShortURL, Status: out.Status}, nil
}

// GetLink queries the current status of an existing link.
func (c *HTTPClient) GetLink(ctx context.Context, id string) (*Link, error) {
	var out linkPayload
	if err := c.do(ctx, http.MethodGet, "/v1/links/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &Link{ID: out.ID, ShortURL: out.ShortURL, Status: out.Status}, nil
}

// do performs one request with a single retry on transport errors and
// 5xx responses. 4xx responses are not retried.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
			slog.Debug("retrying gateway call", "method", method, "path", path, "attempt", attempt)
		}
		retryable, err := c.attempt(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (c *HTTPClient) attempt(ctx context.Context, method, path string, body []byte, out any) (retryable bool, err error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return true, fmt.Errorf("gateway %s %s: status %d", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return false, nil
}
