package durable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quill/internal/config"
	"quill/internal/services"
)

const userAgent = "Quill/0.1.0"

// Client talks to the durable store over HTTP.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient builds a durable store client from config. Returns nil when no
// base URL is configured; callers treat that as "durable store disabled."
func NewClient(cfg *config.Config) *Client {
	base := strings.TrimSpace(cfg.DurableStore.BaseURL)
	if base == "" {
		return nil
	}
	timeout := time.Duration(cfg.DurableStore.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(cfg.DurableStore.Token),
		client:  &http.Client{Timeout: timeout},
	}
}

// PutState replaces the named fields for a work item with the given payloads.
func (c *Client) PutState(ctx context.Context, workID string, fields map[string]json.RawMessage) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal state payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/state/%s", c.baseURL, url.PathEscape(workID))
	resp, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrUnavailable, "durable", "put state",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return nil
}

// GetState fetches named fields for a work item. A 404 returns (nil, nil):
// the work item has not been initialized yet.
func (c *Client) GetState(ctx context.Context, workID string, fields ...string) (map[string]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/state/%s", c.baseURL, url.PathEscape(workID))
	if len(fields) > 0 {
		endpoint += "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	}
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, services.Wrap(services.ErrUnavailable, "durable", "get state",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode state response: %w", err)
	}
	return payload, nil
}

type clearRequest struct {
	Clear any `json:"clear"`
}

// Clear removes the named fields for a work item; with no fields it clears
// everything. Clearing an absent record is not an error.
func (c *Client) Clear(ctx context.Context, workID string, fields ...string) error {
	req := clearRequest{Clear: "all"}
	if len(fields) > 0 {
		req.Clear = fields
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal clear payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/clear/%s", c.baseURL, url.PathEscape(workID))
	resp, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrUnavailable, "durable", "clear",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build durable request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "durable", method, "request failed", err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
