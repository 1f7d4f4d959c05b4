// Package client is the thin HTTP wrapper the synchronization cache talks
// through. It translates cache operations into collection store requests
// and maps transport failures to connectivity errors.
package client

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

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// Client calls the collection store API. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient swaps the underlying transport; used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bootstrap fetches every collection in one call.
func (c *Client) Bootstrap(ctx context.Context) (map[domain.CollectionName][]json.RawMessage, error) {
	var resp struct {
		Data map[domain.CollectionName][]json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/bootstrap", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = map[domain.CollectionName][]json.RawMessage{}
	}
	return resp.Data, nil
}

// Get fetches one collection's sequence.
func (c *Client) Get(ctx context.Context, name domain.CollectionName) ([]json.RawMessage, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name.String()), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []json.RawMessage{}
	}
	return resp.Data, nil
}

// Put upserts one collection's whole sequence.
func (c *Client) Put(ctx context.Context, name domain.CollectionName, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	body := map[string]any{"data": records}
	return c.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(name.String()), body, nil)
}

// Clear empties one collection.
func (c *Client) Clear(ctx context.Context, name domain.CollectionName) error {
	return c.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(name.String()), nil, nil)
}

// ImportBulk upserts several collections in one request. Not atomic across
// collections; the store applies entries in order.
func (c *Client) ImportBulk(ctx context.Context, collections map[domain.CollectionName][]json.RawMessage) error {
	body := map[string]any{"collections": collections}
	return c.do(ctx, http.MethodPost, "/import", body, nil)
}

// Health probes store reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeConnectivity, "store unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&envelope)
		if envelope.Message != "" {
			return dErrors.Newf(dErrors.CodeConnectivity, "store returned %d: %s", resp.StatusCode, envelope.Message)
		}
		return dErrors.Newf(dErrors.CodeConnectivity, "store returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return dErrors.Wrap(dErrors.CodeConnectivity, "decode store response", err)
		}
	}
	return nil
}
