// Package jina provides a client for the Jina AI Reader and Search APIs,
// used to fetch investor-relations pages as text and to discover rating
// coverage via web search.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Jina operations the rating tiers depend on.
type Client interface {
	// Read fetches a URL via the Reader API and returns its visible text as
	// markdown.
	Read(ctx context.Context, targetURL string) (*Page, error)
	// Search performs a web search and returns result snippets.
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Page is the readable content of a fetched URL.
type Page struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchResult is a single web search hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

type readEnvelope struct {
	Code int  `json:"code"`
	Data Page `json:"data"`
}

type searchEnvelope struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithReaderBaseURL overrides the Reader endpoint (for testing).
func WithReaderBaseURL(base string) Option {
	return func(c *httpClient) { c.readerBase = base }
}

// WithSearchBaseURL overrides the Search endpoint (for testing).
func WithSearchBaseURL(base string) Option {
	return func(c *httpClient) { c.searchBase = base }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey     string
	readerBase string
	searchBase string
	http       *http.Client
}

// NewClient creates a Jina client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		readerBase: "https://r.jina.ai",
		searchBase: "https://s.jina.ai",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// do executes the request with up to three attempts, backing off between
// transient failures. The outer resilience wrapper owns the overall deadline;
// these inner retries only smooth over momentary 5xx blips.
func (c *httpClient) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, resp.StatusCode, eris.Wrap(readErr, "jina: read response body")
			}
			if !retryable(resp.StatusCode) {
				return body, resp.StatusCode, nil
			}
			lastErr = eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body))
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, 0, lastErr
}

func (c *httpClient) Read(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.readerBase, targetURL), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create read request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", "markdown")

	body, status, err := c.do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read request failed")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("jina: read unexpected status %d: %s", status, string(body))
	}

	var env readEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal read response")
	}
	return &env.Data, nil
}

func (c *httpClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.searchBase, url.QueryEscape(query)), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create search request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: search request failed")
	}

	// 422 means no results for the query; not an error.
	if status == http.StatusUnprocessableEntity {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("jina: search unexpected status %d: %s", status, string(body))
	}

	var env searchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}
	return env.Data, nil
}
