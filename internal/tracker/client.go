package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the settings for connecting to the tracker API.
type Config struct {
	// BaseURL is the tracker instance URL (e.g. "https://api.tracker.example").
	BaseURL string
	// APIKey is the static per-workspace key sent in the X-API-Key header.
	APIKey string
	// Workspace is the workspace slug all requests are scoped to.
	Workspace string
	// Timeout bounds each individual HTTP request. Defaults to 30s.
	Timeout time.Duration
	// Retry is the rate-limit retry policy. Zero value means DefaultBackoff.
	Retry Backoff
}

// Client is a rate-limited wrapper over the tracker's REST API. It classifies
// HTTP outcomes into typed errors and retries 429 responses with exponential
// backoff. It keeps no state beyond the connection pool.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	workspace string
	retry     Backoff
	logger    *slog.Logger
}

// NewClient creates a tracker API client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tracker base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tracker API key is required")
	}
	if cfg.Workspace == "" {
		return nil, fmt.Errorf("tracker workspace slug is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultBackoff()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		workspace: cfg.Workspace,
		retry:     retry,
		logger:    logger,
	}, nil
}

// request performs one logical API call, retrying on 429 up to the configured
// attempts. After the last attempt still returns 429 it fails with a
// rate-limited error; every other ≥400 status fails immediately. On success
// the response body is decoded into out when out is non-nil.
func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindAPI, Endpoint: endpoint, Message: "encode request body", Cause: err}
		}
		payload = data
	}

	reqURL := c.baseURL + "/api/v1/workspaces/" + c.workspace + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return &Error{Kind: KindAPI, Endpoint: endpoint, Message: "build request", Cause: err}
		}
		req.Header.Set("X-API-Key", c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return &Error{Kind: KindAPI, Endpoint: endpoint, Message: "request failed", Cause: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if attempt == c.retry.MaxAttempts-1 {
				return &Error{
					Kind:       KindRateLimited,
					StatusCode: resp.StatusCode,
					Endpoint:   endpoint,
					Message:    fmt.Sprintf("rate limited after %d attempts", c.retry.MaxAttempts),
				}
			}
			delay := c.retry.delay(attempt)
			c.logger.Warn("tracker rate limited, backing off",
				"endpoint", endpoint, "attempt", attempt+1, "delay", delay)
			c.retry.sleep(delay)
			continue
		}

		return c.finish(resp, endpoint, out)
	}

	// Unreachable: the loop always returns.
	return &Error{Kind: KindAPI, Endpoint: endpoint, Message: "no attempts made"}
}

func (c *Client) finish(resp *http.Response, endpoint string, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return &Error{Kind: KindAuth, StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "invalid API key"}
		case http.StatusNotFound:
			return &Error{Kind: KindNotFound, StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "resource not found"}
		default:
			return &Error{Kind: KindAPI, StatusCode: resp.StatusCode, Endpoint: endpoint, Message: msg}
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindAPI, StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "decode response", Cause: err}
	}
	return nil
}

// listAll fetches every page of a paginated list endpoint, following the
// results envelope's cursor until the server reports no further pages.
func (c *Client) listAll(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("per_page", "100")

	var all []json.RawMessage
	for {
		var page paginatedResponse
		if err := c.request(ctx, http.MethodGet, endpoint, params, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		if !page.NextPageResults || page.NextCursor == "" || len(page.Results) == 0 {
			return all, nil
		}
		params.Set("cursor", page.NextCursor)
	}
}
