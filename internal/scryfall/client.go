// Package scryfall fetches card prices from the Scryfall API.
package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Scryfall API.
	DefaultBaseURL = "https://api.scryfall.com"

	// MaxBatchSize is the maximum number of identifiers per collection request.
	MaxBatchSize = 75

	defaultRateLimit = 100 * time.Millisecond // 10 req/sec, Scryfall's published limit
	requestTimeout   = 30 * time.Second
	maxRetries       = 3
	initialBackoff   = 1 * time.Second
	maxBackoff       = 16 * time.Second
)

// ClientOptions configures a Client. Zero values use the defaults.
type ClientOptions struct {
	BaseURL    string
	RateLimit  time.Duration
	HTTPClient *http.Client
	UserAgent  string

	// Backoff is the first retry delay after a 429 or network error.
	Backoff time.Duration
}

// Client is a rate-limited Scryfall API client.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
	backoff     time.Duration
}

// NewClient creates a Scryfall client.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mtg-binder/1.0"
	}
	if opts.Backoff <= 0 {
		opts.Backoff = initialBackoff
	}

	return &Client{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		rateLimiter: rate.NewLimiter(rate.Every(opts.RateLimit), 1),
		userAgent:   opts.UserAgent,
		backoff:     opts.Backoff,
	}
}

// GetCollection looks up to MaxBatchSize printings in one request. It returns
// the cards found and the identifiers Scryfall could not match.
func (c *Client) GetCollection(ctx context.Context, identifiers []CardIdentifier) ([]Card, []CardIdentifier, error) {
	if len(identifiers) == 0 {
		return []Card{}, nil, nil
	}
	if len(identifiers) > MaxBatchSize {
		return nil, nil, fmt.Errorf("batch of %d exceeds the %d identifier limit", len(identifiers), MaxBatchSize)
	}

	body, err := json.Marshal(CollectionRequest{Identifiers: identifiers})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp CollectionResponse
	if err := c.post(ctx, c.baseURL+"/cards/collection", body, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to fetch collection: %w", err)
	}
	return resp.Data, resp.NotFound, nil
}

// post sends body with rate limiting, retrying 429s and network errors with
// exponential backoff.
func (c *Client) post(ctx context.Context, url string, body []byte, result any) error {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, maxBackoff)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}

		retry, err := c.handleResponse(resp, result)
		if !retry {
			return err
		}
		lastErr = err
		if wait := retryAfter(resp); wait > backoff {
			backoff = wait
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) handleResponse(resp *http.Response, result any) (retry bool, err error) {
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.Unmarshal(data, result); err != nil {
			return false, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return false, nil
	case http.StatusTooManyRequests:
		return true, fmt.Errorf("rate limited (HTTP 429)")
	default:
		var apiErr APIError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Details != "" {
			return false, &apiErr
		}
		return false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(data))
	}
}

func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
