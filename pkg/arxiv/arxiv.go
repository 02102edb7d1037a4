package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// DefaultEndpoint is the public arXiv API query endpoint.
const DefaultEndpoint = "https://export.arxiv.org/api/query"

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxResults = 10
	maxRetries        = 3
)

// APIError represents a non-2xx HTTP response from the arXiv API.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // internal: Retry-After header value for 429s
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arxiv: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures Client behavior.
type Option func(*Client)

// WithEndpoint overrides the API endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithUserAgent sets the User-Agent header. arXiv asks automated clients
// to identify themselves.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxResults sets the default result count per request.
func WithMaxResults(n int) Option {
	return func(c *Client) { c.maxResults = n }
}

// WithRequestDelay sets the minimum spacing between consecutive requests.
// arXiv's terms ask for no more than one request every 3 seconds.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// Client talks to the arXiv Atom API with polite request spacing and
// retry on 429/5xx responses. It is safe for concurrent use; callers
// serialize through the spacing reservation.
type Client struct {
	endpoint   string
	userAgent  string
	maxResults int
	delay      time.Duration
	httpClient *http.Client

	mu          sync.Mutex // guards lastRequest and requests
	lastRequest time.Time
	requests    int
}

// New creates a Client for the arXiv API.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		userAgent:  "paperscout/1.0",
		maxResults: defaultMaxResults,
		delay:      3 * time.Second,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query describes one search against the API.
type Query struct {
	Category   string // e.g. "cs.AI"
	Keywords   string // optional free-text terms, ANDed with the category
	Start      int
	MaxResults int // 0 means the client default
}

// searchQuery renders the raw search_query expression.
func (q Query) searchQuery() string {
	raw := "cat:" + q.Category
	if q.Keywords != "" {
		raw += " AND all:" + q.Keywords
	}
	return raw
}

// Search runs a query sorted by submission date, newest first.
func (c *Client) Search(ctx context.Context, q Query) ([]Paper, error) {
	if q.Category == "" {
		return nil, fmt.Errorf("arxiv: query category is required")
	}

	limit := q.MaxResults
	if limit <= 0 {
		limit = c.maxResults
	}

	params := url.Values{}
	params.Set("search_query", q.searchQuery())
	params.Set("start", strconv.Itoa(q.Start))
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	body, err := c.get(ctx, c.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	feed, err := parseFeed(body)
	if err != nil {
		return nil, err
	}
	return feed.papers(), nil
}

// Latest fetches the n most recently submitted papers in a category.
func (c *Client) Latest(ctx context.Context, category string, n int) ([]Paper, error) {
	return c.Search(ctx, Query{Category: category, MaxResults: n})
}

// RequestCount returns the number of API requests made by this client.
func (c *Client) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

// get fetches a URL, honoring request spacing and retrying on 429 (with
// Retry-After) and 5xx (exponential backoff: 1s, 2s, 4s). Max 3 retries.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.waitPolite(ctx); err != nil {
		return nil, err
	}

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffDelay(attempt, lastErr)
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)

		c.mu.Lock()
		c.requests++
		c.mu.Unlock()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		bodyStr := string(body)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: bodyStr}

		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.retryAfter = resp.Header.Get("Retry-After")
			lastErr = apiErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}

		return nil, apiErr
	}

	return nil, lastErr
}

// waitPolite reserves the next request slot and blocks until it
// arrives. Slots are spaced c.delay apart, so concurrent callers are
// serialized instead of all passing at once against a stale timestamp.
func (c *Client) waitPolite(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	slot := c.lastRequest.Add(c.delay)
	if c.lastRequest.IsZero() || slot.Before(now) {
		slot = now
	}
	c.lastRequest = slot
	c.mu.Unlock()

	remaining := time.Until(slot)
	if remaining <= 0 {
		return nil
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDelay returns the wait duration before a retry attempt.
func backoffDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<(attempt-1)) * time.Second
}
