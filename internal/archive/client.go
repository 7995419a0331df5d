// Package archive provides a read-only client for the archive.org metadata
// service: year-scoped show searches and per-item metadata fetches.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	defaultSearchURL   = "https://archive.org/advancedsearch.php"
	defaultMetadataURL = "https://archive.org/metadata"
	defaultDownloadURL = "https://archive.org/download"
	defaultCollection  = "GratefulDead"

	userAgent  = "yearjam/1.0"
	searchRows = 1000
)

// Sentinel errors.
var (
	// ErrUnavailable is returned when the catalog keeps failing after retries.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Config holds the catalog endpoints and collection to query. Zero values
// fall back to the public archive.org endpoints.
type Config struct {
	SearchURL   string
	MetadataURL string
	DownloadURL string
	Collection  string

	// OnRequest, when set, observes every upstream call with its operation
	// name and wall time. Cache hits are not reported.
	OnRequest func(op string, seconds float64)
}

// Client is an archive.org metadata client with retry and an in-memory item
// cache. Items are immutable once published, so cached entries never expire.
type Client struct {
	cfg        Config
	httpClient *http.Client

	cache   map[string]*Item
	cacheMu sync.RWMutex
}

// NewClient creates a catalog client from the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.SearchURL == "" {
		cfg.SearchURL = defaultSearchURL
	}
	if cfg.MetadataURL == "" {
		cfg.MetadataURL = defaultMetadataURL
	}
	if cfg.DownloadURL == "" {
		cfg.DownloadURL = defaultDownloadURL
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: make(map[string]*Item),
	}
}

// SearchShows returns all shows of the configured collection dated within
// the given year, sorted by date.
func (c *Client) SearchShows(ctx context.Context, year int) ([]ShowDoc, error) {
	defer c.observe("search_shows", time.Now())

	q := fmt.Sprintf("collection:%s AND date:[%d-01-01 TO %d-12-31]", c.cfg.Collection, year, year)
	params := url.Values{
		"q":      {q},
		"fl[]":   {"identifier", "date", "title", "venue", "location"},
		"rows":   {fmt.Sprint(searchRows)},
		"sort[]": {"date asc"},
		"output": {"json"},
	}

	body, err := c.doRequest(ctx, c.cfg.SearchURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("searching shows in %d: %w", year, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return resp.Response.Docs, nil
}

// SearchText returns shows of the configured collection matching a free
// text term against title, venue, or date. An empty term lists the whole
// collection (capped at rows).
func (c *Client) SearchText(ctx context.Context, term string, rows int) ([]ShowDoc, error) {
	defer c.observe("search_text", time.Now())

	q := "collection:" + c.cfg.Collection
	if term != "" {
		q = fmt.Sprintf("collection:%s AND (title:%s OR venue:%s OR date:%s)", c.cfg.Collection, term, term, term)
	}
	params := url.Values{
		"q":      {q},
		"fl[]":   {"identifier", "date", "title", "venue", "location"},
		"rows":   {fmt.Sprint(rows)},
		"sort[]": {"date asc"},
		"output": {"json"},
	}

	body, err := c.doRequest(ctx, c.cfg.SearchURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", term, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return resp.Response.Docs, nil
}

// GetItem fetches the authoritative metadata and file list for one show.
// Results are cached for the lifetime of the client.
func (c *Client) GetItem(ctx context.Context, identifier string) (*Item, error) {
	c.cacheMu.RLock()
	if cached, ok := c.cache[identifier]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	defer c.observe("get_item", time.Now())

	body, err := c.doRequest(ctx, c.cfg.MetadataURL+"/"+url.PathEscape(identifier))
	if err != nil {
		return nil, fmt.Errorf("fetching item %s: %w", identifier, err)
	}

	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("parsing item metadata: %w", err)
	}
	if item.Metadata.Identifier == "" {
		item.Metadata.Identifier = identifier
	}

	c.cacheMu.Lock()
	c.cache[identifier] = &item
	c.cacheMu.Unlock()

	return &item, nil
}

// DownloadURL builds the playback URL for a file of an item.
func (c *Client) DownloadURL(identifier, filename string) string {
	return c.cfg.DownloadURL + "/" + url.PathEscape(identifier) + "/" + url.PathEscape(filename)
}

func (c *Client) observe(op string, start time.Time) {
	if c.cfg.OnRequest != nil {
		c.cfg.OnRequest(op, time.Since(start).Seconds())
	}
}

// doRequest performs an HTTP GET with retry on 429 and 5xx responses.
// Retries up to 3 times with exponential backoff (500ms, 1s, 2s).
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	delays := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	var lastErr error

	for attempt := 0; attempt <= len(delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delays[attempt-1]):
			}
		}

		body, retryable, err := c.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// doSingleRequest performs a single HTTP request. The bool return reports
// whether the failure is worth retrying.
func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading response body: %w", err)
	}
	return body, false, nil
}
