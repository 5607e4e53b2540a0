// Package feed downloads the CSV exports that back every dataset.
//
// Each source is cached in SQLite together with its entity tag. Within
// the TTL the cached copy is served directly; after that a conditional
// request revalidates it, and transport failures fall back to the stale
// copy rather than failing the load.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tipster/internal/sourcecache"
)

const cacheTable = "feed_sources"

// Client fetches feed sources over HTTP with persistent caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *sourcecache.Repository
	log        zerolog.Logger
}

// NewClient creates a feed client rooted at baseURL.
func NewClient(baseURL string, cache *sourcecache.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: cache,
		log:   log.With().Str("client", "feed").Logger(),
	}
}

// cachedSource is the envelope stored per source name.
type cachedSource struct {
	ETag      string    `json:"etag,omitempty"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetch returns the CSV body of one source. A fresh cached copy is
// served as-is; an expired one is revalidated with its entity tag, where
// "unchanged" extends the cache instead of re-downloading. Cold starts
// re-download unconditionally. On transport failure the stale copy, when
// one exists, is preferred over an error.
func (c *Client) Fetch(ctx context.Context, source string, ttl time.Duration) ([]byte, error) {
	if body, err := c.getFresh(source); err == nil && body != nil {
		return body, nil
	}

	stale := c.getStale(source)

	etag := ""
	if stale != nil {
		etag = stale.ETag
	}

	body, newTag, status, err := c.download(ctx, source, etag)
	switch {
	case err != nil:
		if stale != nil {
			c.log.Warn().Err(err).Str("source", source).Msg("fetch failed, serving stale copy")
			return stale.Body, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", source, err)

	case status == http.StatusNotModified:
		if stale == nil || len(stale.Body) == 0 {
			// Nothing cached to extend; force a full download.
			body, newTag, status, err = c.download(ctx, source, "")
			if err != nil {
				return nil, fmt.Errorf("fetch %s: %w", source, err)
			}
			if status == http.StatusNotModified {
				return nil, fmt.Errorf("fetch %s: revalidated with nothing cached", source)
			}
			c.store(source, newTag, body, ttl)
			return body, nil
		}
		if _, err := c.cache.Touch(cacheTable, source, ttl); err != nil {
			c.log.Warn().Err(err).Str("source", source).Msg("failed to extend cache entry")
		}
		c.log.Debug().Str("source", source).Msg("source unchanged upstream")
		return stale.Body, nil

	default:
		c.store(source, newTag, body, ttl)
		return body, nil
	}
}

// getFresh returns the cached body when its TTL has not lapsed.
func (c *Client) getFresh(source string) ([]byte, error) {
	raw, err := c.cache.GetIfFresh(cacheTable, source)
	if err != nil || raw == nil {
		return nil, err
	}
	var entry cachedSource
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return entry.Body, nil
}

// getStale returns the cached envelope regardless of expiry, or nil.
func (c *Client) getStale(source string) *cachedSource {
	raw, err := c.cache.Get(cacheTable, source)
	if err != nil || raw == nil {
		return nil
	}
	var entry cachedSource
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Warn().Err(err).Str("source", source).Msg("discarding unreadable cache entry")
		return nil
	}
	return &entry
}

// download performs one HTTP request. A non-empty etag makes it
// conditional. The response body is returned only for 200.
func (c *Client) download(ctx context.Context, source, etag string) ([]byte, string, int, error) {
	url := fmt.Sprintf("%s/%s.csv", c.baseURL, source)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", 0, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, "", resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", resp.StatusCode, err
	}
	return body, resp.Header.Get("ETag"), resp.StatusCode, nil
}

func (c *Client) store(source, etag string, body []byte, ttl time.Duration) {
	raw, err := json.Marshal(cachedSource{
		ETag:      etag,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		c.log.Warn().Err(err).Str("source", source).Msg("failed to encode cache entry")
		return
	}
	if err := c.cache.Store(cacheTable, source, raw, ttl); err != nil {
		c.log.Warn().Err(err).Str("source", source).Msg("failed to cache source")
	}
}
