package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"
)

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DecodeFunc maps a successful response to the payload stored in the cache.
// The response body is closed by the Cache.
type DecodeFunc func(resp *http.Response) (any, error)

// Entry represents a cached payload.
type Entry struct {
	Key       string
	Value     any
	CreatedAt time.Time
}

// Cache memoises decoded GET responses keyed by URL.
type Cache struct {
	doer    Doer
	headers http.Header

	mu      sync.Mutex
	entries map[string]Entry
	stats   Stats

	flight singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Cache) {
		c.headers.Add(key, value)
	}
}

// New creates an empty Cache that fetches through doer. A nil doer uses
// http.DefaultClient.
func New(doer Doer, opts ...Option) *Cache {
	if doer == nil {
		doer = http.DefaultClient
	}
	c := &Cache{
		doer:    doer,
		headers: make(http.Header),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the decoded payload for url, issuing a request only when
// url is not cached yet. It returns (nil, false) when the request or the
// decode fails; failures are logged and leave the cache untouched.
func (c *Cache) Fetch(ctx context.Context, url string, decode DecodeFunc) (any, bool) {
	if v, ok := c.lookup(url); ok {
		return v, true
	}

	ch := c.flight.DoChan(url, func() (v any, err error) {
		// singleflight re-panics on its own goroutine, out of any caller's reach.
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, fmt.Errorf("decoding %s: panic: %v", url, r)
			}
		}()

		// A flight that finished between lookup and DoChan already stored it.
		if e, ok := c.Get(url); ok {
			return e.Value, nil
		}
		v, err = c.fetch(context.WithoutCancel(ctx), url, decode)
		if err != nil {
			return nil, err
		}
		c.Put(url, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		log.WithField("url", url).WithError(ctx.Err()).Warn("gave up waiting for fetch")
		return nil, false
	case res := <-ch:
		if res.Err != nil {
			c.mu.Lock()
			c.stats.Failures++
			c.mu.Unlock()
			log.WithField("url", url).WithError(res.Err).Error("fetch failed")
			return nil, false
		}
		return res.Val, true
	}
}

func (c *Cache) lookup(url string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if ok {
		c.stats.Hits++
		return e.Value, true
	}
	c.stats.Misses++
	return nil, false
}

func (c *Cache) fetch(ctx context.Context, url string, decode DecodeFunc) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	c.mu.Lock()
	c.stats.Fetches++
	c.mu.Unlock()
	log.WithField("url", url).Debug("fetching")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	v, err := decode(resp)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return v, nil
}

// Get returns the entry stored for key without touching the network.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put stores value under key, replacing any previous entry.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Key: key, Value: value, CreatedAt: time.Now()}
}

// Clear removes all entries and resets the counters. Fetches in flight
// when Clear is called may still store their result afterwards.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.stats = Stats{}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats holds cache counters.
type Stats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Fetches  int64 `json:"fetches"`
	Failures int64 `json:"failures"`
}

// GetStats returns a snapshot of the cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Text decodes the body as a string.
func Text(resp *http.Response) (any, error) {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Bytes decodes the body as raw bytes.
func Bytes(resp *http.Response) (any, error) {
	return io.ReadAll(resp.Body)
}

// JSON returns a DecodeFunc unmarshaling the body into a T.
func JSON[T any]() DecodeFunc {
	return func(resp *http.Response) (any, error) {
		var v T
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// FetchText is Fetch with the Text decoder.
func FetchText(ctx context.Context, c *Cache, url string) (string, bool) {
	v, ok := c.Fetch(ctx, url, Text)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FetchBytes is Fetch with the Bytes decoder.
func FetchBytes(ctx context.Context, c *Cache, url string) ([]byte, bool) {
	v, ok := c.Fetch(ctx, url, Bytes)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// FetchJSON is Fetch with the JSON decoder for T.
//
// Entries are keyed by URL only, so a URL must always be fetched with the
// same T; a mismatch reports a failure.
func FetchJSON[T any](ctx context.Context, c *Cache, url string) (T, bool) {
	var zero T
	v, ok := c.Fetch(ctx, url, JSON[T]())
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		log.WithField("url", url).Errorf("cached payload is %T, not %T", v, zero)
		return zero, false
	}
	return t, true
}
