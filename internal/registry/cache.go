// Package registry implements the shared HTTP metadata cache that all
// registry clients fetch through. Entries carry RFC 7232 validators so
// expired data is revalidated with conditional requests instead of
// refetched, total size is bounded with LRU eviction, and concurrent
// fetches for the same key collapse into one request.
package registry

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"depls/internal/ecosystem"
)

// ErrCache marks storage-side failures. Callers treat it as a miss;
// it is never fatal.
var ErrCache = errors.New("cache error")

const (
	userAgent = "depls/0.1.0"
	// Response bodies beyond this are refused rather than cached.
	maxBodyBytes = 10 << 20
	// Per-shard entry count cap, a backstop behind the byte bound.
	shardEntryCap = 4096
)

// Doer issues HTTP requests. *http.Client satisfies it; tests inject
// fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configure a Cache. Zero values fall back to defaults.
type Options struct {
	// TTL before an entry needs revalidation.
	TTL time.Duration
	// MaxBytes bounds the total cached body size.
	MaxBytes int64
	// Shards splits the key space to keep lock contention per-entry
	// rather than global.
	Shards int
	// ServeStale returns expired cached bytes when a revalidation
	// fetch fails, instead of propagating the error. Off by default.
	ServeStale bool
	// AllowHTTP permits non-HTTPS keys. Tests only.
	AllowHTTP bool
	// Client overrides the HTTP client.
	Client Doer
}

type entry struct {
	body         []byte
	etag         string
	lastModified string
	fetchedAt    time.Time
}

func (e *entry) size() int64 {
	return int64(len(e.body)) + 64
}

type shard struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	bytes   int64
}

// Cache is the process-wide registry metadata store.
type Cache struct {
	shards     []*shard
	ttl        time.Duration
	maxShard   int64
	serveStale bool
	allowHTTP  bool
	client     Doer
	flight     singleflight.Group
}

// NewCache builds a cache from options, filling in defaults.
func NewCache(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	if opts.Shards <= 0 {
		opts.Shards = 16
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Cache{
		ttl:        opts.TTL,
		maxShard:   opts.MaxBytes / int64(opts.Shards),
		serveStale: opts.ServeStale,
		allowHTTP:  opts.AllowHTTP,
		client:     opts.Client,
	}
	for i := 0; i < opts.Shards; i++ {
		sh := &shard{}
		// The evict callback keeps the byte counter honest for both
		// explicit RemoveOldest calls and the count backstop.
		entries, err := lru.NewWithEvict[string, *entry](shardEntryCap, func(_ string, e *entry) {
			sh.bytes -= e.size()
		})
		if err != nil {
			panic(err) // only fails on non-positive size
		}
		sh.entries = entries
		c.shards = append(c.shards, sh)
	}
	return c
}

// Get returns the body for a registry URL, fetching or revalidating as
// needed. Concurrent calls with the same key share one network request.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, error) {
	if !c.allowHTTP && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: refusing non-HTTPS url %s", ErrCache, url)
	}

	// singleflight drops the in-flight key once the first caller's
	// function returns, on every exit path including error.
	v, err, _ := c.flight.Do(url, func() (interface{}, error) {
		return c.lookup(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) lookup(ctx context.Context, url string) ([]byte, error) {
	sh := c.shard(url)

	sh.mu.Lock()
	cached, ok := sh.entries.Get(url)
	sh.mu.Unlock()

	if ok && time.Since(cached.fetchedAt) < c.ttl {
		return cached.body, nil
	}

	if ok {
		body, err := c.revalidate(ctx, url, cached)
		if err != nil {
			if c.serveStale {
				log.Printf("registry: serving stale %s after revalidation failure: %v", url, err)
				return cached.body, nil
			}
			return nil, err
		}
		return body, nil
	}

	return c.fetch(ctx, url)
}

// revalidate issues a conditional request with the stored validators.
// A 304 refreshes the entry's timestamp; a 200 replaces it.
func (c *Cache) revalidate(ctx context.Context, url string, cached *entry) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ecosystem.ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}
	if cached.lastModified != "" {
		req.Header.Set("If-Modified-Since", cached.lastModified)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ecosystem.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		// Entries are shared read-only; refresh by replacement.
		refreshed := &entry{
			body:         cached.body,
			etag:         cached.etag,
			lastModified: cached.lastModified,
			fetchedAt:    time.Now(),
		}
		c.store(url, refreshed)
		return cached.body, nil
	}

	return c.consume(url, resp)
}

// fetch issues an unconditional request and caches the result.
func (c *Cache) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ecosystem.ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ecosystem.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	return c.consume(url, resp)
}

// consume validates a 2xx response, stores the body, and returns it.
func (c *Cache) consume(url string, resp *http.Response) ([]byte, error) {
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, fmt.Errorf("%w: %s", ecosystem.ErrNotFound, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d for %s", ecosystem.ErrFetch, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ecosystem.ErrFetch, url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrCache, url, maxBodyBytes)
	}

	c.store(url, &entry{
		body:         body,
		etag:         resp.Header.Get("Etag"),
		lastModified: resp.Header.Get("Last-Modified"),
		fetchedAt:    time.Now(),
	})
	return body, nil
}

// store inserts an entry, then evicts least-recently-used entries until
// the shard is back under its byte bound. Removal walks the LRU list
// directly, so cost per eviction stays constant even under high fan-out.
func (c *Cache) store(url string, e *entry) {
	sh := c.shard(url)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	// Replacement does not fire the evict callback; settle the old
	// entry's bytes by hand.
	if old, ok := sh.entries.Peek(url); ok {
		sh.bytes -= old.size()
	}
	sh.entries.Add(url, e)
	sh.bytes += e.size()

	for sh.bytes > c.maxShard {
		if _, _, ok := sh.entries.RemoveOldest(); !ok {
			break
		}
	}
}

func (c *Cache) shard(url string) *shard {
	h := fnv.New32a()
	h.Write([]byte(url))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Len returns the total entry count across shards.
func (c *Cache) Len() int {
	n := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		n += sh.entries.Len()
		sh.mu.Unlock()
	}
	return n
}

// Bytes returns the total approximate cached size.
func (c *Cache) Bytes() int64 {
	var n int64
	for _, sh := range c.shards {
		sh.mu.Lock()
		n += sh.bytes
		sh.mu.Unlock()
	}
	return n
}

// Contains reports whether a key is currently cached, without touching
// recency.
func (c *Cache) Contains(url string) bool {
	sh := c.shard(url)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.entries.Peek(url)
	return ok
}
