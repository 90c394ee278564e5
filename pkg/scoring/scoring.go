// Package scoring asks a remote language model to score candidate words in
// context. Client batches uncached requests into one remote call and keeps
// confirmed scores in a bounded LRU cache.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bastiangx/grammarserve/internal/logger"
	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCacheSize is the number of requests whose scores are kept.
const DefaultCacheSize = 1000

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("scoring client closed")

// Request asks for the score of each candidate replacing Text[Start:End].
// Two requests are equal when all four fields are.
type Request struct {
	Text       string   `msgpack:"text" json:"text"`
	Start      int      `msgpack:"start" json:"start"`
	End        int      `msgpack:"end" json:"end"`
	Candidates []string `msgpack:"candidates" json:"candidates"`
}

// Masked returns the replaced span of the text.
func (r Request) Masked() string {
	if r.Start < 0 || r.End > len(r.Text) || r.Start > r.End {
		return ""
	}
	return r.Text[r.Start:r.End]
}

func (r Request) key() (string, error) {
	if len(r.Candidates) == 0 {
		r.Candidates = nil
	}
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return "", fmt.Errorf("failed to encode scoring request: %w", err)
	}
	return string(b), nil
}

// Remote is the scoring service. Scores are returned per candidate.
type Remote interface {
	Score(ctx context.Context, req Request) ([]float64, error)
	BatchScore(ctx context.Context, reqs []Request) ([][]float64, error)
	Close() error
}

// Client is the caching, batching front of a Remote. It is safe for concurrent use.
// Two concurrent calls missing the cache on the same request both reach the remote.
type Client struct {
	remote Remote
	cache  *lru.Cache[string, []float64]
	closed atomic.Bool
	logger *log.Logger
}

// NewClient wraps remote with a cache of cacheSize entries (DefaultCacheSize when not positive).
func NewClient(remote Remote, cacheSize int) (*Client, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create score cache: %w", err)
	}
	return &Client{remote: remote, cache: cache, logger: logger.New("scoring")}, nil
}

// BatchScore returns one score vector per request, in input order.
// Only the requests missing from the cache are sent, in one remote call and
// in their relative order. A failed call fails the batch and caches nothing.
func (c *Client) BatchScore(ctx context.Context, reqs []Request) ([][]float64, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	results := make([][]float64, len(reqs))
	keys := make([]string, len(reqs))
	var missing []Request
	var missingIdx []int

	for i, r := range reqs {
		k, err := r.key()
		if err != nil {
			return nil, err
		}
		keys[i] = k
		if scores, ok := c.cache.Get(k); ok {
			results[i] = clone(scores)
			continue
		}
		missing = append(missing, r)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return results, nil
	}

	c.logger.Debugf("Scoring %d of %d requests remotely", len(missing), len(reqs))
	scored, err := c.remote.BatchScore(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("scoring: batch of %d requests: %w", len(missing), err)
	}
	if len(scored) != len(missing) {
		return nil, fmt.Errorf("scoring: remote returned %d results for %d requests", len(scored), len(missing))
	}
	for j, i := range missingIdx {
		c.cache.Add(keys[i], clone(scored[j]))
		results[i] = scored[j]
	}
	return results, nil
}

// Score sends one request directly, bypassing cache and batching.
func (c *Client) Score(ctx context.Context, req Request) ([]float64, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	scores, err := c.remote.Score(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	return scores, nil
}

// Close releases the remote. Later calls return ErrClosed; closing twice is a no-op.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.cache.Purge()
	return c.remote.Close()
}

// CacheLen is the number of cached requests.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

func clone(s []float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
