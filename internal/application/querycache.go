package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/mytaskpanel/internal/domain/model"
	"github.com/ericfisherdev/mytaskpanel/internal/domain/port/driven"
)

// Cache timing defaults.
const (
	DefaultStaleTime    = 30 * time.Second
	DefaultGCTime       = 5 * time.Minute
	DefaultFetchTimeout = 60 * time.Second
)

// noSelection is the selection component of a key with no active project.
const noSelection = "none"

// QueryFunc fetches the payload for one cache key. creds is nil when no
// project is active; the function then falls back to ambient defaults.
type QueryFunc[T any] func(ctx context.Context, creds *model.Credentials) (T, error)

// QueryRequest names one query. Selection is the project the query is scoped
// to; it is part of the cache key, so two selections never share an entry.
type QueryRequest struct {
	Name      string
	Params    any
	Selection *model.Project

	// Enabled overrides the default enablement, which is "a project is
	// selected".
	Enabled *bool
}

// Key returns the cache key: name, canonical params and selection id.
func (r QueryRequest) Key() (string, error) {
	params := "null"
	if r.Params != nil {
		// encoding/json sorts map keys and keeps struct field order, so equal
		// params always encode identically.
		data, err := json.Marshal(r.Params)
		if err != nil {
			return "", fmt.Errorf("encode params for %q: %w", r.Name, err)
		}
		params = string(data)
	}

	selection := noSelection
	if r.Selection != nil {
		selection = r.Selection.ID
	}

	return r.Name + "|" + params + "|" + selection, nil
}

func (r QueryRequest) enabled() bool {
	if r.Enabled != nil {
		return *r.Enabled
	}
	return r.Selection != nil
}

// QueryError is the single failure shape surfaced by the cache. Message is
// the remote tracker's own message when it sent a structured error payload.
type QueryError struct {
	Query   string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Query, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// normalizeError folds every error shape into a *QueryError.
func normalizeError(query string, err error) *QueryError {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}

	msg := err.Error()
	var remote *driven.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		msg = remote.Message
	}
	return &QueryError{Query: query, Message: msg, Err: err}
}

// cacheEntry is one fetched payload. Scope fingerprints the credentials it
// was fetched with; an entry whose scope no longer matches the selection is
// treated as missing.
type cacheEntry struct {
	Value     any
	FetchedAt time.Time
	Scope     string
}

// QueryCacheConfig tunes a QueryCache. Zero fields take the defaults.
type QueryCacheConfig struct {
	// StaleTime is how long a fetched entry is served without refetching.
	StaleTime time.Duration
	// GCTime is how long an entry is kept at all; superseded keys are
	// evicted by the janitor after this age.
	GCTime time.Duration
	// FetchTimeout bounds a shared fetch, which outlives its callers.
	FetchTimeout time.Duration
	// Now is the clock used for staleness.
	Now func() time.Time
}

// QueryCache is a request cache scoped by the active selection. It holds
// derived data only and can be dropped at any time.
type QueryCache struct {
	entries *gocache.Cache
	group   singleflight.Group

	// mu guards epochs and orders Invalidate against entry writes. A fetch
	// only stores its result if the epoch of its query is unchanged.
	mu     sync.Mutex
	epochs map[string]uint64

	staleTime    time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewQueryCache creates a QueryCache.
func NewQueryCache(cfg QueryCacheConfig, logger *slog.Logger) *QueryCache {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultStaleTime
	}
	if cfg.GCTime <= 0 {
		cfg.GCTime = DefaultGCTime
	}
	if cfg.GCTime < cfg.StaleTime {
		cfg.GCTime = cfg.StaleTime
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &QueryCache{
		entries:      gocache.New(cfg.GCTime, time.Minute),
		epochs:       make(map[string]uint64),
		staleTime:    cfg.StaleTime,
		fetchTimeout: cfg.FetchTimeout,
		now:          cfg.Now,
		logger:       logger,
	}
}

// Query returns the payload for req, fetching it with fn on a miss. A fresh
// entry is served from memory. Concurrent callers with the same key share a
// single fetch. A disabled query returns ErrQueryDisabled without calling fn.
// Every fetch failure is returned as a *QueryError and is not cached. A fetch
// that was in flight when its query was invalidated still answers its own
// callers but is not cached, and later callers start a new fetch.
func Query[T any](ctx context.Context, c *QueryCache, req QueryRequest, fn QueryFunc[T]) (T, error) {
	var zero T

	if !req.enabled() {
		return zero, ErrQueryDisabled
	}

	key, err := req.Key()
	if err != nil {
		return zero, err
	}

	scope := scopeOf(req.Selection)
	if v, ok := c.entries.Get(key); ok {
		entry := v.(cacheEntry)
		if entry.Scope == scope && c.now().Sub(entry.FetchedAt) < c.staleTime {
			if typed, ok := entry.Value.(T); ok {
				return typed, nil
			}
		}
	}

	var creds *model.Credentials
	if req.Selection != nil {
		attached := req.Selection.Credentials()
		creds = &attached
	}

	epoch := c.epoch(req.Name)
	flight := fmt.Sprintf("%s|%d|%s", key, epoch, scope)

	ch := c.group.DoChan(flight, func() (any, error) {
		// The fetch is shared, so no single caller's cancellation may abort
		// it. It still ends at fetchTimeout.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		start := c.now()
		value, err := fn(fetchCtx, creds)
		if err != nil {
			c.logger.Warn("query failed", "query", req.Name, "error", err)
			return nil, normalizeError(req.Name, err)
		}

		if !c.store(req.Name, epoch, key, cacheEntry{Value: value, FetchedAt: c.now(), Scope: scope}) {
			c.logger.Debug("query invalidated while fetching, result not cached", "query", req.Name)
			return value, nil
		}
		c.logger.Debug("query fetched",
			"query", req.Name,
			"selection", selectionID(req.Selection),
			"duration", c.now().Sub(start).Round(time.Millisecond),
		)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: cached value has type %T", req.Name, res.Val)
		}
		return typed, nil
	}
}

// Invalidate drops every entry of the named query, for all selections, and
// keeps fetches already in flight from caching their results.
func (c *QueryCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epochs[name]++
	prefix := name + "|"
	for key := range c.entries.Items() {
		if strings.HasPrefix(key, prefix) {
			c.entries.Delete(key)
		}
	}
}

func (c *QueryCache) epoch(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochs[name]
}

// store caches entry under key unless name was invalidated after epoch.
func (c *QueryCache) store(name string, epoch uint64, key string, entry cacheEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epochs[name] != epoch {
		return false
	}
	c.entries.SetDefault(key, entry)
	return true
}

// Len returns the number of entries currently held, stale ones included.
func (c *QueryCache) Len() int {
	return c.entries.ItemCount()
}

// scopeOf fingerprints the credentials a selection attaches. Editing the
// active project changes its scope without changing its id.
func scopeOf(p *model.Project) string {
	if p == nil {
		return noSelection
	}
	creds := p.Credentials()
	sum := sha256.Sum256([]byte(string(creds.Provider.Normalize()) + "\x00" + creds.Token + "\x00" + creds.DatabaseID))
	return hex.EncodeToString(sum[:8])
}

func selectionID(p *model.Project) string {
	if p == nil {
		return noSelection
	}
	return p.ID
}
