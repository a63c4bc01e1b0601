// Package query is a small async cache for remote reads: keyed entries, deduplicated
// fetches, partial-key invalidation and mutations that invalidate on success.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status is the outcome of a read.
type Status int

const (
	Idle Status = iota
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// Result is what a read returns. Data is the zero value unless Status is Success.
type Result[T any] struct {
	Status Status
	Data   T
	Err    error
	Cached bool
}

// Query describes one read. A disabled query never fetches.
type Query[T any] struct {
	Key      Key
	Disabled bool
	Fetch    func(ctx context.Context) (T, error)
}

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

// Cache holds read results for the lifetime of the application.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	keys      map[string]Key
	gens      map[string]uint64
	listeners map[int]func(Key)
	nextID    int

	group     singleflight.Group
	staleTime time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleTime makes entries go stale on their own after d. Zero keeps them fresh until invalidated.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithFetchTimeout bounds every detached fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]*entry),
		keys:      make(map[string]Key),
		gens:      make(map[string]uint64),
		listeners: make(map[int]func(Key)),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) fresh(e *entry) bool {
	if e.stale {
		return false
	}
	return c.staleTime <= 0 || c.now().Sub(e.fetchedAt) < c.staleTime
}

// Run reads q through the cache. Concurrent callers with the same key share one fetch.
// The fetch is detached from ctx: cancelling ctx only stops this caller from waiting.
func Run[T any](ctx context.Context, c *Cache, q Query[T]) Result[T] {
	if q.Disabled || q.Fetch == nil {
		return Result[T]{Status: Idle}
	}
	ks := q.Key.String()

	c.mu.Lock()
	c.keys[ks] = q.Key
	if e, ok := c.entries[ks]; ok && c.fresh(e) {
		v, _ := e.value.(T)
		c.mu.Unlock()
		return Result[T]{Status: Success, Data: v, Cached: true}
	}
	gen := c.gens[ks]
	c.mu.Unlock()

	flight := fmt.Sprintf("%s#%d", ks, gen)
	ch := c.group.DoChan(flight, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.timeout)
			defer cancel()
		}
		v, err := q.Fetch(fetchCtx)
		if err != nil {
			c.logger.Debug("query fetch failed", zap.String("key", ks), zap.Error(err))
			return nil, err
		}
		c.mu.Lock()
		if c.gens[ks] == gen {
			c.entries[ks] = &entry{value: v, fetchedAt: c.now()}
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return Result[T]{Status: Error, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return Result[T]{Status: Error, Err: r.Err}
		}
		v, _ := r.Val.(T)
		return Result[T]{Status: Success, Data: v}
	}
}

// Invalidate marks every entry under each prefix stale. Fetches already in flight for those
// keys still answer their waiters but do not store a fresh entry.
func (c *Cache) Invalidate(prefixes ...Key) {
	c.mu.Lock()
	for ks, k := range c.keys {
		for _, p := range prefixes {
			if k.Matches(p) {
				c.gens[ks]++
				if e, ok := c.entries[ks]; ok {
					e.stale = true
				}
				break
			}
		}
	}
	listeners := make([]func(Key), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, p := range prefixes {
		c.logger.Debug("query invalidated", zap.String("key", p.String()))
		for _, fn := range listeners {
			fn(p)
		}
	}
}

// Clear drops every entry. In-flight fetches will not store their results.
func (c *Cache) Clear() {
	c.mu.Lock()
	for ks := range c.keys {
		c.gens[ks]++
	}
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// IsFresh reports whether key has a fresh entry.
func (c *Cache) IsFresh(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	return ok && c.fresh(e)
}

// Peek returns the stored value for key, fresh or stale.
func Peek[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key.String()]
	if !ok {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// OnInvalidate registers fn to be called with each invalidated prefix. It returns an unsubscribe func.
func (c *Cache) OnInvalidate(fn func(Key)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Mutate performs one remote write. On success it invalidates keys; on failure it invalidates nothing.
func Mutate[T any](ctx context.Context, c *Cache, fn func(ctx context.Context) (T, error), keys ...Key) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	c.Invalidate(keys...)
	return v, nil
}
