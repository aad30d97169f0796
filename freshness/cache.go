// Package freshness keeps remote collections fresh while someone is looking at them.
//
// A Cache polls its fetch function once per stale interval for as long as at least
// one consumer is subscribed. Overlapping refreshes, whether from the poll timer or
// a manual pull, share one fetch.
package freshness

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MensaSverige/swagapp-sub001/clock"
	apperrors "github.com/MensaSverige/swagapp-sub001/internal/errors"
	"github.com/MensaSverige/swagapp-sub001/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const DefaultStaleInterval = 5 * time.Minute

// FetchFunc loads the full collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Snapshotter persists the last successful fetch so a restarted process knows how
// old its data is. Load returns apperrors.ErrNotFound when nothing was saved.
type Snapshotter interface {
	Load(ctx context.Context, name string) (data []byte, fetchedAt time.Time, err error)
	Save(ctx context.Context, name string, data []byte, fetchedAt time.Time) error
}

type settings struct {
	stale    time.Duration
	clock    clock.Clock
	log      zerolog.Logger
	metrics  *metrics.Metrics
	snapshot Snapshotter
}

type Option func(*settings)

func WithStaleInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.stale = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

func WithSnapshot(snapshot Snapshotter) Option {
	return func(s *settings) {
		s.snapshot = snapshot
	}
}

type Cache[T any] struct {
	name  string
	fetch FetchFunc[T]
	settings

	mu            sync.Mutex
	items         []T
	lastFetchedAt time.Time
	lastErr       error
	flights       singleflight.Group
	refreshing    bool
	waiters       int
	subscribers   map[string]struct{}
	timer         clock.Timer
	generation    uint64
	closed        bool
	listeners     []func(items []T, fetchedAt time.Time)
}

func New[T any](name string, fetch FetchFunc[T], options ...Option) *Cache[T] {
	s := settings{
		stale: DefaultStaleInterval,
		clock: clock.Real{},
		log:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(&s)
	}
	s.log = s.log.With().Str("cache", name).Logger()

	return &Cache[T]{
		name:        name,
		fetch:       fetch,
		settings:    s,
		subscribers: make(map[string]struct{}),
	}
}

func (c *Cache[T]) Name() string {
	return c.name
}

// OnUpdate registers fn to run after every successful refresh or restore. fn runs
// before waiting Refresh callers return.
func (c *Cache[T]) OnUpdate(fn func(items []T, fetchedAt time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Subscribe registers a consumer. The first consumer starts polling: the first
// refresh fires once the current data goes stale, immediately if it never loaded.
func (c *Cache[T]) Subscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if _, ok := c.subscribers[id]; ok {
		return
	}
	c.subscribers[id] = struct{}{}
	if len(c.subscribers) == 1 {
		c.scheduleLocked(c.untilStaleLocked())
	}
}

// Unsubscribe removes a consumer. Removing the last one stops polling before it returns.
func (c *Cache[T]) Unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.subscribers[id]; !ok {
		return
	}
	delete(c.subscribers, id)
	if len(c.subscribers) == 0 {
		c.stopLocked()
	}
}

func (c *Cache[T]) untilStaleLocked() time.Duration {
	if c.lastFetchedAt.IsZero() {
		return 0
	}
	remaining := c.stale - c.clock.Now().Sub(c.lastFetchedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Cache[T]) scheduleLocked(d time.Duration) {
	gen := c.generation
	c.timer = c.clock.AfterFunc(d, func() {
		c.tick(gen)
	})
}

func (c *Cache[T]) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// A tick already running with the old generation must not reschedule.
	c.generation++
}

func (c *Cache[T]) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || len(c.subscribers) == 0 || c.closed {
		c.mu.Unlock()
		return
	}
	// A manual refresh may have made the data fresh since this timer was set.
	if remaining := c.untilStaleLocked(); remaining > 0 {
		c.scheduleLocked(remaining)
		c.mu.Unlock()
		return
	}
	c.scheduleLocked(c.stale)
	c.mu.Unlock()

	c.Refresh(context.Background())
}

// Refresh fetches the collection unless a fetch is already running, in which case
// it waits for that one. It returns when the fetch finishes or ctx is done. A
// failed fetch keeps the previous items and is reported by LastError.
func (c *Cache[T]) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.waiters++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.waiters--
		c.mu.Unlock()
	}()

	ch := c.flights.DoChan(c.name, func() (any, error) {
		c.run(context.WithoutCancel(ctx))
		return nil, nil
	})

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (c *Cache[T]) run(ctx context.Context) {
	c.mu.Lock()
	c.refreshing = true
	c.mu.Unlock()

	items, err := c.fetch(ctx)
	c.metrics.ObserveRefresh(c.name, err, len(items))

	c.mu.Lock()
	if err != nil {
		c.lastErr = err
		c.refreshing = false
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("refresh failed, keeping previous items")
		return
	}
	if items == nil {
		items = []T{}
	}
	fetchedAt := c.clock.Now()
	c.items = items
	c.lastFetchedAt = fetchedAt
	c.lastErr = nil
	c.refreshing = false
	listeners := append([]func([]T, time.Time){}, c.listeners...)
	c.mu.Unlock()

	c.log.Debug().Int("items", len(items)).Msg("refreshed")
	c.notify(listeners, items, fetchedAt)
	c.save(ctx, items, fetchedAt)
}

func (c *Cache[T]) notify(listeners []func([]T, time.Time), items []T, fetchedAt time.Time) {
	for _, fn := range listeners {
		fn(append([]T(nil), items...), fetchedAt)
	}
}

func (c *Cache[T]) save(ctx context.Context, items []T, fetchedAt time.Time) {
	if c.snapshot == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		c.log.Warn().Err(err).Msg("could not encode snapshot")
		return
	}
	if err := c.snapshot.Save(ctx, c.name, data, fetchedAt); err != nil {
		c.log.Warn().Err(err).Msg("could not save snapshot")
	}
}

// Restore seeds the cache from its snapshot. It does nothing when the cache has
// already fetched or no snapshot exists.
func (c *Cache[T]) Restore(ctx context.Context) error {
	if c.snapshot == nil {
		return nil
	}
	data, fetchedAt, err := c.snapshot.Load(ctx, c.name)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrapf(err, "[Cache.Restore] %s", c.name)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return apperrors.Wrapf(err, "[Cache.Restore] %s: decode", c.name)
	}

	c.mu.Lock()
	if !c.lastFetchedAt.IsZero() {
		c.mu.Unlock()
		return nil
	}
	c.items = items
	c.lastFetchedAt = fetchedAt
	listeners := append([]func([]T, time.Time){}, c.listeners...)
	c.mu.Unlock()

	c.log.Debug().Int("items", len(items)).Time("fetchedAt", fetchedAt).Msg("restored snapshot")
	c.notify(listeners, items, fetchedAt)
	return nil
}

// Items returns a copy of the last successfully fetched collection.
func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Cache[T]) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// LastFetchedAt is the time of the last successful fetch, zero if there was none.
func (c *Cache[T]) LastFetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFetchedAt
}

// LastError is the error of the most recent fetch, nil once a fetch succeeds.
func (c *Cache[T]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribers returns the subscribed consumer ids in sorted order.
func (c *Cache[T]) Subscribers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops polling and drops every subscriber. A fetch already running finishes.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.subscribers = make(map[string]struct{})
	c.stopLocked()
}
