// Package cache holds the client-side synchronization cache: an in-memory
// mirror of every collection that serves reads and writes synchronously and
// persists mutations to the store asynchronously, coalesced per collection.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"memberdesk/internal/domain"
	"memberdesk/internal/platform/metrics"
	dErrors "memberdesk/pkg/domain-errors"
)

// Persister is the subset of the collection client the cache needs. The
// HTTP client satisfies it; tests substitute a scriptable fake.
type Persister interface {
	Bootstrap(ctx context.Context) (map[domain.CollectionName][]json.RawMessage, error)
	Get(ctx context.Context, name domain.CollectionName) ([]json.RawMessage, error)
	Put(ctx context.Context, name domain.CollectionName, records []json.RawMessage) error
}

// State is the cache lifecycle state.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Cache owns the only shared mutable copy of the collections. All mutation
// goes through Write/WriteBatch/Clear; Read hands out deep copies so
// callers can never alias internal state.
type Cache struct {
	mu   sync.Mutex
	cond *sync.Cond

	state   State
	lastErr error
	data    map[domain.CollectionName][]json.RawMessage
	flush   map[domain.CollectionName]*flushEntry

	persister      Persister
	logger         *slog.Logger
	metrics        *metrics.Metrics
	onPersistError func(name domain.CollectionName, err error)

	persistTimeout time.Duration
	maxAttempts    int
	retryBackoff   time.Duration
}

type flushEntry struct {
	inFlight bool
	dirty    bool
}

type Option func(*Cache)

// WithMetrics enables persist counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithPersistTimeout bounds each persistence request. On timeout the
// request counts as failed; it is not cancelled mid-flight at the store.
func WithPersistTimeout(d time.Duration) Option {
	return func(c *Cache) { c.persistTimeout = d }
}

// WithRetry configures persist retry attempts and the base backoff between
// them.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Cache) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		c.retryBackoff = backoff
	}
}

// WithOnPersistError installs an out-of-band observer for persistence
// failures, e.g. a UI "sync failed" notice. Failures never roll back the
// in-memory write.
func WithOnPersistError(fn func(name domain.CollectionName, err error)) Option {
	return func(c *Cache) { c.onPersistError = fn }
}

func New(p Persister, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		state:          Disconnected,
		data:           make(map[domain.CollectionName][]json.RawMessage),
		flush:          make(map[domain.CollectionName]*flushEntry),
		persister:      p,
		logger:         logger,
		persistTimeout: 10 * time.Second,
		maxAttempts:    3,
		retryBackoff:   200 * time.Millisecond,
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect bootstraps the full collection map from the store. A no-op when
// already connected unless force is set. On failure the cache stays
// Disconnected with the error recorded; callers retry explicitly.
func (c *Cache) Connect(ctx context.Context, force bool) error {
	c.mu.Lock()
	if c.state == Connected && !force {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	collections, err := c.persister.Bootstrap(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Disconnected
		c.lastErr = err
		c.logger.Error("cache connect failed", "error", err.Error())
		return dErrors.Wrap(dErrors.CodeConnectivity, "connect failed", err)
	}

	data := make(map[domain.CollectionName][]json.RawMessage, len(collections))
	for name, records := range collections {
		if !domain.ValidName(name) {
			continue
		}
		data[name] = domain.CloneRecords(records)
	}
	c.data = data
	c.state = Connected
	c.lastErr = nil
	return nil
}

// State returns the current lifecycle state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error recorded by the most recent failed connect.
func (c *Cache) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Read returns a deep copy of the cached sequence for name. Unknown but
// enumerated names yield an empty sequence.
func (c *Cache) Read(name domain.CollectionName) ([]json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(name); err != nil {
		return nil, err
	}
	return domain.CloneRecords(c.data[name]), nil
}

// Write replaces the in-memory sequence for name immediately and schedules
// an asynchronous persist. It never blocks on the network.
func (c *Cache) Write(name domain.CollectionName, records []json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(name); err != nil {
		return err
	}
	c.data[name] = domain.CloneRecords(records)
	c.scheduleLocked(name)
	return nil
}

// WriteBatch applies several collection replacements under one lock so a
// cross-collection business operation is atomic in memory. Persistence
// remains per-collection and non-atomic on the wire.
func (c *Cache) WriteBatch(collections map[domain.CollectionName][]json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range collections {
		if err := c.usableLocked(name); err != nil {
			return err
		}
	}
	for name, records := range collections {
		c.data[name] = domain.CloneRecords(records)
		c.scheduleLocked(name)
	}
	return nil
}

// Clear replaces the sequence for name with an empty one.
func (c *Cache) Clear(name domain.CollectionName) error {
	return c.Write(name, nil)
}

// Refresh re-fetches a single collection from the store and overwrites the
// cache entry. Used to reconcile suspected staleness; never invoked
// automatically.
func (c *Cache) Refresh(ctx context.Context, name domain.CollectionName) error {
	c.mu.Lock()
	if err := c.usableLocked(name); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	records, err := c.persister.Get(ctx, name)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeConnectivity, "refresh failed", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[name] = domain.CloneRecords(records)
	return nil
}

// Drain blocks until every scheduled persist chain has settled. Used on
// shutdown and by tests; a failed persist still settles its chain.
func (c *Cache) Drain(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.cond.Broadcast()
			c.mu.Unlock()
		case <-stop:
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.busyLocked() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cond.Wait()
	}
	return nil
}

func (c *Cache) busyLocked() bool {
	for _, entry := range c.flush {
		if entry.inFlight || entry.dirty {
			return true
		}
	}
	return false
}

func (c *Cache) usableLocked(name domain.CollectionName) error {
	if c.state != Connected {
		return dErrors.New(dErrors.CodeNotConnected, "cache is not connected")
	}
	if !domain.ValidName(name) {
		return dErrors.Newf(dErrors.CodeNotFound, "unknown collection %q", name)
	}
	return nil
}
