// Package identitycache serves address-to-identity lookups from an
// immutable snapshot of the registrar, rebuilt wholesale on a schedule or
// after an invalidation signal.
package identitycache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"tapday/internal/registrar"
	"tapday/pkg/requestcontext"
)

const rebuildKey = "rebuild"

type Lister interface {
	List(ctx context.Context, parentName string, size int) ([]registrar.Subname, error)
}

// Cache publishes snapshots through an atomic pointer. Readers never block
// on each other; concurrent rebuilds collapse into one registrar call.
type Cache struct {
	lister          Lister
	parentDomain    string
	pageSize        int
	refreshInterval time.Duration
	rebuildTimeout  time.Duration

	current atomic.Pointer[Snapshot]
	stale   atomic.Bool
	group   singleflight.Group

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithPageSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithRefreshInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.refreshInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty cache. The first lookup triggers a build.
func New(lister Lister, parentDomain string, opts ...Option) *Cache {
	c := &Cache{
		lister:          lister,
		parentDomain:    parentDomain,
		pageSize:        1000,
		refreshInterval: 5 * time.Minute,
		rebuildTimeout:  30 * time.Second,
		logger:          slog.Default(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rebuild lists the registrar once and publishes a new snapshot. On failure
// the previous snapshot stays published and the cache stays stale.
func (c *Cache) Rebuild(ctx context.Context) (*Snapshot, error) {
	return c.flight(ctx, true)
}

// flight runs at most one rebuild at a time. Unforced callers that arrive
// after a rebuild landed reuse its snapshot instead of listing again.
func (c *Cache) flight(ctx context.Context, force bool) (*Snapshot, error) {
	v, err, shared := c.group.Do(rebuildKey, func() (any, error) {
		if !force {
			if snap := c.current.Load(); !c.needsRebuild(snap) {
				return snap, nil
			}
		}
		// Detached so one caller giving up does not fail the others.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.rebuildTimeout)
		defer cancel()
		return c.rebuild(ctx)
	})
	if shared {
		c.metrics.IncrementSharedRebuild()
	}
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Cache) rebuild(ctx context.Context) (*Snapshot, error) {
	start := c.now()
	c.stale.Store(false)

	records, err := c.lister.List(ctx, c.parentDomain, c.pageSize)
	if err != nil {
		c.stale.Store(true)
		c.metrics.IncrementRebuild("error")
		c.logger.WarnContext(ctx, "identity cache rebuild failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, err
	}

	snap := NewSnapshot(records, c.now())
	c.current.Store(snap)
	c.metrics.IncrementRebuild("ok")
	c.metrics.ObserveRebuild(c.now().Sub(start), snap.Len())
	if len(records) >= c.pageSize {
		c.logger.WarnContext(ctx, "identity cache listing hit page size, some owners may be missing",
			"page_size", c.pageSize,
		)
	}
	c.logger.DebugContext(ctx, "identity cache rebuilt",
		"request_id", requestcontext.RequestID(ctx),
		"records", len(records),
		"owners", snap.Len(),
	)
	return snap, nil
}

// Current returns a usable snapshot, rebuilding first when the published
// one is missing, expired or invalidated. When the rebuild fails the
// previous snapshot is served; nil means nothing was ever built.
func (c *Cache) Current(ctx context.Context) *Snapshot {
	snap := c.current.Load()
	if !c.needsRebuild(snap) {
		return snap
	}
	fresh, err := c.flight(ctx, false)
	if err != nil {
		if snap != nil {
			c.metrics.IncrementStaleServe()
		}
		return snap
	}
	return fresh
}

func (c *Cache) needsRebuild(snap *Snapshot) bool {
	if snap == nil || c.stale.Load() {
		return true
	}
	return c.now().Sub(snap.BuiltAt()) >= c.refreshInterval
}

// Lookup resolves addresses in input order, duplicates included. It never
// fails: with no usable snapshot every entry carries only its address.
func (c *Cache) Lookup(ctx context.Context, addresses []string) []Entry {
	snap := c.Current(ctx)
	out := make([]Entry, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, snap.Get(addr))
	}
	return out
}

// Invalidate marks the published snapshot stale. The next read rebuilds.
func (c *Cache) Invalidate(context.Context) error {
	c.stale.Store(true)
	return nil
}

// Warm builds the first snapshot eagerly.
func (c *Cache) Warm(ctx context.Context) error {
	if _, err := c.Rebuild(ctx); err != nil {
		return fmt.Errorf("warm identity cache: %w", err)
	}
	return nil
}
