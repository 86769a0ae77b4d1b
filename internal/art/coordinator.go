// Package art coordinates the fetch→decode→render pipeline behind a
// single-flight, short-TTL cache slot.
//
// The slot moves Empty → Fetching → Cached → (Fetching | Expired). At
// most one upstream fetch is in flight at a time; concurrent callers
// attach to it and share its outcome. A failed refresh never erases a
// previously cached rendering.
package art

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/TheGhostHuCodes/catscii/internal/ascii"
	"github.com/TheGhostHuCodes/catscii/internal/imaging"
	"github.com/TheGhostHuCodes/catscii/internal/telemetry"
	"github.com/TheGhostHuCodes/catscii/internal/upstream"
)

// slotKey identifies the single cache slot within the singleflight group.
const slotKey = "cat"

// Clock abstracts time for expiry decisions.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Config controls freshness and staleness policy.
type Config struct {
	// FreshnessWindow is how long a rendering is served without a
	// new upstream fetch.
	FreshnessWindow time.Duration
	// ServeStale serves the previous rendering when a refresh fails
	// instead of propagating the failure.
	ServeStale bool
}

type cacheEntry struct {
	art       ascii.Art
	expiresAt time.Time
}

// Coordinator owns the cache slot and the in-flight fetch state.
type Coordinator struct {
	source   upstream.Source
	renderer *ascii.Renderer
	clock    Clock
	cfg      Config
	logger   *zap.Logger

	sf singleflight.Group

	mu    sync.RWMutex
	entry *cacheEntry // nil until the first successful refresh
}

// NewCoordinator wires the pipeline dependencies.
func NewCoordinator(
	source upstream.Source,
	renderer *ascii.Renderer,
	clock Clock,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		source:   source,
		renderer: renderer,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Get returns the current artwork, fetching from upstream only when the
// cached rendering is missing or expired. Concurrent callers during a
// refresh share a single upstream fetch and receive identical results.
func (c *Coordinator) Get(ctx context.Context) (ascii.Art, error) {
	if art, ok := c.cached(false); ok {
		telemetry.ObserveCacheEvent("hit")
		return art, nil
	}
	telemetry.ObserveCacheEvent("miss")

	// The fetch is shared state, not owned by this caller: detach it
	// from the request context so one disconnecting client cannot
	// abort the refresh for the other waiters. The upstream client's
	// own timeout still bounds the operation.
	refreshCtx := context.WithoutCancel(ctx)

	v, err, _ := c.sf.Do(slotKey, func() (any, error) {
		// A flight that completed while we were queuing to start
		// this one may have already repopulated the slot.
		if art, ok := c.cached(false); ok {
			return art, nil
		}
		return c.refresh(refreshCtx)
	})
	if err != nil {
		if c.cfg.ServeStale {
			if stale, ok := c.cached(true); ok {
				telemetry.ObserveCacheEvent("stale_served")
				c.logger.Warn("refresh failed, serving stale artwork",
					zap.Time("created_at", stale.CreatedAt),
					zap.Error(err),
				)
				return stale, nil
			}
		}
		return ascii.Art{}, err
	}
	return v.(ascii.Art), nil
}

// cached returns the slot's artwork. With allowExpired it also returns a
// rendering past its freshness window, for stale-on-error serving.
func (c *Coordinator) cached(allowExpired bool) (ascii.Art, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return ascii.Art{}, false
	}
	if !allowExpired && !c.clock.Now().Before(c.entry.expiresAt) {
		return ascii.Art{}, false
	}
	return c.entry.art, true
}

// refresh runs one fetch→decode→render cycle and replaces the slot entry
// on success. On failure the slot is left exactly as it was.
func (c *Coordinator) refresh(ctx context.Context) (ascii.Art, error) {
	img, err := c.source.Fetch(ctx)
	if err != nil {
		telemetry.ObserveCacheEvent("refresh_failed")
		return ascii.Art{}, err
	}

	start := time.Now()
	grid, err := imaging.Decode(img.Bytes)
	if err != nil {
		telemetry.ObserveCacheEvent("refresh_failed")
		return ascii.Art{}, err
	}

	art := c.renderer.Render(grid)
	art.CreatedAt = c.clock.Now()
	telemetry.ObserveRender(time.Since(start))

	entry := &cacheEntry{art: art, expiresAt: art.CreatedAt.Add(c.cfg.FreshnessWindow)}
	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()

	c.logger.Info("refreshed cat artwork",
		zap.Int("source_width", grid.Width),
		zap.Int("source_height", grid.Height),
		zap.Int("lines", len(art.Lines)),
		zap.Time("expires_at", entry.expiresAt),
	)
	return art, nil
}
