package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/gestorbiz/gestor-backend/internal/data/repos"
	"github.com/gestorbiz/gestor-backend/internal/pkg/dbctx"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
)

type cacheEntry struct {
	Row       json.RawMessage `json:"row"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EntityCache keeps the latest serialized row per (kind, id) so list endpoints
// and reconnecting dashboards read from memory instead of hitting Postgres.
// It is fed from two sources, optimistic applies after local writes and the
// realtime feed, so Apply must be idempotent: entries merge last-write-wins on
// row timestamp and replaying an event is a no-op.
type EntityCache struct {
	mu      sync.RWMutex
	log     *logger.Logger
	rdb     *goredis.Client
	byKind  map[string]map[uuid.UUID]cacheEntry
	snapKey string
}

func NewEntityCache(baseLog *logger.Logger, rdb *goredis.Client, snapKey string) *EntityCache {
	snapKey = strings.TrimSpace(snapKey)
	if snapKey == "" {
		snapKey = "entity_cache:snapshot"
	}
	return &EntityCache{
		log:     baseLog.With("service", "EntityCache"),
		rdb:     rdb,
		byKind:  make(map[string]map[uuid.UUID]cacheEntry),
		snapKey: snapKey,
	}
}

// Apply merges one row in. A stale update (timestamp older than the cached
// entry) is ignored; equal timestamps overwrite so replays converge on the
// same bytes.
func (c *EntityCache) Apply(kind string, id uuid.UUID, row json.RawMessage, updatedAt time.Time) {
	if kind == "" || id == uuid.Nil || len(row) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, ok := c.byKind[kind]
	if !ok {
		rows = make(map[uuid.UUID]cacheEntry)
		c.byKind[kind] = rows
	}
	if existing, ok := rows[id]; ok && updatedAt.Before(existing.UpdatedAt) {
		return
	}
	rows[id] = cacheEntry{Row: row, UpdatedAt: updatedAt}
}

// Remove drops a row. Removing a missing row is a no-op.
func (c *EntityCache) Remove(kind string, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rows, ok := c.byKind[kind]; ok {
		delete(rows, id)
		if len(rows) == 0 {
			delete(c.byKind, kind)
		}
	}
}

// Get returns the cached row for (kind, id), or nil when absent.
func (c *EntityCache) Get(kind string, id uuid.UUID) json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rows, ok := c.byKind[kind]; ok {
		if e, ok := rows[id]; ok {
			return e.Row
		}
	}
	return nil
}

// List returns every cached row of a kind, unordered.
func (c *EntityCache) List(kind string) []json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, ok := c.byKind[kind]
	if !ok {
		return nil
	}
	out := make([]json.RawMessage, 0, len(rows))
	for _, e := range rows {
		out = append(out, e.Row)
	}
	return out
}

func (c *EntityCache) Len(kind string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKind[kind])
}

// ApplyEvent feeds one realtime change event into the cache.
func (c *EntityCache) ApplyEvent(msg realtime.ChangeEvent) {
	switch msg.Event {
	case realtime.EventInsert, realtime.EventUpdate:
		updatedAt := rowUpdatedAt(msg.Row)
		c.Apply(msg.Entity, msg.RowID, msg.Row, updatedAt)
	case realtime.EventDelete:
		c.Remove(msg.Entity, msg.RowID)
	}
}

// rowUpdatedAt reads the updated_at field rows carry; zero time when absent so
// such rows lose against anything with a real timestamp.
func rowUpdatedAt(row json.RawMessage) time.Time {
	var meta struct {
		UpdatedAt time.Time `json:"updated_at"`
	}
	_ = json.Unmarshal(row, &meta)
	return meta.UpdatedAt
}

// SaveSnapshot serializes the whole cache into a single Redis value so a
// restarting instance can serve reads before the DB warm completes.
func (c *EntityCache) SaveSnapshot(ctx context.Context, ttl time.Duration) error {
	if c.rdb == nil {
		return fmt.Errorf("redis client not configured")
	}
	c.mu.RLock()
	raw, err := json.Marshal(c.byKind)
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.snapKey, raw, ttl).Err()
}

// LoadSnapshot restores a previously saved snapshot. A missing key is not an
// error, the cache just starts cold.
func (c *EntityCache) LoadSnapshot(ctx context.Context) error {
	if c.rdb == nil {
		return fmt.Errorf("redis client not configured")
	}
	raw, err := c.rdb.Get(ctx, c.snapKey).Bytes()
	if err == goredis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	restored := make(map[string]map[uuid.UUID]cacheEntry)
	if err := json.Unmarshal(raw, &restored); err != nil {
		c.log.Warn("discarding corrupt cache snapshot", "error", err)
		return nil
	}

	c.mu.Lock()
	c.byKind = restored
	c.mu.Unlock()
	c.log.Info("cache snapshot restored", "kinds", len(restored))
	return nil
}

// CacheWarmer loads current rows for every entity kind from Postgres,
// overwriting whatever the snapshot restored.
type CacheWarmer struct {
	log      *logger.Logger
	cache    *EntityCache
	teams    repos.TeamRepo
	services repos.ServiceRepo
	stores   repos.StoreRepo
	products repos.ProductRepo
}

func NewCacheWarmer(
	baseLog *logger.Logger,
	cache *EntityCache,
	teams repos.TeamRepo,
	services repos.ServiceRepo,
	stores repos.StoreRepo,
	products repos.ProductRepo,
) *CacheWarmer {
	return &CacheWarmer{
		log:      baseLog.With("service", "CacheWarmer"),
		cache:    cache,
		teams:    teams,
		services: services,
		stores:   stores,
		products: products,
	}
}

// Warm loads all kinds concurrently. Any single failure aborts the warm; the
// caller decides whether to serve from the snapshot or fail startup.
func (w *CacheWarmer) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	dbc := func() dbctx.Context { return dbctx.Context{Ctx: gctx} }

	g.Go(func() error {
		rows, err := w.teams.List(dbc())
		if err != nil {
			return fmt.Errorf("warm teams: %w", err)
		}
		for _, r := range rows {
			w.applyRow(realtime.EntityTeam, r.ID, r, r.UpdatedAt)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := w.services.List(dbc())
		if err != nil {
			return fmt.Errorf("warm services: %w", err)
		}
		for _, r := range rows {
			w.applyRow(realtime.EntityService, r.ID, r, r.UpdatedAt)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := w.stores.List(dbc())
		if err != nil {
			return fmt.Errorf("warm stores: %w", err)
		}
		for _, r := range rows {
			w.applyRow(realtime.EntityStore, r.ID, r, r.UpdatedAt)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := w.products.List(dbc())
		if err != nil {
			return fmt.Errorf("warm products: %w", err)
		}
		for _, r := range rows {
			w.applyRow(realtime.EntityProduct, r.ID, r, r.UpdatedAt)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	w.log.Info("entity cache warmed",
		"teams", w.cache.Len(realtime.EntityTeam),
		"services", w.cache.Len(realtime.EntityService),
		"stores", w.cache.Len(realtime.EntityStore),
		"products", w.cache.Len(realtime.EntityProduct),
	)
	return nil
}

func (w *CacheWarmer) applyRow(kind string, id uuid.UUID, row any, updatedAt time.Time) {
	raw, err := json.Marshal(row)
	if err != nil {
		w.log.Warn("failed to serialize row during warm", "kind", kind, "id", id.String(), "error", err)
		return
	}
	w.cache.Apply(kind, id, raw, updatedAt)
}
