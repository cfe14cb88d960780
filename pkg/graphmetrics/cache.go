package graphmetrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/nlcraft/kgrag/pkg/store"
	"github.com/nlcraft/kgrag/pkg/types"
)

const cacheKey = "graph-diagnostics"

// Cache serves graph diagnostics off the request's critical path. Snapshots
// are recomputed at most once per TTL, in the background; stale values are
// served while a refresh is in flight. Snapshots survive restarts through a
// badger store.
type Cache struct {
	graph  store.GraphStore
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	current    *types.GraphDiagnostics
	refreshing bool
}

// NewCache creates a diagnostics cache. dir is the badger directory; empty
// means in-memory only (used in tests). A ttl of zero defaults to 5 minutes.
func NewCache(graph store.GraphStore, dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostics cache: %w", err)
	}

	c := &Cache{
		graph:  graph,
		db:     db,
		ttl:    ttl,
		logger: logger,
	}
	if snapshot, err := c.load(); err == nil {
		c.current = snapshot
	}
	return c, nil
}

// Diagnostics returns the most recent snapshot. A fresh snapshot is computed
// synchronously only when none exists yet; otherwise an expired snapshot is
// returned as-is and a background refresh is kicked off.
func (c *Cache) Diagnostics(ctx context.Context) (*types.GraphDiagnostics, error) {
	c.mu.Lock()
	current := c.current
	expired := current == nil || time.Since(current.ComputedAt) > c.ttl
	shouldRefresh := expired && !c.refreshing
	if shouldRefresh {
		c.refreshing = true
	}
	c.mu.Unlock()

	if current == nil {
		if !shouldRefresh {
			return &types.GraphDiagnostics{}, nil
		}
		snapshot, err := c.refresh(ctx)
		if err != nil {
			return nil, err
		}
		return snapshot, nil
	}

	if shouldRefresh {
		go func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := c.refresh(refreshCtx); err != nil {
				c.logger.Warn("diagnostics refresh failed", "error", err)
			}
		}()
	}
	return current, nil
}

func (c *Cache) refresh(ctx context.Context) (*types.GraphDiagnostics, error) {
	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()

	relations, err := c.graph.GetAllRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load adjacency: %w", err)
	}

	snapshot := Compute(relations)
	snapshot.ComputedAt = time.Now()

	c.mu.Lock()
	c.current = snapshot
	c.mu.Unlock()

	if err := c.persist(snapshot); err != nil {
		c.logger.Warn("failed to persist diagnostics snapshot", "error", err)
	}
	return snapshot, nil
}

func (c *Cache) persist(snapshot *types.GraphDiagnostics) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(cacheKey), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

func (c *Cache) load() (*types.GraphDiagnostics, error) {
	var snapshot types.GraphDiagnostics
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Close releases the badger handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
