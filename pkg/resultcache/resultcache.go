// Package resultcache keeps recent scan results keyed by chip type, host, and subject.
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/kvstore"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// entry is the persisted form of a cached scan.
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // epoch ms
}

// Cache is a TTL cache with a global entry cap over a kvstore.Store.
// Reads fail soft: any storage or decode error is a miss.
type Cache struct {
	kv         kvstore.Store
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger for storage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache using cfg.CacheTTL and cfg.CacheMaxEntries.
func New(kv kvstore.Store, cfg models.GateConfig, opts ...Option) *Cache {
	c := &Cache{
		kv:         kv,
		ttl:        cfg.CacheTTL,
		maxEntries: cfg.CacheMaxEntries,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize lowercases s, collapses non-alphanumeric runs to "_" and trims underscores.
func Normalize(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

// Key builds {chipType}_scan:{hostname}:{subject}[:{variant}].
func Key(chipType models.ChipType, hostname, subject, variant string) string {
	key := prefix(chipType) + strings.ToLower(hostname) + ":" + Normalize(subject)
	if v := Normalize(variant); v != "" {
		key += ":" + v
	}
	return key
}

func prefix(chipType models.ChipType) string {
	return string(chipType) + "_scan:"
}

// GetCachedScan returns the data stored under key if it is younger than the TTL.
// Expired entries are deleted.
func (c *Cache) GetCachedScan(ctx context.Context, key string) (json.RawMessage, bool) {
	e, err := c.load(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			c.logger.Warn("Scan cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}

	if c.now().Sub(time.UnixMilli(e.Timestamp)) >= c.ttl {
		if err := c.kv.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to delete expired scan", "key", key, "error", err)
		}
		return nil, false
	}
	return e.Data, true
}

// SetCachedScan stores data under key, then evicts the oldest entries above the cap.
func (c *Cache) SetCachedScan(ctx context.Context, key string, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("scan data for %s is not valid JSON", key)
	}
	raw, err := json.Marshal(entry{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to encode scan: %w", err)
	}
	if err := c.kv.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to write scan %s: %w", key, err)
	}
	return c.evict(ctx)
}

// ClearHostnameCache removes every cached scan for hostname and returns how many were removed.
func (c *Cache) ClearHostnameCache(ctx context.Context, hostname string) (int, error) {
	total := 0
	for _, ct := range models.ChipTypes {
		n, err := c.clear(ctx, ct, hostname)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ClearProductCache removes product scans for hostname, e.g. after an in-page variant change.
func (c *Cache) ClearProductCache(ctx context.Context, hostname string) (int, error) {
	return c.clear(ctx, models.ChipProduct, hostname)
}

func (c *Cache) clear(ctx context.Context, chipType models.ChipType, hostname string) (int, error) {
	keys, err := c.kv.Keys(ctx, prefix(chipType)+strings.ToLower(hostname)+":")
	if err != nil {
		return 0, fmt.Errorf("failed to list %s scans: %w", chipType, err)
	}
	for i, key := range keys {
		if err := c.kv.Delete(ctx, key); err != nil {
			return i, fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return len(keys), nil
}

func (c *Cache) load(ctx context.Context, key string) (entry, error) {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return entry{}, err
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return entry{}, fmt.Errorf("failed to decode scan: %w", err)
	}
	return e, nil
}

type stamped struct {
	key string
	ts  int64
}

// evict drops the oldest entries until at most maxEntries remain.
// Undecodable entries sort first so they are the first to go.
func (c *Cache) evict(ctx context.Context) error {
	if c.maxEntries <= 0 {
		return nil
	}

	var all []stamped
	for _, ct := range models.ChipTypes {
		keys, err := c.kv.Keys(ctx, prefix(ct))
		if err != nil {
			return fmt.Errorf("failed to list scans: %w", err)
		}
		for _, key := range keys {
			e, err := c.load(ctx, key)
			if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
				all = append(all, stamped{key: key, ts: -1})
				continue
			}
			if err == nil {
				all = append(all, stamped{key: key, ts: e.Timestamp})
			}
		}
	}

	excess := len(all) - c.maxEntries
	if excess <= 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].ts != all[j].ts {
			return all[i].ts < all[j].ts
		}
		return all[i].key < all[j].key
	})
	for _, s := range all[:excess] {
		if err := c.kv.Delete(ctx, s.key); err != nil {
			return fmt.Errorf("failed to evict %s: %w", s.key, err)
		}
		c.logger.Debug("Evicted scan", "key", s.key)
	}
	return nil
}
