package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerdesk/ledgerdesk/internal/finance"
	"github.com/ledgerdesk/ledgerdesk/internal/finance/export"
)

const statementCacheTTL = time.Minute

// statementCache is a small in-process TTL cache for live dashboard
// computations. The dashboard polls, so identical requests arrive in
// bursts; a short TTL keeps the store fan-out off the hot path without
// letting stale figures live long.
type statementCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]statementCacheItem
}

type statementCacheItem struct {
	comp    finance.Computation
	expires time.Time
}

func newStatementCache(ttl time.Duration) *statementCache {
	return &statementCache{ttl: ttl, items: make(map[string]statementCacheItem)}
}

func (c *statementCache) Get(key string) (finance.Computation, bool) {
	if c == nil {
		return finance.Computation{}, false
	}
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return finance.Computation{}, false
	}
	if time.Now().After(item.expires) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return finance.Computation{}, false
	}
	return item.comp, true
}

// Set stores a computation and sweeps out expired entries. Keys embed the
// asOf day, so without the sweep every owner/period/day combination ever
// requested would stay resident.
func (c *statementCache) Set(key string, comp finance.Computation) {
	if c == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	for k, item := range c.items {
		if now.After(item.expires) {
			delete(c.items, k)
		}
	}
	c.items[key] = statementCacheItem{comp: comp, expires: now.Add(c.ttl)}
	c.mu.Unlock()
}

func statementCacheKey(ownerID int64, q finance.PeriodQuery, asOf time.Time) string {
	from, to := "", ""
	if q.From != nil {
		from = q.From.Format("2006-01-02")
	}
	if q.To != nil {
		to = q.To.Format("2006-01-02")
	}
	// asOf participates at day granularity so a frozen clock in tests and a
	// rolling clock in production both behave predictably.
	return fmt.Sprintf("stmt:%d|%s|%s|%s|%s", ownerID, q.Key, from, to, asOf.Format("2006-01-02"))
}

// ReportCache stores rendered archive documents in Redis. Archived months
// are frozen history, so a long TTL is safe; live periods are never cached
// here.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache instantiates the cache helper. A nil client degrades to a
// pass-through.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

type cachedDocument struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Key composes the cache key for one owner and period.
func (c *ReportCache) Key(ownerID int64, period string) string {
	return fmt.Sprintf("report:%d:%s", ownerID, period)
}

// Fetch loads a cached document or renders and stores one via the loader.
func (c *ReportCache) Fetch(ctx context.Context, key string, loader func(context.Context) (export.Document, error)) (export.Document, error) {
	if loader == nil {
		return export.Document{}, errors.New("report cache: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedDocument
		if err := json.Unmarshal(payload, &cached); err == nil {
			return export.Document(cached), nil
		}
		// Unreadable payload: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return export.Document{}, err
	}
	doc, err := loader(ctx)
	if err != nil {
		return export.Document{}, err
	}
	raw, err := json.Marshal(cachedDocument(doc))
	if err != nil {
		return export.Document{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return export.Document{}, err
	}
	return doc, nil
}
