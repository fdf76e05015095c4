// Package cache keeps crawl results per visited URL for a number of days.
package cache

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/model"
)

var ErrMiss = errors.New("cache miss")

const DefaultTTLDays = 30

// Entry is the persisted form. Timestamp is in epoch milliseconds.
type Entry struct {
	URL       string            `json:"url"`
	Timestamp int64             `json:"timestamp"`
	Data      model.CrawlResult `json:"data"`
}

// Backend stores entries under opaque keys. Load returns ErrMiss for unknown
// keys.
type Backend interface {
	Load(ctx context.Context, key string) (Entry, error)
	Save(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteAll(ctx context.Context) error
	Range(ctx context.Context, fn func(key string, e Entry) bool) error
	Close() error
}

// Settings are owned by whoever persists user preferences. They are read only
// here.
type Settings struct {
	Enabled bool
	TTLDays int
}

type ResultCache struct {
	backend  Backend
	settings Settings
	now      func() time.Time
	log      *zap.Logger
}

func New(b Backend, s Settings, log *zap.Logger) *ResultCache {
	if s.TTLDays <= 0 {
		s.TTLDays = DefaultTTLDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ResultCache{backend: b, settings: s, now: time.Now, log: log}
}

// WithClock replaces the time source, for tests.
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.now = now
	return c
}

// Key is the stable encoding of a visited URL. URLs are used exactly as
// given, case included.
func Key(url string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(url))
}

func (c *ResultCache) ttl() time.Duration {
	return time.Duration(c.settings.TTLDays) * 24 * time.Hour
}

func (c *ResultCache) expired(e Entry) bool {
	return c.now().UnixMilli() >= e.Timestamp+c.ttl().Milliseconds()
}

// Get never fails: read errors and expired entries are misses. Expired
// entries are removed on the way.
func (c *ResultCache) Get(ctx context.Context, url string) (*model.CrawlResult, bool) {
	if c == nil || !c.settings.Enabled {
		return nil, false
	}
	key := Key(url)
	e, err := c.backend.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Debug("cache read failed", zap.String("url", url), zap.Error(err))
		}
		return nil, false
	}
	if c.expired(e) {
		if err := c.backend.Delete(ctx, key); err != nil {
			c.log.Debug("removing expired entry failed", zap.String("url", url), zap.Error(err))
		}
		return nil, false
	}
	r := e.Data
	return &r, true
}

// Put overwrites the entry for url. Write errors are dropped.
func (c *ResultCache) Put(ctx context.Context, url string, r model.CrawlResult) {
	if c == nil || !c.settings.Enabled {
		return
	}
	e := Entry{URL: url, Timestamp: c.now().UnixMilli(), Data: r}
	if err := c.backend.Save(ctx, Key(url), e, c.ttl()); err != nil {
		c.log.Warn("cache write failed", zap.String("url", url), zap.Error(err))
	}
}

// Clear removes the entries of exactly these urls, or everything when none
// are given.
func (c *ResultCache) Clear(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return c.backend.DeleteAll(ctx)
	}
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		keys = append(keys, Key(u))
	}
	return c.backend.Delete(ctx, keys...)
}

// PurgeExpired removes every expired entry and returns how many there were.
func (c *ResultCache) PurgeExpired(ctx context.Context) (int, error) {
	var stale []string
	err := c.backend.Range(ctx, func(key string, e Entry) bool {
		if c.expired(e) {
			stale = append(stale, key)
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	return len(stale), c.backend.Delete(ctx, stale...)
}

func (c *ResultCache) Close() error {
	return c.backend.Close()
}
