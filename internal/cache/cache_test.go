package cache

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AlfredBerg/job-scout/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func sampleResult() model.CrawlResult {
	return model.CrawlResult{
		BusinessName: "A",
		JobKeywords:  []string{"hiring", "engineer"},
		JobPages:     []model.JobPage{{URL: "https://a.example/careers", Title: "Careers"}},
		ContactPage:  "https://a.example/careers",
		Score:        55,
		LastChecked:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	rd, _ := newTestRedis(t, "job-scout:test:")
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sq,
		"redis":  rd,
	}
}

func newTestRedis(t *testing.T, prefix string) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b := NewRedisBackendWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), prefix)
	t.Cleanup(func() { b.Close() })
	return b, mr
}

func TestRoundTripAndExpiry(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
			c := New(b, Settings{Enabled: true, TTLDays: 30}, nil).WithClock(clk.now)

			want := sampleResult()
			c.Put(ctx, "https://a.example", want)

			got, ok := c.Get(ctx, "https://a.example")
			if !ok {
				t.Fatal("expected a hit right after Put")
			}
			if !reflect.DeepEqual(*got, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, want)
			}

			if _, ok := c.Get(ctx, "https://A.example"); ok {
				t.Fatal("keys must be case sensitive")
			}

			clk.t = clk.t.Add(30*24*time.Hour - time.Millisecond)
			if _, ok := c.Get(ctx, "https://a.example"); !ok {
				t.Fatal("entry expired too early")
			}

			clk.t = clk.t.Add(time.Millisecond)
			if _, ok := c.Get(ctx, "https://a.example"); ok {
				t.Fatal("expected a miss after the TTL")
			}
			if _, err := b.Load(ctx, Key("https://a.example")); !errors.Is(err, ErrMiss) {
				t.Fatalf("expired entry should have been removed, got %v", err)
			}
		})
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	c := New(b, Settings{Enabled: false}, nil)
	c.Put(ctx, "https://a.example", sampleResult())
	if _, ok := c.Get(ctx, "https://a.example"); ok {
		t.Fatal("disabled cache must miss")
	}
	if _, err := b.Load(ctx, Key("https://a.example")); !errors.Is(err, ErrMiss) {
		t.Fatal("disabled cache must not write")
	}
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(), Settings{Enabled: true}, nil)
	first := sampleResult()
	second := sampleResult()
	second.Score = 90
	c.Put(ctx, "https://a.example", first)
	c.Put(ctx, "https://a.example", second)
	got, ok := c.Get(ctx, "https://a.example")
	if !ok || got.Score != 90 {
		t.Fatalf("expected the second write, got %+v", got)
	}
}

type failingBackend struct{ MemoryBackend }

func (*failingBackend) Load(context.Context, string) (Entry, error) {
	return Entry{}, errors.New("disk on fire")
}

func TestReadFailureIsMiss(t *testing.T) {
	c := New(&failingBackend{}, Settings{Enabled: true}, nil)
	if _, ok := c.Get(context.Background(), "https://a.example"); ok {
		t.Fatal("read failure must be a miss")
	}
}

func TestClearAndPurge(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := &clock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
			c := New(b, Settings{Enabled: true, TTLDays: 1}, nil).WithClock(clk.now)

			c.Put(ctx, "https://old.example", sampleResult())
			clk.t = clk.t.Add(12 * time.Hour)
			c.Put(ctx, "https://a.example", sampleResult())
			c.Put(ctx, "https://b.example", sampleResult())

			clk.t = clk.t.Add(13 * time.Hour)
			n, err := c.PurgeExpired(ctx)
			if err != nil {
				t.Fatalf("PurgeExpired returned error: %v", err)
			}
			if n != 1 {
				t.Fatalf("expected 1 purged entry, got %d", n)
			}

			if err := c.Clear(ctx, "https://a.example"); err != nil {
				t.Fatalf("Clear returned error: %v", err)
			}
			if _, ok := c.Get(ctx, "https://a.example"); ok {
				t.Fatal("cleared entry still present")
			}
			if _, ok := c.Get(ctx, "https://b.example"); !ok {
				t.Fatal("clear must only remove exact matches")
			}

			if err := c.Clear(ctx); err != nil {
				t.Fatalf("Clear all returned error: %v", err)
			}
			if _, ok := c.Get(ctx, "https://b.example"); ok {
				t.Fatal("clear all left an entry behind")
			}
		})
	}
}

func TestRedisBackendKeepsToItsPrefix(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedis(t, "job-scout:cache:")
	if err := mr.Set("other:app", "untouched"); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Load(ctx, "missing"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss for an unknown key, got %v", err)
	}

	e := Entry{URL: "https://a.example", Timestamp: 1714564800000, Data: sampleResult()}
	if err := b.Save(ctx, "k1", e, time.Hour); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if !mr.Exists("job-scout:cache:k1") {
		t.Fatal("entry was not stored under the prefix")
	}
	if ttl := mr.TTL("job-scout:cache:k1"); ttl != time.Hour {
		t.Fatalf("expected a one hour expiry, got %s", ttl)
	}

	var keys []string
	err := b.Range(ctx, func(key string, got Entry) bool {
		keys = append(keys, key)
		if got.Timestamp != e.Timestamp || got.Data.Score != e.Data.Score {
			t.Errorf("unexpected entry %+v", got)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Range returned error: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"k1"}) {
		t.Fatalf("expected only the unprefixed key k1, got %v", keys)
	}

	if err := b.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll returned error: %v", err)
	}
	if mr.Exists("job-scout:cache:k1") {
		t.Fatal("DeleteAll left an entry behind")
	}
	if got, err := mr.Get("other:app"); err != nil || got != "untouched" {
		t.Fatalf("DeleteAll touched a foreign key: %q %v", got, err)
	}
}
