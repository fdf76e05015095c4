package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/AlfredBerg/job-scout/internal/model"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestDefaultsAreValid(t *testing.T) {
	c, err := Load(newViper())
	if err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if !c.Cache.Enabled || c.Cache.TTLDays != 30 || c.Cache.Backend != BackendSQLite {
		t.Fatalf("unexpected cache defaults %+v", c.Cache)
	}
	if c.Timeouts.Page != 15*time.Second || c.Timeouts.Subpage != 5*time.Second {
		t.Fatalf("unexpected timeouts %+v", c.Timeouts)
	}
	if c.Crawl.MaxCareerLinks != 3 || c.Crawl.MaxListingBlocks != 5 {
		t.Fatalf("unexpected crawl defaults %+v", c.Crawl)
	}
	if len(c.Search.WebsiteKeywords) == 0 {
		t.Fatal("expected default website keywords")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JOB_SCOUT_CACHE_BACKEND", "redis")
	t.Setenv("JOB_SCOUT_TIMEOUTS_PAGE", "2s")

	c, err := Load(newViper())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Cache.Backend != BackendRedis || c.Timeouts.Page != 2*time.Second {
		t.Fatalf("env not applied: %+v %+v", c.Cache, c.Timeouts)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	v := newViper()
	v.Set("cache.ttl_days", 0)
	v.Set("cache.backend", "bolt")
	v.Set("crawl.max_career_links", 42)

	_, err := Load(v)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"ttl_days", "bolt", "max_career_links"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestSearchDefaults(t *testing.T) {
	v := newViper()
	v.Set("search.job_specific_keywords", []string{"forklift"})
	v.Set("search.max_results", 10)
	c, err := Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := c.SearchDefaults(model.SearchConfiguration{UserKeywords: []string{"welder"}})
	if len(got.WebsiteKeywords) == 0 || got.MaxResults != 10 || got.JobSpecificKeywords[0] != "forklift" {
		t.Fatalf("defaults not applied: %+v", got)
	}

	got = c.SearchDefaults(model.SearchConfiguration{WebsiteKeywords: []string{"vacature"}, MaxResults: 2})
	if got.WebsiteKeywords[0] != "vacature" || got.MaxResults != 2 {
		t.Fatalf("request values must win: %+v", got)
	}
}
