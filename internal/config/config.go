// Package config binds the viper keys the commands read into one struct.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/AlfredBerg/job-scout/internal/model"
	"github.com/AlfredBerg/job-scout/internal/score"
)

const EnvPrefix = "JOB_SCOUT"

type Config struct {
	Cache struct {
		Enabled     bool   `mapstructure:"enabled"`
		TTLDays     int    `mapstructure:"ttl_days"`
		Backend     string `mapstructure:"backend"`
		Path        string `mapstructure:"path"`
		RedisAddr   string `mapstructure:"redis_addr"`
		RedisPrefix string `mapstructure:"redis_prefix"`
	} `mapstructure:"cache"`

	Browser struct {
		Headless bool   `mapstructure:"headless"`
		Bin      string `mapstructure:"bin"`
		Devtools bool   `mapstructure:"devtools"`
	} `mapstructure:"browser"`

	Timeouts struct {
		Page    time.Duration `mapstructure:"page"`
		Subpage time.Duration `mapstructure:"subpage"`
	} `mapstructure:"timeouts"`

	Crawl struct {
		MaxCareerLinks   int     `mapstructure:"max_career_links"`
		MaxListingBlocks int     `mapstructure:"max_listing_blocks"`
		LockFile         string  `mapstructure:"lock_file"`
		HostRate         float64 `mapstructure:"host_rate"`
		HostBurst        int     `mapstructure:"host_burst"`
	} `mapstructure:"crawl"`

	Robots struct {
		Respect   bool   `mapstructure:"respect"`
		UserAgent string `mapstructure:"user_agent"`
	} `mapstructure:"robots"`

	Search struct {
		WebsiteKeywords     []string `mapstructure:"website_keywords"`
		JobSpecificKeywords []string `mapstructure:"job_specific_keywords"`
		MaxResults          int      `mapstructure:"max_results"`
	} `mapstructure:"search"`

	Kafka struct {
		Broker string `mapstructure:"broker"`
		Topic  string `mapstructure:"topic"`
	} `mapstructure:"kafka"`

	Serve struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"serve"`

	Log struct {
		Level string `mapstructure:"level"`
		Dev   bool   `mapstructure:"dev"`
	} `mapstructure:"log"`
}

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

func SetDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_days", 30)
	v.SetDefault("cache.backend", BackendSQLite)
	v.SetDefault("cache.path", "job-scout.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_prefix", "job-scout:cache:")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.devtools", false)

	v.SetDefault("timeouts.page", 15*time.Second)
	v.SetDefault("timeouts.subpage", 5*time.Second)

	v.SetDefault("crawl.max_career_links", score.MaxCareerLinks)
	v.SetDefault("crawl.max_listing_blocks", score.MaxListingBlocks)
	v.SetDefault("crawl.lock_file", "job-scout.lock")
	v.SetDefault("crawl.host_rate", 1.0)
	v.SetDefault("crawl.host_burst", 2)

	v.SetDefault("robots.respect", false)
	v.SetDefault("robots.user_agent", "job-scout/1.0")

	v.SetDefault("search.website_keywords", score.DefaultWebsiteKeywords)
	v.SetDefault("search.job_specific_keywords", []string{})
	v.SetDefault("search.max_results", 0)

	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.topic", "job-scout.results")

	v.SetDefault("serve.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)
}

// BindEnv makes every key readable from JOB_SCOUT_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	var err error
	if c.Cache.TTLDays <= 0 {
		err = multierr.Append(err, fmt.Errorf("cache.ttl_days must be positive, got %d", c.Cache.TTLDays))
	}
	switch c.Cache.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		err = multierr.Append(err, fmt.Errorf("cache.backend %q is not one of sqlite, redis, memory", c.Cache.Backend))
	}
	if c.Timeouts.Page <= 0 {
		err = multierr.Append(err, fmt.Errorf("timeouts.page must be positive, got %s", c.Timeouts.Page))
	}
	if c.Timeouts.Subpage <= 0 {
		err = multierr.Append(err, fmt.Errorf("timeouts.subpage must be positive, got %s", c.Timeouts.Subpage))
	}
	if c.Crawl.MaxCareerLinks < 1 || c.Crawl.MaxCareerLinks > 10 {
		err = multierr.Append(err, fmt.Errorf("crawl.max_career_links must be between 1 and 10, got %d", c.Crawl.MaxCareerLinks))
	}
	if c.Crawl.MaxListingBlocks < 1 {
		err = multierr.Append(err, fmt.Errorf("crawl.max_listing_blocks must be positive, got %d", c.Crawl.MaxListingBlocks))
	}
	if c.Search.MaxResults < 0 {
		err = multierr.Append(err, fmt.Errorf("search.max_results must not be negative, got %d", c.Search.MaxResults))
	}
	return err
}

// SearchDefaults fills the parts of cfg a request left out.
func (c Config) SearchDefaults(cfg model.SearchConfiguration) model.SearchConfiguration {
	if len(cfg.WebsiteKeywords) == 0 {
		cfg.WebsiteKeywords = c.Search.WebsiteKeywords
	}
	if len(cfg.JobSpecificKeywords) == 0 {
		cfg.JobSpecificKeywords = c.Search.JobSpecificKeywords
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = c.Search.MaxResults
	}
	return cfg
}
