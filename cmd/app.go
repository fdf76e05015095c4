package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/broker"
	"github.com/AlfredBerg/job-scout/internal/cache"
	"github.com/AlfredBerg/job-scout/internal/career"
	"github.com/AlfredBerg/job-scout/internal/config"
	"github.com/AlfredBerg/job-scout/internal/crawl"
	"github.com/AlfredBerg/job-scout/internal/logging"
	"github.com/AlfredBerg/job-scout/internal/robots"
	"github.com/AlfredBerg/job-scout/internal/tab"
)

// app holds everything one command invocation wires together.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	cache   *cache.ResultCache
	browser *tab.RodBrowser
	events  *broker.Broker
	sched   *crawl.Scheduler
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, nil, err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func openCache(cfg config.Config, log *zap.Logger) (*cache.ResultCache, error) {
	var b cache.Backend
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		s, err := cache.OpenSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		b = s
	case config.BackendRedis:
		b = cache.NewRedisBackend(cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix)
	case config.BackendMemory:
		b = cache.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return cache.New(b, cache.Settings{Enabled: cfg.Cache.Enabled, TTLDays: cfg.Cache.TTLDays}, log.Named("cache")), nil
}

// newApp launches the browser and builds the scheduler. sinks receive every
// event of every run.
func newApp(cfg config.Config, log *zap.Logger, sinks ...broker.Sink) (*app, error) {
	a := &app{cfg: cfg, log: log}

	c, err := openCache(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.cache = c

	a.browser, err = tab.LaunchRod(tab.RodOptions{
		Headless: cfg.Browser.Headless,
		Devtools: cfg.Browser.Devtools,
		Bin:      cfg.Browser.Bin,
	}, log.Named("browser"))
	if err != nil {
		return nil, multierr.Append(err, a.cache.Close())
	}

	a.events = broker.New(log.Named("events"), sinks...)
	if cfg.Kafka.Broker != "" {
		a.events.AddSink(broker.NewKafkaSink(cfg.Kafka.Broker, cfg.Kafka.Topic, log.Named("kafka")))
	}

	limiter := tab.NewHostLimiter(cfg.Crawl.HostRate, cfg.Crawl.HostBurst)

	careers := career.New(a.browser, cfg.Timeouts.Subpage, log.Named("career"))
	careers.MaxLinks = cfg.Crawl.MaxCareerLinks
	careers.MaxBlocks = cfg.Crawl.MaxListingBlocks
	careers.Limiter = limiter

	var gate *robots.Gate
	if cfg.Robots.Respect {
		gate = robots.NewGate(&http.Client{Timeout: 10 * time.Second}, cfg.Robots.UserAgent)
	}

	crawler := crawl.NewCrawler(tab.NewManager(a.browser, cfg.Timeouts.Page, log.Named("tab")), careers, gate, log.Named("crawl"))
	crawler.Limiter = limiter

	a.sched = crawl.NewScheduler(crawler, a.cache, a.events, log.Named("scheduler"))
	return a, nil
}

// Close cancels a run still in flight and releases everything.
func (a *app) Close() error {
	a.sched.Cancel()
	a.sched.Wait()

	var err error
	err = multierr.Append(err, a.events.Close())
	err = multierr.Append(err, a.browser.Close())
	err = multierr.Append(err, a.cache.Close())
	_ = a.log.Sync()
	return err
}
