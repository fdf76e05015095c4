package crawl

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/career"
	"github.com/AlfredBerg/job-scout/internal/model"
	"github.com/AlfredBerg/job-scout/internal/page"
	"github.com/AlfredBerg/job-scout/internal/robots"
	"github.com/AlfredBerg/job-scout/internal/score"
	"github.com/AlfredBerg/job-scout/internal/tab"
)

var ErrDisallowed = errors.New("disallowed by robots.txt")

// Processor turns one candidate site into an outcome.
type Processor interface {
	Process(ctx context.Context, site model.CandidateSite, cfg model.SearchConfiguration) tab.Outcome
}

// Crawler checks the main page of a site in its own tab and then follows the
// job links it found.
type Crawler struct {
	Tabs    *tab.Manager
	Careers *career.Crawler
	// Robots is optional. When set, sites that disallow the main page are
	// skipped.
	Robots *robots.Gate
	// Limiter paces main page loads per host. Optional.
	Limiter *tab.HostLimiter
	Log     *zap.Logger
}

func NewCrawler(tabs *tab.Manager, careers *career.Crawler, gate *robots.Gate, log *zap.Logger) *Crawler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{Tabs: tabs, Careers: careers, Robots: gate, Log: log}
}

func (c *Crawler) Process(ctx context.Context, site model.CandidateSite, cfg model.SearchConfiguration) tab.Outcome {
	if c.Robots != nil && !c.Robots.Allowed(ctx, site.WebsiteURL) {
		c.Log.Info("skipping site", zap.String("url", site.WebsiteURL), zap.Error(ErrDisallowed))
		return tab.Outcome{Err: ErrDisallowed, Result: model.CrawlResult{LastChecked: c.Tabs.Now()}}
	}

	if err := c.Limiter.WaitURL(ctx, site.WebsiteURL); err != nil {
		return tab.Outcome{Err: err, Result: model.CrawlResult{LastChecked: c.Tabs.Now()}}
	}

	sc := score.New(cfg)
	return c.Tabs.Run(ctx, site.WebsiteURL, func(ctx context.Context, snap *page.Snapshot) (model.CrawlResult, error) {
		var r model.CrawlResult
		main := sc.Score(snap)
		main.Apply(&r)

		if c.Careers != nil && len(main.CareerLinks) > 0 {
			extra := c.Careers.Crawl(ctx, main.CareerLinks, sc, cfg.JobSpecificKeywords, r.JobKeywords)
			extra.Apply(&r)
		}
		return r, nil
	})
}
