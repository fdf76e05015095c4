// Package career follows job links found on a main page and looks for
// listings, job board links and job specific keywords behind them.
package career

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/model"
	"github.com/AlfredBerg/job-scout/internal/page"
	"github.com/AlfredBerg/job-scout/internal/score"
	"github.com/AlfredBerg/job-scout/internal/tab"
)

const DefaultTimeout = 5 * time.Second

// Signals is the delta career pages add to a result.
type Signals struct {
	Listings            []model.JobListing
	NewKeywords         []string
	JobSiteLinks        []model.JobSiteLink
	JobSpecificKeywords []string
	PerfectMatch        bool
}

func (s Signals) Empty() bool {
	return len(s.Listings) == 0 && len(s.NewKeywords) == 0 && len(s.JobSiteLinks) == 0 && len(s.JobSpecificKeywords) == 0
}

// Apply adds the delta to r in one step. A perfect listing match pins the
// score to 100 after the keyword passes, and only the job board boost can
// lift it further.
func (s Signals) Apply(r *model.CrawlResult) {
	r.JobListings = append(r.JobListings, s.Listings...)

	if len(s.NewKeywords) > 0 {
		r.JobKeywords = score.AppendUnique(r.JobKeywords, s.NewKeywords...)
		if !s.PerfectMatch {
			r.Score = max(r.Score, score.NewKeywordBoost(len(s.NewKeywords)))
		}
	}

	if n := len(s.JobSpecificKeywords); n > 0 {
		r.JobSpecificKeywords = score.AppendUnique(r.JobSpecificKeywords, s.JobSpecificKeywords...)
		r.JobKeywords = score.AppendUnique(r.JobKeywords, s.JobSpecificKeywords...)
		r.Score += n * score.JobSpecificKeywordWeight
		r.PotentialJobMatch = true
	}

	if s.PerfectMatch {
		r.Score = score.PerfectMatchScore
	}

	if n := len(s.JobSiteLinks); n > 0 {
		r.JobSiteLinks = append(r.JobSiteLinks, s.JobSiteLinks...)
		r.Score += min(n*score.JobBoardLinkWeight, score.JobBoardBoostCap)
		r.Score = max(r.Score, score.JobBoardFloor)
	}
}

type Crawler struct {
	Browser   tab.Browser
	Timeout   time.Duration
	MaxLinks  int
	MaxBlocks int
	// Limiter paces loads on the same host. Optional.
	Limiter *tab.HostLimiter
	Log     *zap.Logger
}

func New(b tab.Browser, timeout time.Duration, log *zap.Logger) *Crawler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{
		Browser:   b,
		Timeout:   timeout,
		MaxLinks:  score.MaxCareerLinks,
		MaxBlocks: score.MaxListingBlocks,
		Log:       log,
	}
}

// Crawl visits up to MaxLinks links one after the other. known holds the
// keywords the main page already recorded. Pages that fail to load or to
// parse contribute nothing.
func (c *Crawler) Crawl(ctx context.Context, links []string, sc score.Scorer, jobSpecific []string, known []string) Signals {
	var out Signals
	known = append([]string(nil), known...)
	boards := map[string]bool{}

	for i, link := range links {
		if i >= c.MaxLinks || ctx.Err() != nil {
			break
		}
		snap, ok := c.fetch(ctx, link)
		if !ok {
			continue
		}

		var s Signals
		var pc panics.Catcher
		pc.Try(func() { s = Evaluate(snap, sc, jobSpecific, known, c.MaxBlocks) })
		if r := pc.Recovered(); r != nil {
			c.Log.Debug("career page evaluation failed", zap.String("url", link), zap.Error(r.AsError()))
			continue
		}

		out.Listings = append(out.Listings, s.Listings...)
		out.PerfectMatch = out.PerfectMatch || s.PerfectMatch
		out.NewKeywords = score.AppendUnique(out.NewKeywords, s.NewKeywords...)
		known = score.AppendUnique(known, s.NewKeywords...)
		for _, l := range s.JobSiteLinks {
			if !boards[l.URL] {
				boards[l.URL] = true
				out.JobSiteLinks = append(out.JobSiteLinks, l)
			}
		}
		out.JobSpecificKeywords = score.AppendUnique(out.JobSpecificKeywords, s.JobSpecificKeywords...)
	}
	return out
}

func (c *Crawler) fetch(ctx context.Context, link string) (*page.Snapshot, bool) {
	log := c.Log.With(zap.String("url", link))

	if err := c.Limiter.WaitURL(ctx, link); err != nil {
		return nil, false
	}
	t, err := tab.Load(ctx, c.Browser, link, c.Timeout)
	if err != nil {
		log.Debug("career page did not load", zap.Error(err))
		return nil, false
	}
	defer func() {
		if err := t.Close(); err != nil {
			log.Debug("closing career tab failed", zap.Error(err))
		}
	}()

	var snap *page.Snapshot
	err = tab.Race(ctx, c.Timeout, func(ctx context.Context) error {
		var err error
		snap, err = t.Snapshot(ctx)
		return err
	})
	if err != nil || snap == nil {
		log.Debug("career page snapshot failed", zap.Error(err))
		return nil, false
	}
	return snap, true
}

// Evaluate scores one career page. Only user keywords missing from known are
// reported as new.
func Evaluate(snap *page.Snapshot, sc score.Scorer, jobSpecific []string, known []string, maxBlocks int) Signals {
	var s Signals
	if snap == nil {
		return s
	}

	s.Listings = sc.Listings(snap, maxBlocks)
	s.PerfectMatch = len(s.Listings) > 0

	have := map[string]bool{}
	for _, k := range known {
		have[k] = true
	}
	found, _ := score.KeywordPass(snap.Text, sc.UserKeywords, 0)
	for _, k := range found {
		if !have[k] {
			s.NewKeywords = append(s.NewKeywords, k)
		}
	}

	s.JobSiteLinks = score.JobBoardLinks(snap.Links, snap.URL)
	s.JobSpecificKeywords, _ = score.KeywordPass(snap.Text, score.Normalize(jobSpecific), score.JobSpecificKeywordWeight)
	return s
}
