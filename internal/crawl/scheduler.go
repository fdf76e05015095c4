// Package crawl runs a batch of candidate sites through the browser, one at a
// time, and reports what it finds as it goes.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/broker"
	"github.com/AlfredBerg/job-scout/internal/cache"
	"github.com/AlfredBerg/job-scout/internal/model"
)

var ErrBusy = errors.New("a search is already running")

type State int

const (
	Idle State = iota
	Running
	Draining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Publisher receives the events of a run in order.
type Publisher interface {
	Publish(ctx context.Context, runID string, e broker.Event)
}

// discoveryShare is the part of the progress bar owned by candidate discovery.
const discoveryShare = 50

// Scheduler owns a single run at a time. Jobs are processed strictly one after
// the other in input order.
type Scheduler struct {
	processor Processor
	cache     *cache.ResultCache
	events    Publisher
	log       *zap.Logger
	newRunID  func() string

	mu        sync.Mutex
	state     State
	runID     string
	jobs      []*Job
	results   []model.CrawlResult
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler wires a scheduler. c may be nil to disable caching.
func NewScheduler(p Processor, c *cache.ResultCache, events Publisher, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		processor: p,
		cache:     c,
		events:    events,
		log:       log,
		newRunID:  func() string { return uuid.NewString() },
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID is the id of the current or last run.
func (s *Scheduler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Start queues req and returns at once. The run outlives ctx; use Cancel to
// stop it.
func (s *Scheduler) Start(ctx context.Context, req model.Request) (model.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return model.Ack{Status: model.StatusBusy}, ErrBusy
	}

	s.jobs = newJobs(req.Websites, req.SearchData.MaxResults)
	s.results = nil
	s.cancelled = false
	s.runID = s.newRunID()
	s.state = Running
	s.done = make(chan struct{})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.log.Info("search started",
		zap.String("run_id", s.runID),
		zap.Int("queued", len(s.jobs)),
		zap.Strings("keywords", req.SearchData.UserKeywords),
	)
	go s.run(runCtx, s.runID, s.jobs, req.SearchData, s.done)

	return model.Ack{Status: model.StatusProcessing, QueuedCount: len(s.jobs)}, nil
}

// Cancel stops the current run. The job in flight has its tab torn down and
// its result dropped. Calling Cancel when nothing runs does nothing.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return
	}
	s.cancelled = true
	s.state = Draining
	s.cancel()
	for _, j := range s.jobs {
		j.Processed = true
	}
	s.results = nil
	s.log.Info("search cancel requested", zap.String("run_id", s.runID))
}

// Wait blocks until the current run, if any, has emitted its last event.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) run(ctx context.Context, runID string, jobs []*Job, cfg model.SearchConfiguration, done chan struct{}) {
	defer close(done)
	log := s.log.With(zap.String("run_id", runID))
	target := len(jobs)

	// Sinks may block, so nothing is published while s.mu is held. Only this
	// goroutine publishes, which keeps the events of a run in order.
	for {
		s.mu.Lock()
		job := next(jobs)
		if s.cancelled || job == nil {
			s.mu.Unlock()
			break
		}
		n := processedCount(jobs)
		s.mu.Unlock()

		s.publishLive(ctx, runID, broker.ProgressUpdate{
			Status:   fmt.Sprintf("Checking website %d/%d: %s", n, target, job.Site.BusinessName),
			Progress: discoveryShare + n*(100-discoveryShare)/target,
		})

		res, store := s.crawlOne(ctx, log, job.Site, cfg)

		s.mu.Lock()
		if s.cancelled {
			s.mu.Unlock()
			log.Debug("dropping result of cancelled job", zap.String("url", job.Site.WebsiteURL))
			break
		}
		job.Processed = true
		job.Result = &res
		report := res.TimedOut || res.HasSignal()
		if report {
			s.results = append(s.results, res)
		}
		s.mu.Unlock()

		if store {
			s.cache.Put(ctx, job.Site.WebsiteURL, res)
		}
		if report {
			s.publishLive(ctx, runID, broker.ResultFound{Result: res})
		}
	}

	s.mu.Lock()
	cancelled, results := s.cancelled, s.results
	s.mu.Unlock()

	if cancelled {
		s.events.Publish(context.WithoutCancel(ctx), runID, broker.SearchCancelled{Status: "Search cancelled"})
		log.Info("search cancelled")
	} else {
		s.events.Publish(ctx, runID, broker.BatchComplete{Results: results})
		log.Info("search complete", zap.Int("results", len(results)), zap.Int("checked", target))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.jobs = nil
	s.results = nil
	s.state = Idle
}

// publishLive drops e once the run has been cancelled.
func (s *Scheduler) publishLive(ctx context.Context, runID string, e broker.Event) {
	s.mu.Lock()
	cancelled := s.cancelled
	s.mu.Unlock()
	if !cancelled {
		s.events.Publish(ctx, runID, e)
	}
}

// crawlOne never fails. Errors leave an empty result that still advances the
// queue. The second return reports whether the result is worth caching: fresh
// outcomes that neither failed nor timed out.
func (s *Scheduler) crawlOne(ctx context.Context, log *zap.Logger, site model.CandidateSite, cfg model.SearchConfiguration) (model.CrawlResult, bool) {
	if site.WebsiteURL == "" {
		return model.CrawlResult{BusinessName: site.BusinessName}, false
	}
	if r, ok := s.cache.Get(ctx, site.WebsiteURL); ok {
		log.Debug("cache hit", zap.String("url", site.WebsiteURL))
		r.BusinessName = site.BusinessName
		return *r, false
	}

	out := s.processor.Process(ctx, site, cfg)
	if out.Err != nil {
		log.Info("site yielded no signal", zap.String("url", site.WebsiteURL), zap.Error(out.Err))
	}
	res := out.Result
	res.BusinessName = site.BusinessName
	res.Website = site.WebsiteURL
	return res, out.Err == nil && !res.TimedOut
}
