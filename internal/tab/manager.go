package tab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/model"
	"github.com/AlfredBerg/job-scout/internal/page"
)

type State int

const (
	Created State = iota
	Loading
	Loaded
	TimedOut
	Executing
	Closed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case TimedOut:
		return "timed_out"
	case Executing:
		return "executing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const DefaultLoadTimeout = 15 * time.Second

// ExecFunc runs while the tab is loaded, on the snapshot of its document.
type ExecFunc func(ctx context.Context, snap *page.Snapshot) (model.CrawlResult, error)

// Outcome is what one pass through the lifecycle produced. Err is set when the
// job yielded no usable signal because loading or extraction failed.
type Outcome struct {
	Result model.CrawlResult
	Err    error
	States []State
}

func (o Outcome) TimedOut() bool { return o.Result.TimedOut }

// Manager drives one tab per job through
// Created -> Loading -> (Loaded | TimedOut) -> Executing -> Closed.
type Manager struct {
	Browser     Browser
	LoadTimeout time.Duration
	Log         *zap.Logger
	Now         func() time.Time
}

func NewManager(b Browser, loadTimeout time.Duration, log *zap.Logger) *Manager {
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{Browser: b, LoadTimeout: loadTimeout, Log: log, Now: time.Now}
}

func (m *Manager) Run(ctx context.Context, url string, exec ExecFunc) (out Outcome) {
	log := m.Log.With(zap.String("url", url))
	out.States = append(out.States, Created)

	t, err := m.Browser.NewTab(ctx)
	if err != nil {
		out.Err = fmt.Errorf("open tab: %w", err)
		out.Result.LastChecked = m.Now()
		return out
	}

	closed := false
	closeTab := func() {
		if closed {
			return
		}
		closed = true
		if err := t.Close(); err != nil {
			log.Debug("closing tab failed", zap.Error(err))
		}
		out.States = append(out.States, Closed)
	}
	defer closeTab()

	out.States = append(out.States, Loading)
	err = Race(ctx, m.LoadTimeout, func(ctx context.Context) error {
		return t.Navigate(ctx, url)
	})
	switch {
	case errors.Is(err, ErrLoadTimeout):
		out.States = append(out.States, TimedOut)
		log.Info("page load timed out", zap.Duration("timeout", m.LoadTimeout))
		out.Result = model.CrawlResult{TimedOut: true, LastChecked: m.Now()}
		return out
	case err != nil:
		out.Err = fmt.Errorf("load %s: %w", url, err)
		out.Result.LastChecked = m.Now()
		return out
	}
	out.States = append(out.States, Loaded, Executing)

	var res model.CrawlResult
	var c panics.Catcher
	c.Try(func() {
		var snap *page.Snapshot
		snapCtx, cancel := context.WithTimeout(ctx, m.LoadTimeout)
		defer cancel()
		snap, err = t.Snapshot(snapCtx)
		if err != nil {
			err = fmt.Errorf("snapshot: %w", err)
			return
		}
		res, err = exec(ctx, snap)
	})
	if r := c.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		out.Err = err
		out.Result = model.CrawlResult{LastChecked: m.Now()}
		return out
	}

	res.LastChecked = m.Now()
	out.Result = res
	return out
}
