// Package tab owns browsing contexts: opening one per site, waiting for it to
// load within a deadline, running extraction inside it and closing it again.
package tab

import (
	"context"
	"errors"
	"time"

	"github.com/AlfredBerg/job-scout/internal/page"
)

var ErrLoadTimeout = errors.New("load did not complete before the deadline")

// Browser hands out isolated browsing contexts.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
}

// Tab is one browsing context. Navigate returns once the document signalled
// load-complete.
type Tab interface {
	Navigate(ctx context.Context, url string) error
	Snapshot(ctx context.Context) (*page.Snapshot, error)
	Close() error
}

// Race runs wait and returns its result, or ErrLoadTimeout when d elapses
// first. wait gets a context that is cancelled at the deadline but Race does
// not rely on wait honouring it. Cancellation of ctx is returned as is.
func Race(ctx context.Context, d time.Duration, wait func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- wait(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrLoadTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrLoadTimeout
		}
		return ctx.Err()
	}
}

// Load opens a new tab and navigates it to url within d. The tab is closed
// again on any error, so callers only own it on success.
func Load(ctx context.Context, b Browser, url string, d time.Duration) (Tab, error) {
	t, err := b.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	if err := Race(ctx, d, func(ctx context.Context) error { return t.Navigate(ctx, url) }); err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}
