// Package httpapi exposes the scheduler to a browser UI: batch submission,
// cancellation, the event stream and cache maintenance.
package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/crawl"
	"github.com/AlfredBerg/job-scout/internal/model"
)

type Scheduler interface {
	Start(ctx context.Context, req model.Request) (model.Ack, error)
	Cancel()
	State() crawl.State
	RunID() string
}

type CacheClearer interface {
	Clear(ctx context.Context, urls ...string) error
}

type Deps struct {
	Scheduler Scheduler
	// Cache may be nil when caching is off.
	Cache CacheClearer
	// Events streams the envelopes of every run.
	Events http.HandlerFunc
	// Defaults completes the search configuration of incoming requests.
	Defaults func(model.SearchConfiguration) model.SearchConfiguration
	Log      *zap.Logger
}

func NewMux(d Deps) *http.ServeMux {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	mux := http.NewServeMux()

	sh := SearchHandler{Scheduler: d.Scheduler, Defaults: d.Defaults, Log: d.Log}
	mux.HandleFunc("/search", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Start,
	}))
	mux.HandleFunc("/cancel", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Cancel,
	}))
	mux.HandleFunc("/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Status,
	}))

	ch := CacheHandler{Cache: d.Cache, Log: d.Log}
	mux.HandleFunc("/cache", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: ch.Clear,
	}))

	if d.Events != nil {
		mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
			http.MethodGet: d.Events,
		}))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return mux
}
