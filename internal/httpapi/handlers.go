package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/crawl"
	"github.com/AlfredBerg/job-scout/internal/model"
)

const maxBody = 4 << 20

type SearchHandler struct {
	Scheduler Scheduler
	Defaults  func(model.SearchConfiguration) model.SearchConfiguration
	Log       *zap.Logger
}

func (h SearchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "invalid search request: "+err.Error())
		return
	}
	if len(req.Websites) == 0 {
		WriteError(w, http.StatusBadRequest, "bad_request", "no websites to check")
		return
	}
	if h.Defaults != nil {
		req.SearchData = h.Defaults(req.SearchData)
	}

	ack, err := h.Scheduler.Start(r.Context(), req)
	switch {
	case errors.Is(err, crawl.ErrBusy):
		WriteJSON(w, http.StatusConflict, ack)
	case err != nil:
		h.Log.Error("starting search failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal", err.Error())
	default:
		WriteJSON(w, http.StatusAccepted, ack)
	}
}

func (h SearchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Cancel()
	WriteJSON(w, http.StatusAccepted, map[string]any{"state": h.Scheduler.State().String()})
}

func (h SearchHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"state":  h.Scheduler.State().String(),
		"run_id": h.Scheduler.RunID(),
	})
}

type CacheHandler struct {
	Cache CacheClearer
	Log   *zap.Logger
}

// Clear takes an optional JSON list of urls. An empty body clears everything.
func (h CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		WriteError(w, http.StatusNotFound, "cache_disabled", "caching is disabled")
		return
	}
	var urls []string
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&urls); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "bad_request", "expected a JSON list of urls")
		return
	}
	if err := h.Cache.Clear(r.Context(), urls...); err != nil {
		h.Log.Error("clearing cache failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
