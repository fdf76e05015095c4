package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/AlfredBerg/job-scout/internal/crawl"
	"github.com/AlfredBerg/job-scout/internal/model"
)

type fakeScheduler struct {
	busy      bool
	got       model.Request
	cancelled int
}

func (f *fakeScheduler) Start(_ context.Context, req model.Request) (model.Ack, error) {
	if f.busy {
		return model.Ack{Status: model.StatusBusy}, crawl.ErrBusy
	}
	f.got = req
	return model.Ack{Status: model.StatusProcessing, QueuedCount: len(req.Websites)}, nil
}

func (f *fakeScheduler) Cancel()            { f.cancelled++ }
func (f *fakeScheduler) State() crawl.State { return crawl.Idle }
func (f *fakeScheduler) RunID() string      { return "run-1" }

type fakeCache struct {
	cleared [][]string
}

func (c *fakeCache) Clear(_ context.Context, urls ...string) error {
	c.cleared = append(c.cleared, urls)
	return nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const searchBody = `{"websites":[{"businessName":"A","website":"https://a.example"}],"searchData":{"userKeywords":["engineer"]}}`

func TestSearchAccepted(t *testing.T) {
	s := &fakeScheduler{}
	mux := NewMux(Deps{
		Scheduler: s,
		Defaults: func(c model.SearchConfiguration) model.SearchConfiguration {
			c.WebsiteKeywords = []string{"jobs"}
			return c
		},
	})

	rec := do(t, mux, http.MethodPost, "/search", searchBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var ack model.Ack
	if err := json.NewDecoder(rec.Body).Decode(&ack); err != nil {
		t.Fatal(err)
	}
	if ack.Status != model.StatusProcessing || ack.QueuedCount != 1 {
		t.Fatalf("unexpected ack %+v", ack)
	}
	if s.got.Websites[0].WebsiteURL != "https://a.example" {
		t.Fatalf("website not decoded: %+v", s.got)
	}
	if !reflect.DeepEqual(s.got.SearchData.WebsiteKeywords, []string{"jobs"}) {
		t.Fatalf("defaults not applied: %+v", s.got.SearchData)
	}
}

func TestSearchBusy(t *testing.T) {
	mux := NewMux(Deps{Scheduler: &fakeScheduler{busy: true}})
	rec := do(t, mux, http.MethodPost, "/search", searchBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"busy"`) {
		t.Fatalf("expected busy ack, got %s", rec.Body)
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	mux := NewMux(Deps{Scheduler: &fakeScheduler{}})
	for _, body := range []string{`{`, `{"websites":[]}`} {
		if rec := do(t, mux, http.MethodPost, "/search", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, rec.Code)
		}
	}
	if rec := do(t, mux, http.MethodGet, "/search", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCancelAndStatus(t *testing.T) {
	s := &fakeScheduler{}
	mux := NewMux(Deps{Scheduler: s})

	if rec := do(t, mux, http.MethodPost, "/cancel", ""); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if s.cancelled != 1 {
		t.Fatalf("expected one cancel, got %d", s.cancelled)
	}

	rec := do(t, mux, http.MethodGet, "/status", "")
	if !strings.Contains(rec.Body.String(), `"idle"`) || !strings.Contains(rec.Body.String(), "run-1") {
		t.Fatalf("unexpected status %s", rec.Body)
	}
}

func TestCacheClear(t *testing.T) {
	c := &fakeCache{}
	mux := NewMux(Deps{Scheduler: &fakeScheduler{}, Cache: c})

	if rec := do(t, mux, http.MethodDelete, "/cache", `["https://a.example"]`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodDelete, "/cache", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(c.cleared) != 2 || !reflect.DeepEqual(c.cleared[0], []string{"https://a.example"}) || len(c.cleared[1]) != 0 {
		t.Fatalf("unexpected clears %v", c.cleared)
	}
	if rec := do(t, mux, http.MethodDelete, "/cache", `{"url":1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCacheDisabled(t *testing.T) {
	mux := NewMux(Deps{Scheduler: &fakeScheduler{}})
	if rec := do(t, mux, http.MethodDelete, "/cache", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
