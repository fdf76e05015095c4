// Package broker relays crawl events to observers.
package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlfredBerg/job-scout/internal/model"
)

type Kind string

const (
	KindProgress      Kind = "progressUpdate"
	KindResult        Kind = "resultFound"
	KindBatchComplete Kind = "batchComplete"
	KindCancelled     Kind = "searchCancelled"
)

const envelopeVersion = 1

// Event is one of ProgressUpdate, ResultFound, BatchComplete or
// SearchCancelled.
type Event interface {
	Kind() Kind
}

type ProgressUpdate struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

type ResultFound struct {
	Result model.CrawlResult `json:"result"`
}

type BatchComplete struct {
	Results []model.CrawlResult `json:"results"`
}

type SearchCancelled struct {
	Status string `json:"status"`
}

func (ProgressUpdate) Kind() Kind  { return KindProgress }
func (ResultFound) Kind() Kind     { return KindResult }
func (BatchComplete) Kind() Kind   { return KindBatchComplete }
func (SearchCancelled) Kind() Kind { return KindCancelled }

// Envelope is the wire form of an event.
type Envelope struct {
	Type    Kind            `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(runID string, e Event) (Envelope, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:    e.Kind(),
		Version: envelopeVersion,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}, nil
}

// Event decodes the payload back into its variant.
func (env Envelope) Event() (Event, error) {
	var e Event
	switch env.Type {
	case KindProgress:
		var v ProgressUpdate
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		e = v
	case KindResult:
		var v ResultFound
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		e = v
	case KindBatchComplete:
		var v BatchComplete
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		e = v
	case KindCancelled:
		var v SearchCancelled
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		e = v
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	return e, nil
}

// Handler has one method per event variant.
type Handler interface {
	OnProgress(ProgressUpdate)
	OnResult(ResultFound)
	OnBatchComplete(BatchComplete)
	OnCancelled(SearchCancelled)
}

func Dispatch(h Handler, e Event) {
	switch v := e.(type) {
	case ProgressUpdate:
		h.OnProgress(v)
	case ResultFound:
		h.OnResult(v)
	case BatchComplete:
		h.OnBatchComplete(v)
	case SearchCancelled:
		h.OnCancelled(v)
	}
}
