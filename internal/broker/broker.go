package broker

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sink receives every envelope in publish order.
type Sink interface {
	Send(ctx context.Context, env Envelope) error
}

type Closer interface {
	Close() error
}

// Broker fans events out to sinks and in-process handlers.
type Broker struct {
	mu       sync.Mutex
	sinks    []Sink
	handlers []Handler
	log      *zap.Logger
}

func New(log *zap.Logger, sinks ...Sink) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{sinks: sinks, log: log}
}

func (b *Broker) AddSink(s Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

func (b *Broker) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers e synchronously. A failing sink is logged and skipped.
func (b *Broker) Publish(ctx context.Context, runID string, e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := NewEnvelope(runID, e)
	if err != nil {
		b.log.Error("encoding event failed", zap.String("type", string(e.Kind())), zap.Error(err))
		return
	}
	for _, s := range b.sinks {
		if err := s.Send(ctx, env); err != nil {
			b.log.Warn("sink rejected event", zap.String("type", string(env.Type)), zap.Error(err))
		}
	}
	for _, h := range b.handlers {
		Dispatch(h, e)
	}
}

// Close closes every sink that can be closed.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	for _, s := range b.sinks {
		if c, ok := s.(Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// WriterSink writes one JSON envelope per line.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

func (s *WriterSink) Send(_ context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(env)
}

// LogHandler reports events through the logger.
type LogHandler struct {
	Log *zap.Logger
}

func (h LogHandler) OnProgress(e ProgressUpdate) {
	h.Log.Info(e.Status, zap.Int("progress", e.Progress))
}

func (h LogHandler) OnResult(e ResultFound) {
	h.Log.Info("result found",
		zap.String("business", e.Result.BusinessName),
		zap.String("website", e.Result.Website),
		zap.Int("score", e.Result.Score),
		zap.Bool("timed_out", e.Result.TimedOut),
	)
}

func (h LogHandler) OnBatchComplete(e BatchComplete) {
	h.Log.Info("batch complete", zap.Int("results", len(e.Results)))
}

func (h LogHandler) OnCancelled(e SearchCancelled) {
	h.Log.Info("search cancelled", zap.String("status", e.Status))
}
