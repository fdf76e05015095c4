package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_broker.go -package=mocks github.com/AlfredBerg/job-scout/internal/broker MessageWriter

// MessageWriter abstracts kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const kafkaWriteTimeout = 10 * time.Second

// KafkaSink publishes resultFound and batchComplete envelopes keyed by run id.
// Writes happen on a single goroutine so a slow broker does not hold up the
// crawl.
type KafkaSink struct {
	writer MessageWriter
	msgs   chan kafka.Message
	wg     conc.WaitGroup
	log    *zap.Logger
}

func NewKafkaSink(broker, topic string, log *zap.Logger) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: false,
	}, log)
}

// NewKafkaSinkWithWriter builds a sink using a custom writer (tests).
func NewKafkaSinkWithWriter(w MessageWriter, log *zap.Logger) *KafkaSink {
	if log == nil {
		log = zap.NewNop()
	}
	s := &KafkaSink{
		writer: w,
		//Buffered channel as results can come in bursts
		msgs: make(chan kafka.Message, 64),
		log:  log,
	}
	s.wg.Go(s.run)
	return s
}

func (s *KafkaSink) run() {
	for m := range s.msgs {
		ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
		err := s.writer.WriteMessages(ctx, m)
		cancel()
		if err != nil {
			s.log.Warn("kafka write failed", zap.String("key", string(m.Key)), zap.Error(err))
		}
	}
}

func (s *KafkaSink) Send(_ context.Context, env Envelope) error {
	if env.Type != KindResult && env.Type != KindBatchComplete {
		return nil
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	s.msgs <- kafka.Message{
		Key:   []byte(env.RunID),
		Value: payload,
		Time:  env.At,
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *KafkaSink) Close() error {
	close(s.msgs)
	var err error
	if r := s.wg.WaitAndRecover(); r != nil {
		err = multierr.Append(err, r.AsError())
	}
	return multierr.Append(err, s.writer.Close())
}
