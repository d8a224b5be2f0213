// Package publisher pushes finished reports onto a Kafka topic for
// downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockcast/internal/domain"
	"stockcast/internal/metrics"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultTopic = "stockcast.reports"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	Topic        string
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

type Option func(*Config)

func WithCompression(c string) Option {
	return func(cfg *Config) { cfg.Compression = c }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(cfg *Config) { cfg.WriteTimeout = d }
}

// KafkaPublisher writes one message per report, keyed by symbol so a
// symbol's reports stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	tracer  trace.Tracer
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewKafkaPublisher(tracer trace.Tracer, m *metrics.Recorder, brokers []string, topic string, opts ...Option) (*KafkaPublisher, error) {
	cfg := &Config{
		Brokers:      brokers,
		Topic:        topic,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: cfg.BatchTimeout,
	}
	return newKafkaPublisher(tracer, m, writer, cfg.Topic), nil
}

func newKafkaPublisher(tracer trace.Tracer, m *metrics.Recorder, w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, tracer: tracer, metrics: m, now: time.Now}
}

func (p *KafkaPublisher) PublishReport(ctx context.Context, rep domain.Report) error {
	ctx, span := p.tracer.Start(ctx, "publisher.publish-report")
	defer span.End()
	span.SetAttributes(attribute.String("topic", p.topic), attribute.String("symbol", rep.Symbol))

	payload, err := json.Marshal(rep)
	if err != nil {
		p.metrics.Publish(false)
		return fmt.Errorf("marshal report: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rep.Symbol),
		Value: payload,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: "run_id", Value: []byte(rep.RunID)},
			{Key: "provenance", Value: []byte(rep.Provenance)},
		},
	})
	p.metrics.Publish(err == nil)
	if err != nil {
		return fmt.Errorf("publish report %s: %w", rep.RunID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}
