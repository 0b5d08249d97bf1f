// Package events forwards contribution status changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"ofertas/internal/status/metrics"
	"ofertas/internal/status/models"
	"ofertas/pkg/platform/circuit"
)

// DefaultTopic receives one record per status change, keyed by contribution id.
const DefaultTopic = "contribution-status"

// KafkaPublisher is a broker subscriber that produces status changes to Kafka.
// While Kafka keeps failing, a circuit breaker skips producing for a cooldown.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*KafkaPublisher)

func WithTopic(topic string) Option {
	return func(p *KafkaPublisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *KafkaPublisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *KafkaPublisher) {
		p.metrics = m
	}
}

// NewKafkaPublisher connects to brokers and makes sure the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, opts ...Option) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	p := &KafkaPublisher{
		topic:   DefaultTopic,
		breaker: circuit.New("kafka-status"),
	}
	for _, opt := range opts {
		opt(p)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(p.topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p.client = client

	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func (p *KafkaPublisher) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, t := range resp.Sorted() {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Handle produces ev asynchronously. It has the broker's Subscriber signature.
func (p *KafkaPublisher) Handle(ctx context.Context, ev models.StatusChanged) {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.IncrementForwarded("skipped")
		}
		return
	}
	value, err := json.Marshal(ev)
	if err != nil {
		p.record(ctx, ev, err)
		return
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.ID),
		Value: value,
	}
	p.client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		p.record(ctx, ev, err)
	})
}

func (p *KafkaPublisher) record(ctx context.Context, ev models.StatusChanged, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if _, change := p.breaker.RecordFailure(); change.Opened && p.logger != nil {
			p.logger.WarnContext(ctx, "kafka circuit opened, status changes will be skipped", "breaker", p.breaker.Name())
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "failed to forward status change",
				"contribution_id", ev.ID,
				"status", ev.Status,
				"error", err,
			)
		}
	} else if _, change := p.breaker.RecordSuccess(); change.Closed && p.logger != nil {
		p.logger.InfoContext(ctx, "kafka circuit closed", "breaker", p.breaker.Name())
	}
	if p.metrics != nil {
		p.metrics.IncrementForwarded(result)
	}
}

// Close flushes buffered records and disconnects.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	defer p.client.Close()
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}
