// Package publisher streams committed custody events to Kafka. Publishing is
// best effort: it runs after commit and its failures never touch custody state.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"veriseal/internal/custody/metrics"
	"veriseal/internal/custody/models"
	"veriseal/pkg/platform/circuit"
	"veriseal/pkg/platform/sentinel"
)

// ErrCircuitOpen is returned while the broker is considered down.
var ErrCircuitOpen = fmt.Errorf("custody event stream circuit open: %w", sentinel.ErrUnavailable)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Publisher struct {
	producer Producer
	topic    string
	timeout  time.Duration
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// WithTimeout bounds one Publish call.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func New(producer Producer, topic string, opts ...Option) (*Publisher, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	p := &Publisher{
		producer: producer,
		topic:    topic,
		timeout:  2 * time.Second,
		breaker:  circuit.New("custody-events"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish writes events in order, keyed by shipment ID so one shipment's
// events stay on one partition.
func (p *Publisher) Publish(ctx context.Context, events []models.CustodyEvent) error {
	if len(events) == 0 {
		return nil
	}
	if !p.breaker.Allow() {
		return ErrCircuitOpen
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		rec, err := p.record(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.logger.WarnContext(ctx, "custody event stream circuit opened", "breaker", p.breaker.Name(), "topic", p.topic, "error", err)
		}
		return fmt.Errorf("produce custody events: %w", err)
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "custody event stream circuit closed", "breaker", p.breaker.Name(), "topic", p.topic)
	}
	p.metrics.AddEventsPublished(len(records))
	return nil
}

func (p *Publisher) record(e models.CustodyEvent) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode custody event: %w", err)
	}
	return &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.ShipmentID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "sequence", Value: []byte(strconv.FormatInt(e.Sequence, 10))},
		},
		Timestamp: e.RecordedAt,
	}, nil
}
