package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/metrics"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// KafkaPublisher writes JSON events through a circuit breaker so a broker
// outage fails fast instead of stalling every request on write timeouts.
type KafkaPublisher struct {
	writer  Writer
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

func NewKafkaPublisher(w Writer, settings BreakerSettings, m *metrics.Metrics, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &KafkaPublisher{writer: w, metrics: m, logger: logger}

	name := "kafka-publisher"
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.SetCircuitBreakerState(name, int(to))
		},
	})
	m.SetCircuitBreakerState(name, int(gobreaker.StateClosed))
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(e.Key()),
			Value: value,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
			},
		})
	})
	p.metrics.RecordEventPublished(e.Type, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) State() gobreaker.State { return p.breaker.State() }

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
