package event

import (
	"context"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Kafka header names carried on every relayed message
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

// MessageWriter writes a single message to the broker
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Publisher delivers one outbox entry to the broker
type Publisher interface {
	Publish(ctx context.Context, entry *shared.OutboxEntry) error
	Close() error
}

// KafkaConfig holds the writer settings
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	ClientID     string
}

// KafkaPublisher publishes outbox entries to one topic, keyed by aggregate id
// so all events of an order or product stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher wraps an existing writer
func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// NewKafkaWriter builds a traced kafka writer.
// Trace context is injected into message headers with the W3C propagator.
func NewKafkaWriter(cfg KafkaConfig, tp trace.TracerProvider) (MessageWriter, error) {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 10 * time.Millisecond
	}
	base := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	writer, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			attribute.String("messaging.destination.name", cfg.Topic),
			attribute.String("messaging.kafka.client_id", cfg.ClientID),
		}),
	)
	if err != nil {
		return nil, err
	}
	return writer, nil
}

// Publish writes the entry payload with identifying headers
func (p *KafkaPublisher) Publish(ctx context.Context, entry *shared.OutboxEntry) error {
	return p.writer.WriteMessage(ctx, MessageFor(entry))
}

// Close closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// MessageFor builds the kafka message for an outbox entry
func MessageFor(entry *shared.OutboxEntry) kafka.Message {
	return kafka.Message{
		Key:   entry.PartitionKey(),
		Value: entry.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(entry.EventID.String())},
			{Key: HeaderEventType, Value: []byte(entry.EventType)},
			{Key: HeaderAggregateType, Value: []byte(entry.AggregateType)},
		},
		Time: entry.CreatedAt,
	}
}

var _ Publisher = (*KafkaPublisher)(nil)
