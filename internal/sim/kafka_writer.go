package sim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"fuelsensor-sim/internal/telemetry"
)

// kafkaProducer is the subset of *kafka.Writer used here.
type kafkaProducer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes records and fuel events keyed by sensor ID, so every
// sensor stays ordered within one partition.
type KafkaWriter struct {
	producer   kafkaProducer
	topic      string
	eventTopic string
	timeout    time.Duration
}

// NewKafkaWriter creates a writer for a comma separated broker list. Events go
// to topic + ".events".
func NewKafkaWriter(brokers, topic string) *KafkaWriter {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaWriter{
		producer: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		topic:      topic,
		eventTopic: topic + ".events",
		timeout:    5 * time.Second,
	}
}

func (w *KafkaWriter) send(msgs ...kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.producer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (w *KafkaWriter) recordMessage(rec telemetry.Record) (kafka.Message, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Topic: w.topic, Key: []byte(rec.SensorID), Value: b, Time: rec.Timestamp}, nil
}

// Write publishes a single record.
func (w *KafkaWriter) Write(rec telemetry.Record) error {
	return w.WriteBatch([]telemetry.Record{rec})
}

// WriteBatch publishes multiple records in one request.
func (w *KafkaWriter) WriteBatch(recs []telemetry.Record) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(recs))
	for _, r := range recs {
		m, err := w.recordMessage(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	return w.send(msgs...)
}

// WriteEvent publishes a fuel event with its type as a header.
func (w *KafkaWriter) WriteEvent(e telemetry.EventRow) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return w.send(kafka.Message{
		Topic:   w.eventTopic,
		Key:     []byte(e.SensorID),
		Value:   b,
		Time:    e.Timestamp,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(e.EventType)}},
	})
}

// Close flushes pending messages.
func (w *KafkaWriter) Close() error {
	return w.producer.Close()
}
