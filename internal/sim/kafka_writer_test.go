package sim

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"fuelsensor-sim/internal/telemetry"
)

type fakeProducer struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return context.DeadlineExceeded
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaWriterKeysBySensor(t *testing.T) {
	p := &fakeProducer{}
	w := &KafkaWriter{producer: p, topic: "fuel", eventTopic: "fuel.events", timeout: time.Second}
	ts := time.Unix(10, 0).UTC()
	if err := w.WriteBatch([]telemetry.Record{{SensorID: "S1", FuelLevel: 10, Timestamp: ts}, {SensorID: "S2", Timestamp: ts}}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := w.WriteEvent(telemetry.EventRow{SensorID: "S1", EventType: telemetry.EventRefuel, Timestamp: ts}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if len(p.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(p.msgs))
	}
	if string(p.msgs[0].Key) != "S1" || p.msgs[0].Topic != "fuel" || !p.msgs[0].Time.Equal(ts) {
		t.Fatalf("unexpected record message: %+v", p.msgs[0])
	}
	var got telemetry.Record
	if err := json.Unmarshal(p.msgs[0].Value, &got); err != nil || got.FuelLevel != 10 {
		t.Fatalf("bad payload %s: %v", p.msgs[0].Value, err)
	}
	ev := p.msgs[2]
	if ev.Topic != "fuel.events" || len(ev.Headers) != 1 || string(ev.Headers[0].Value) != "refuel" {
		t.Fatalf("unexpected event message: %+v", ev)
	}
	if err := w.Close(); err != nil || !p.closed {
		t.Fatalf("close not forwarded")
	}
}
