package sim

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fuelsensor-sim/internal/telemetry"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeMQTT struct {
	sent         []published
	err          error
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{err: f.err}
}

func (f *fakeMQTT) Disconnect(uint) { f.disconnected = true }

func TestMQTTWriterTopics(t *testing.T) {
	f := &fakeMQTT{}
	w := &MQTTWriter{client: f, prefix: "fuel", qos: 1, timeout: time.Second}
	if err := w.Write(telemetry.Record{SensorID: "S1", FuelLevel: 77}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.WriteEvent(telemetry.EventRow{SensorID: "S1", EventType: telemetry.EventTamper}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if len(f.sent) != 2 || f.sent[0].topic != "fuel/S1" || f.sent[1].topic != "fuel/S1/events" {
		t.Fatalf("unexpected topics: %+v", f.sent)
	}
	var rec telemetry.Record
	if err := json.Unmarshal(f.sent[0].payload, &rec); err != nil || rec.FuelLevel != 77 {
		t.Fatalf("bad payload: %s", f.sent[0].payload)
	}
	_ = w.Close()
	if !f.disconnected {
		t.Fatalf("expected disconnect")
	}
}

func TestMQTTWriterPublishError(t *testing.T) {
	f := &fakeMQTT{err: errors.New("not connected")}
	w := &MQTTWriter{client: f, prefix: "fuel", timeout: time.Second}
	if err := w.Write(telemetry.Record{SensorID: "S1"}); err == nil {
		t.Fatalf("expected publish error")
	}
}
