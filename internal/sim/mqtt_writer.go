package sim

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fuelsensor-sim/internal/telemetry"
)

// mqttPublisher is the subset of mqtt.Client used here.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTWriter publishes each record to <prefix>/<sensor_id> and each fuel event
// to <prefix>/<sensor_id>/events.
type MQTTWriter struct {
	client  mqttPublisher
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTTWriter connects to broker (e.g. tcp://localhost:1883).
func NewMQTTWriter(broker, prefix, clientID string) (*MQTTWriter, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return &MQTTWriter{client: c, prefix: strings.TrimRight(prefix, "/"), qos: 1, timeout: 5 * time.Second}, nil
}

func (w *MQTTWriter) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tok := w.client.Publish(topic, w.qos, false, payload)
	if !tok.WaitTimeout(w.timeout) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	return tok.Error()
}

// Write publishes a single record.
func (w *MQTTWriter) Write(rec telemetry.Record) error {
	return w.publish(w.prefix+"/"+rec.SensorID, rec)
}

// WriteEvent publishes a fuel event.
func (w *MQTTWriter) WriteEvent(e telemetry.EventRow) error {
	return w.publish(w.prefix+"/"+e.SensorID+"/events", e)
}

// Close disconnects from the broker.
func (w *MQTTWriter) Close() error {
	w.client.Disconnect(250)
	return nil
}
