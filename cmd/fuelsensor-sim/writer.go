package main

import (
	"fmt"
	"os"

	"fuelsensor-sim/internal/config"
	"fuelsensor-sim/internal/sim"
)

type writerOptions struct {
	PrintOnly    bool
	TUI          bool
	TelemetryLog string
}

// newWriters assembles the mirrors for accepted records from flags and env
// vars. STDOUT (or the dashboard) is used when no sink is configured.
func newWriters(cfg *config.SimulationConfig, opts writerOptions) (*sim.MultiWriter, error) {
	var sinks []sim.TelemetryWriter
	closeAll := func() {
		_ = sim.NewMultiWriter(sinks...).Close()
	}
	if !opts.PrintOnly {
		var err error
		sinks, err = sinkWriters()
		if err != nil {
			closeAll()
			return nil, err
		}
	}
	switch {
	case opts.TUI:
		sinks = append(sinks, sim.NewTUIWriter(cfg))
	case len(sinks) == 0:
		sinks = append(sinks, sim.NewStdoutWriter(cfg))
	}
	if opts.TelemetryLog != "" {
		fw, err := sim.NewFileWriter(opts.TelemetryLog, opts.TelemetryLog+".events", opts.TelemetryLog+".state")
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, fw)
	}
	return sim.NewMultiWriter(sinks...), nil
}

// sinkWriters connects the external sinks named by the environment.
func sinkWriters() ([]sim.TelemetryWriter, error) {
	var out []sim.TelemetryWriter
	fail := func(err error) ([]sim.TelemetryWriter, error) {
		_ = sim.NewMultiWriter(out...).Close()
		return nil, err
	}
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		w, err := sim.NewGreptimeDBWriter(endpoint, envOr("GREPTIMEDB_DATABASE", "public"),
			os.Getenv("FUEL_EVENT_TABLE"), os.Getenv("SIMULATION_STATE_TABLE"))
		if err != nil {
			return fail(fmt.Errorf("greptimedb writer: %w", err))
		}
		out = append(out, w)
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		out = append(out, sim.NewKafkaWriter(brokers, envOr("KAFKA_TOPIC", "fuel-telemetry")))
	}
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		w, err := sim.NewMQTTWriter(broker, envOr("MQTT_TOPIC", "fuelsensor"), envOr("MQTT_CLIENT_ID", "fuelsensor-sim"))
		if err != nil {
			return fail(fmt.Errorf("mqtt writer: %w", err))
		}
		out = append(out, w)
	}
	return out, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
