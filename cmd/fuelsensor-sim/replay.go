package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fuelsensor-sim/internal/config"
	"fuelsensor-sim/internal/logging"
	"fuelsensor-sim/internal/session"
	"fuelsensor-sim/internal/sim"
)

var (
	replayInput   string
	replaySpeed   float64
	replayIngest  bool
	replayProfile string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log file",
	Long:  "replay feeds records from a --telemetry-log file back to the ingestion endpoint or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(replayProfile, "", "")
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var writer sim.TelemetryWriter
		if replayIngest {
			iw := sim.NewIngestWriter(ctx, session.NewClient(cfg.SessionConfig()), config.LoadCredentials())
			defer iw.Close()
			writer = iw
		} else {
			writer = sim.NewJSONStdoutWriter()
		}
		n, err := sim.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		logging.FromContext(ctx).Info("replay finished", "records", n, "input", replayInput)
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier, 0 for no delay")
	replayCmd.Flags().BoolVar(&replayIngest, "ingest", false, "Submit records to the ingestion endpoint instead of printing them")
	replayCmd.Flags().StringVar(&replayProfile, "profile", config.ProfileFleet, "Profile whose endpoint receives replayed records")
	replayCmd.MarkFlagRequired("input")
}
