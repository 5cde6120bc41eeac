package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fuelsensor-sim/internal/admin"
	"fuelsensor-sim/internal/config"
	"fuelsensor-sim/internal/logging"
	"fuelsensor-sim/internal/session"
	"fuelsensor-sim/internal/sim"
)

var (
	simProfile    string
	simConfigPath string
	simSchemaPath string
	simPrintOnly  bool
	simTUI        bool
	simTelemetry  string
	simAdminAddr  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the fuel sensor simulator",
	Long:  "simulate logs in to the ingestion backend and submits synthetic readings for every configured sensor until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simProfile, simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		creds := config.LoadCredentials()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logging.FromContext(ctx)

		writer, err := newWriters(cfg, writerOptions{
			PrintOnly:    simPrintOnly,
			TUI:          simTUI,
			TelemetryLog: simTelemetry,
		})
		if err != nil {
			return err
		}
		var hub *admin.Hub
		if simAdminAddr != "" {
			hub = admin.NewHub(log)
			writer = sim.NewMultiWriter(writer, hub)
		}
		defer writer.Close()

		metrics := sim.NewMetrics()
		simulator := sim.NewSimulator(cfg, session.NewClient(cfg.SessionConfig()), creds, writer, sim.WithMetrics(metrics))

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator, hub, metrics.Registry)
			srv.OnListen = writer.SetAdminStatus
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "addr", simAdminAddr, "err", err)
				}
			}()
		}

		err = simulator.Run(ctx)
		if session.IsAuth(err) {
			// A terminal login failure is a normal end of the run.
			log.Info("simulator exited after login failure", "profile", cfg.Profile)
			return nil
		}
		if err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("fuel sensor simulation stopped")
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simProfile, "profile", config.ProfileFleet, "Run profile (fleet or single)")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "", "Optional YAML overlay for the profile")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema used to validate --config")
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Mirror accepted records to STDOUT only, ignoring sink env vars")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Show a terminal dashboard instead of STDOUT output")
	simulateCmd.Flags().StringVar(&simTelemetry, "telemetry-log", "", "Path to export accepted records, events and state transitions (JSONL)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin HTTP listen address, empty to disable")
}
