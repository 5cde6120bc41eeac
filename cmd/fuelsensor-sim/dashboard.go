package main

import (
	"github.com/spf13/cobra"

	"fuelsensor-sim/internal/dashboard"
	"fuelsensor-sim/internal/logging"
	"fuelsensor-sim/internal/telemetry"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard for the GreptimeDB tables",
	Long:  "dashboard renders Grafana JSON for the record, event and state tables. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		records := telemetry.RecordTableName
		tables := dashboard.Tables{
			Records: records,
			Events:  envOr("FUEL_EVENT_TABLE", records+"_events"),
			State:   envOr("SIMULATION_STATE_TABLE", records+"_state"),
		}
		if err := dashboard.Render(dashboardOut, tables); err != nil {
			return err
		}
		logging.FromContext(cmd.Context()).Info("dashboard rendered", "dir", dashboardOut, "records", tables.Records)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory for rendered dashboards")
}
