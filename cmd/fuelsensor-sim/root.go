package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fuelsensor-sim/internal/logging"
)

var (
	logLevel  string
	logFormat string
	logFile   string

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "fuelsensor-sim",
	Short: "Fuel sensor telemetry simulator",
	Long:  "fuelsensor-sim emits synthetic fuel sensor readings to an ingestion backend and replays recorded telemetry.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, closer, err := logging.NewWithOptions(logging.Options{
			Level:  logLevel,
			Format: logFormat,
			File:   logFile,
			Quiet:  cmd == simulateCmd && simTUI,
		})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		logCloser = closer
		cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file, rotated by size")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(dashboardCmd)
}
