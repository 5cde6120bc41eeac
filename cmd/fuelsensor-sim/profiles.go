package main

import (
	"github.com/spf13/cobra"

	"fuelsensor-sim/internal/config"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Print the built-in run profiles as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.MarshalProfiles()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
