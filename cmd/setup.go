package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSetupCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Write a default config file to edit",
		Long:  "Writes config.toml to the data directory with the current effective settings. Useful when the service rotates its build label and calls start failing.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.cfg.WriteDefaultFile()
			if err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file at %s\n", path)
			return nil
		},
	}
}
