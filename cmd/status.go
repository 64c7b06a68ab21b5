package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/notebooklm-cli/internal/adapters/render/status"
	"github.com/bnema/notebooklm-cli/internal/application"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the stored session can reach NotebookLM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report application.AuthStatus
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Checking session...",
				func(ctx context.Context) error {
					report = app.session.CheckAuth(ctx)
					return nil
				})
			if err != nil {
				return err
			}

			if asJSON {
				encoded, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("encode status: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return nil
			}

			rendered, err := statusadapter.Render(report, statusadapter.RenderOptions{Now: time.Now()})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")

	return cmd
}
