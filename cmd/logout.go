package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("delete stored session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out. Run 'nlm login' to authenticate again.")
			return nil
		},
	}
}
