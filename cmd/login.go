package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/notebooklm-cli/internal/adapters/browser"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

func newLoginCmd(app *app) *cobra.Command {
	var chromePath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open a Chrome window, log in to Google, and capture the session",
		Long:  "Opens a visible Chrome window on NotebookLM. Finish logging in there; the session cookies and tokens are captured automatically and stored locally.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var creds domain.Credentials
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Waiting for login in the browser window...",
				func(ctx context.Context) error {
					var loginErr error
					creds, loginErr = app.session.Login(ctx, browser.Options{
						ChromePath: chromePath,
						Timeout:    timeout,
					})
					return loginErr
				})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in. Captured %d cookies.\n", len(creds.Cookies))
			return nil
		},
	}

	cmd.Flags().StringVar(&chromePath, "chrome", "", "Path to a Chrome/Chromium binary (default: autodetect)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the login to finish")

	return cmd
}
