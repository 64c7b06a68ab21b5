package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/notebooklm-cli/internal/adapters/browser"
	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

func newDoctorCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the local setup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "nlm doctor")
			fmt.Fprintln(out)

			report := func(ok bool, label, detail string) {
				mark := "ok  "
				if !ok {
					mark = "FAIL"
				}
				fmt.Fprintf(out, "  [%s] %-20s %s\n", mark, label, detail)
			}

			if info, err := os.Stat(app.cfg.DataDir); err != nil {
				report(false, "data directory", app.cfg.DataDir+" does not exist (created on first login)")
			} else if info.Mode().Perm() != config.DirMode {
				report(false, "data directory", fmt.Sprintf("%s has mode %o, want %o", app.cfg.DataDir, info.Mode().Perm(), config.DirMode))
			} else {
				report(true, "data directory", app.cfg.DataDir)
			}

			authPath := app.cfg.AuthFilePath()
			if info, err := os.Stat(authPath); err != nil {
				report(false, "credentials file", "not found; run 'nlm login'")
			} else if info.Mode().Perm() != config.FileMode {
				report(false, "credentials file", fmt.Sprintf("mode %o, want %o", info.Mode().Perm(), config.FileMode))
			} else {
				report(true, "credentials file", authPath)
			}

			creds, err := app.store.Load(cmd.Context())
			switch {
			case errors.Is(err, domain.ErrCredentialsNotFound):
				report(false, "session cookies", "no stored session")
			case err != nil:
				report(false, "session cookies", err.Error())
			case !creds.Usable():
				report(false, "session cookies", "missing: "+strings.Join(creds.MissingCookies(), ", "))
			default:
				report(true, "session cookies", fmt.Sprintf("%d cookies stored", len(creds.Cookies)))
			}

			if path, found := browser.ChromeFound(); found {
				report(true, "chrome", path)
			} else {
				report(false, "chrome", "no Chrome/Chromium found; 'nlm login' needs one")
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "  build label: %s\n", app.cfg.BuildLabel)
			fmt.Fprintf(out, "  base url:    %s\n", app.cfg.BaseURL)
			return nil
		},
	}
}

