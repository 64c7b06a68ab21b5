package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	statusadapter "github.com/bnema/notebooklm-cli/internal/adapters/render/status"
	"github.com/bnema/notebooklm-cli/internal/domain"
)

func newNotebooksCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "notebooks",
		Short: "List your notebooks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var notebooks []domain.Notebook
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching notebooks...",
				func(ctx context.Context) error {
					c, err := app.session.Client(ctx)
					if err != nil {
						return err
					}
					notebooks, err = c.ListNotebooks(ctx)
					return err
				})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd, notebooks)
			}

			fmt.Fprintln(cmd.OutOrStdout(), statusadapter.RenderNotebooks(notebooks, statusadapter.RenderOptions{Now: time.Now()}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print notebooks as JSON")
	cmd.AddCommand(newNotebookSourcesCmd(app), newNotebookAddCmd(app))

	return cmd
}

func newNotebookSourcesCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sources <notebook-id>",
		Short: "List the sources of a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sources []domain.Source
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching sources...",
				func(ctx context.Context) error {
					c, err := app.session.Client(ctx)
					if err != nil {
						return err
					}
					sources, err = c.ListSources(ctx, domain.NotebookID(args[0]))
					return err
				})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd, sources)
			}

			fmt.Fprintln(cmd.OutOrStdout(), statusadapter.RenderSources(sources))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sources as JSON")

	return cmd
}

func newNotebookAddCmd(app *app) *cobra.Command {
	var title string
	var text string

	cmd := &cobra.Command{
		Use:   "add <notebook-id> [url]",
		Short: "Add a URL or pasted text as a source",
		Long:  "With a URL argument the page (or YouTube video) is fetched and indexed by NotebookLM. With --text, the given text is added instead.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notebookID := domain.NotebookID(args[0])
			if len(args) == 1 && text == "" {
				return fmt.Errorf("pass a url argument or --text")
			}

			var added domain.AddedSource
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Adding source (can take a while)...",
				func(ctx context.Context) error {
					c, err := app.session.Client(ctx)
					if err != nil {
						return err
					}
					if len(args) == 2 {
						added, err = c.AddURLSource(ctx, notebookID, args[1])
					} else {
						added, err = c.AddTextSource(ctx, notebookID, title, text)
					}
					return err
				})
			if err != nil {
				return err
			}

			if !added.Confirmed {
				fmt.Fprintln(cmd.OutOrStdout(), "Timed out waiting for confirmation; the source may still appear in the notebook.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s)\n", added.Title, added.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title for a pasted-text source")
	cmd.Flags().StringVar(&text, "text", "", "Add this text instead of a URL")

	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
