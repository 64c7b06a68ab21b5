package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/notebooklm-cli/internal/domain"
)

func newAskCmd(app *app) *cobra.Command {
	var sourceIDs []string
	var conversationID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <notebook-id> <question...>",
		Short: "Ask a question to a notebook's AI",
		Long:  "Asks a question grounded on the notebook's sources. Pass --conversation with the id printed by a previous ask to continue that conversation.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notebookID := domain.NotebookID(args[0])
			question := strings.Join(args[1:], " ")

			srcIDs := make([]domain.SourceID, 0, len(sourceIDs))
			for _, id := range sourceIDs {
				srcIDs = append(srcIDs, domain.SourceID(id))
			}

			var answer domain.Answer
			err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Thinking...",
				func(ctx context.Context) error {
					c, err := app.session.Client(ctx)
					if err != nil {
						return err
					}
					answer, err = c.Ask(ctx, notebookID, question, srcIDs, conversationID)
					return err
				})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd, answer)
			}

			out := cmd.OutOrStdout()
			if answer.Text == "" {
				fmt.Fprintln(out, "No answer came back. The notebook may have no matching sources.")
				return nil
			}
			fmt.Fprintln(out, answer.Text)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "conversation %s, turn %d — pass --conversation %s to follow up\n",
				answer.ConversationID, answer.TurnNumber, answer.ConversationID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sourceIDs, "source", nil, "Ground the question on these source IDs only (repeatable)")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Continue the conversation with this id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the answer as JSON")

	return cmd
}
