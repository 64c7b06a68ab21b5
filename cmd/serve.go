package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/notebooklm-cli/internal/adapters/mcp"
	"github.com/bnema/notebooklm-cli/internal/version"
)

func newServeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the notebook tools over MCP on stdio",
		Long:  "Speaks Model Context Protocol on stdin/stdout for use by MCP clients. Logs go to stderr so the protocol stream stays clean.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := mcp.NewServer(app.session, "nlm", version.Version, app.logger)
			return server.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
