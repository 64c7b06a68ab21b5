package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nlm",
		Short:         "NotebookLM from the terminal: query notebooks, manage sources, serve MCP tools",
		Long:          "nlm reuses your browser's Google session to talk to NotebookLM. Log in once with a real Chrome window, then list notebooks, add sources, and ask questions from the terminal or over MCP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newStatusCmd(app),
		newDoctorCmd(app),
		newSetupCmd(app),
		newNotebooksCmd(app),
		newAskCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
