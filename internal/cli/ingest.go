package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/sprint-ai/internal/app"
)

// ingestCmd rebuilds the chunk index of one project.
var ingestCmd = &cobra.Command{
	Use:   "ingest <projectId>",
	Short: "Summarize, chunk and embed a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("projectId", args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			res, err := a.RAG.Ingest(cmd.Context(), caller(), projectID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project %d indexed: %d chunks\n", res.ProjectID, res.Chunks)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
