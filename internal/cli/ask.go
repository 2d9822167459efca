package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/sprint-ai/internal/app"
)

// askCmd answers a free-form question from the project's index.
var askCmd = &cobra.Command{
	Use:   "ask <projectId> <question...>",
	Short: "Ask a question about an indexed project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("projectId", args[0])
		if err != nil {
			return err
		}
		question := strings.TrimSpace(strings.Join(args[1:], " "))
		if question == "" {
			return fmt.Errorf("question is required")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			answer, err := a.RAG.Query(cmd.Context(), caller(), projectID, question)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Answer)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
