package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/sprint-ai/internal/app"
	"github.com/ahmednasr/sprint-ai/internal/models"
)

var suggestSprintID uint

// suggestCmd proposes backlog tasks for a sprint.
var suggestCmd = &cobra.Command{
	Use:   "suggest <projectId>",
	Short: "Suggest backlog tasks that fit a sprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("projectId", args[0])
		if err != nil {
			return err
		}
		req := models.SuggestSprintRequest{ProjectID: projectID}
		if cmd.Flags().Changed("sprint") {
			id := suggestSprintID
			req.SprintID = &id
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			res, err := a.RAG.SuggestSprint(cmd.Context(), caller(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "capacity: %dh\n", res.Capacity)
			if len(res.TaskKeys) == 0 {
				fmt.Fprintln(out, "no tasks suggested")
				return nil
			}
			fmt.Fprintf(out, "tasks: %s\n", strings.Join(res.TaskKeys, ", "))
			return nil
		})
	},
}

func init() {
	suggestCmd.Flags().UintVar(&suggestSprintID, "sprint", 0, "sprint whose capacity bounds the suggestion")
	rootCmd.AddCommand(suggestCmd)
}
