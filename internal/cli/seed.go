package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/sprint-ai/internal/database"
	"github.com/ahmednasr/sprint-ai/internal/repository"
)

// seedCmd writes the demo project into DB_PATH.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo project into the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewSQLite(currentConfig.DBPath)
		if err != nil {
			return err
		}
		defer database.CloseSQLite(db)

		if err := repository.Migrate(db); err != nil {
			return err
		}
		projectID, err := repository.Seed(cmd.Context(), db, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "demo project %s has id %d in %s\n",
			repository.DemoProjectKey, projectID, currentConfig.DBPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
