// Package cli implements the sprintctl operator commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ahmednasr/sprint-ai/internal/app"
	"github.com/ahmednasr/sprint-ai/internal/config"
	"github.com/ahmednasr/sprint-ai/internal/models"
)

var (
	currentConfig config.Config
	callerEmail   string

	// loadConfig is swapped in tests.
	loadConfig = config.Load
)

var rootCmd = &cobra.Command{
	Use:          "sprintctl",
	Short:        "sprintctl indexes projects and runs the planning assistant from a shell",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		currentConfig = loadConfig()
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&callerEmail, "as", os.Getenv("SPRINTCTL_USER"), "caller email recorded in the logs")
}

func caller() models.Caller {
	return models.Caller{Email: callerEmail}
}

// withApp builds the pipeline for one command and releases it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.Build(ctx, currentConfig)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func parseID(name, s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return uint(n), nil
}
