// Command mongoetl extracts a MongoDB collection to CSV, cleans it, checks
// its quality, loads it into a target collection and emails the outcome.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/mongoetl/internal/core"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	envFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err, "code", core.MapError(err).Code)
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mongoetl",
		Short: "MongoDB extract, clean and load pipeline",
		Long: `mongoetl copies a MongoDB collection into a staging CSV, applies the
dataset's cleaning rules, audits missing values, replaces the target
collection with the cleaned records and emails a summary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")

	root.AddCommand(
		newRunCmd(),
		newStepCmd(),
		newCheckCmd(),
		newServeCmd(),
		newDatasetsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "mongoetl %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)
	return root
}
