package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/mongoetl/internal/core"
	"github.com/JonMunkholm/mongoetl/internal/web"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every pipeline step in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			run, err := a.service.Run(cmd.Context(), core.TriggerCLI)
			printRun(cmd.OutOrStdout(), run)
			return err
		},
	}
}

func newStepCmd() *cobra.Command {
	names := make([]string, len(core.StepOrder))
	for i, id := range core.StepOrder {
		names[i] = string(id)
	}

	return &cobra.Command{
		Use:       "step <" + strings.Join(names, "|") + ">",
		Short:     "Run a single pipeline step",
		Long:      "Run one step as its own run, for schedulers that drive the steps as separate tasks.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseStep(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			run, err := a.service.RunStep(cmd.Context(), id)
			printRun(cmd.OutOrStdout(), run)
			return err
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the MongoDB deployment is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.service.CheckConnection(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s\n", a.service.SourceName())
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for triggering runs and reading history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			server := web.NewServer(a.service, a.cfg.Server)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(a.cfg.Server.Addr())
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if status := a.service.Limiter().Status(); status.Busy {
				slog.Info("waiting for active run", "run_id", status.ActiveRun)
			}
			err = server.Shutdown(shutdownCtx)
			if errors.Is(err, context.DeadlineExceeded) {
				slog.Warn("active run did not finish before shutdown timeout")
			} else if err != nil {
				return err
			}
			return <-errCh
		},
	}
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "Print the registered datasets and their cleaning operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig()
			if err != nil {
				return err
			}
			defer closer.Close()

			out := struct {
				Active   string                   `yaml:"active"`
				Datasets []core.DatasetDefinition `yaml:"datasets"`
			}{
				Active:   cfg.Pipeline.Dataset,
				Datasets: core.All(),
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// printRun writes a one-line-per-step summary of run.
func printRun(w io.Writer, run core.Run) {
	if run.ID == "" {
		return
	}
	fmt.Fprintf(w, "run %s %s\n", run.ID, run.Status)
	for _, st := range run.Steps {
		line := fmt.Sprintf("  %-16s %-9s attempts=%d duration=%s", st.Step, st.Status, st.Attempts, st.Duration().Round(time.Millisecond))
		if st.Message != "" {
			line += "  " + st.Message
		}
		if st.Error != "" {
			line += "  error: " + st.Error
		}
		fmt.Fprintln(w, line)
	}
}
