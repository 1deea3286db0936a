// Package cmd implements the worker's command-line entry points:
// process-job and process-step run one job synchronously for local
// testing or a requeue retry, serve runs the long-lived HTTP trigger
// endpoint. Grounded on the teacher's apps/cli/cmd/root.go persistent-flag
// and PersistentPreRunE composition pattern, generalized from an
// interactive developer CLI to a headless worker process.
package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags; left as a plain default here
// since this engine has no release pipeline baked into the binary itself.
var Version = "dev"

var (
	recordStoreDSN  string
	objectStorePath string
	configVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:     "worker",
	Short:   "Runs lead-magnet workflow jobs: DAG-scheduled step execution, finalization, and delivery",
	Version: Version,
}

// Execute runs the root command, cancelling its context on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&recordStoreDSN, "record-store-dsn", "", "override RECORD_STORE_DSN")
	rootCmd.PersistentFlags().StringVar(&objectStorePath, "object-store-path", "", "local object store root (dev mode; defaults to ./data/objects)")
	rootCmd.PersistentFlags().BoolVarP(&configVerbose, "verbose", "v", false, "log debug-level detail")

	rootCmd.AddCommand(processJobCmd)
	rootCmd.AddCommand(processStepCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}
