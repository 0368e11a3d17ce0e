// Command tiergatectl is the operator CLI: it dry-runs action files through
// an in-process pipeline and queries the postgres audit trail.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tiergate/internal/platform/logger"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	var log *slog.Logger

	root := &cobra.Command{
		Use:           "tiergatectl",
		Short:         "Operate the tiergate validation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			log = logger.NewWithWriter(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	logFn := func() *slog.Logger { return log }
	root.AddCommand(newValidateCmd(logFn))
	root.AddCommand(newAuditCmd(logFn))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
