// =============================================================================
// Store Sale Reconciliation - Reconcile Command
// =============================================================================
//
// This file defines the 'reconcile' command, which runs the whole
// reconciliation for one business date and writes the report.
//
// COMMAND USAGE:
//   recon reconcile [flags]
//
// FLAGS:
//   --date        : Business date to reconcile (YYYY-MM-DD)
//   --output-dir  : Override the configured output directory
//   --dry-run     : Reconcile without writing any report file
//
// STATUS:
//   One JSON line is printed on stdout: {"severity":"success",...} when the
//   report was written, {"severity":"error",...} otherwise. The process exits
//   with status 1 on error, and no report file is written.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/pipeline"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/status"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun reconciles without writing output files.
var dryRun bool

// outputDir overrides the configured output directory.
var outputDir string

// =============================================================================
// RECONCILE COMMAND DEFINITION
// =============================================================================

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile one business date and write the report",
	Long: `The reconcile command reads every configured source for the business date,
resolves each source's keys to stores through the reference mapping, and
writes one row per store with the ledger amounts, the settled amounts, the
total received and the difference.

Sources are read concurrently. Any missing column, unreadable value or
unreadable file stops the run before a report is written.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Reconcile without writing output files",
	)

	reconcileCmd.Flags().StringVar(
		&outputDir,
		"output-dir",
		"",
		"Directory for the report files (overrides output_dir)",
	)
}

// =============================================================================
// MAIN RECONCILIATION FUNCTION
// =============================================================================

func runReconcile(cmd *cobra.Command) error {
	notifier := status.NewNotifier(cmd.OutOrStdout())
	fail := func(err error) error {
		notifier.Error(validation.Message(err))
		return err
	}

	cfg, date, logger, err := setup()
	if err != nil {
		return fail(err)
	}
	defer logger.Sync()

	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	p := pipeline.New(cfg, date, logger)
	logger.Info("reconcile: starting",
		zap.String("run_id", p.RunID()),
		zap.String("business_date", date.String()),
		zap.Int("sources", len(cfg.Sources)))

	res, err := p.Run(cmd.Context())
	if err != nil {
		logger.Error("reconcile: failed", zap.String("run_id", p.RunID()), zap.Error(err))
		return fail(err)
	}

	differences := len(res.Table.Anomalies())

	if dryRun {
		return notifier.Success(fmt.Sprintf("Dry run for %s: %d store(s), %d with a difference.",
			date, len(res.Table.Rows), differences))
	}

	written, err := p.Write(res)
	if err != nil {
		return fail(err)
	}

	return notifier.Success(fmt.Sprintf("Reconciliation for %s written to %s: %d store(s), %d with a difference.",
		date, written[0], len(res.Table.Rows), differences))
}
