// =============================================================================
// Store Sale Reconciliation - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It loads the configuration and
// the reference mapping, then reads every source for the business date,
// reporting every problem found instead of stopping at the first one.
//
// COMMAND USAGE:
//   recon validate [--date YYYY-MM-DD]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/pipeline"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/status"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and every input without reconciling",
	RunE: func(cmd *cobra.Command, args []string) error {
		notifier := status.NewNotifier(cmd.OutOrStdout())

		cfg, date, logger, err := setup()
		if err != nil {
			notifier.Error(validation.Message(err))
			return err
		}
		defer logger.Sync()

		errs := pipeline.New(cfg, date, logger).Check(cmd.Context())
		for _, err := range errs {
			notifier.Error(validation.Message(err))
		}
		if len(errs) > 0 {
			fmt.Fprint(cmd.ErrOrStderr(), validation.FormatErrors(errs))
			return fmt.Errorf("%d input(s) failed validation", len(errs))
		}

		return notifier.Success(fmt.Sprintf("All %d source(s) are readable for %s.", len(cfg.Sources), date))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
