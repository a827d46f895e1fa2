// =============================================================================
// Store Sale Reconciliation - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (recon)
//   ├── reconcileCmd (recon reconcile)
//   ├── validateCmd (recon validate)
//   └── versionCmd (recon version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --date, --verbose)
//   2. Loading the run configuration
//   3. Setting up logging
//
// OUTPUT STREAMS:
//   Status messages (JSON lines) go to stdout. Logs go to stderr.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/logging"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the run configuration file.
var cfgFile string

// businessDate overrides the configured business date (YYYY-MM-DD).
var businessDate string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Store Sale Reconciliation - Match ledger collections against settlements",

	Long: `Store Sale Reconciliation compares what the point-of-sale ledgers say each
store collected by card and wallet on one business date with what the card
network, the wallet and the partner gateways actually settled.

Key Features:
  - One YAML file describes every source and its mapping section
  - Source keys (terminal IDs, merchant IDs, supplier IDs) resolved to stores
  - Exact decimal arithmetic, one row per store, zero for missing amounts
  - CSV, XLSX (with a chart of the differences) and XML reports

Example Usage:
  recon reconcile --date 2023-12-28       # Reconcile one business date
  recon reconcile --config ./recon.yaml   # Use a custom configuration file
  recon validate                          # Check every input without reconciling`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
// An interrupt cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"recon.yaml",
		"Path to the run configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&businessDate,
		"date",
		"",
		"Business date to reconcile, YYYY-MM-DD (default: business_date, else yesterday)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// setup loads the configuration, resolves the business date and builds the
// logger shared by the run commands.
func setup() (*config.Config, recon.BusinessDate, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, recon.BusinessDate{}, nil, err
	}

	date, err := resolveDate(businessDate, cfg.BusinessDate, time.Now())
	if err != nil {
		return nil, recon.BusinessDate{}, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFile)
	if err != nil {
		return nil, recon.BusinessDate{}, nil, err
	}

	return cfg, date, logger, nil
}

// resolveDate picks the flag value, then the configured value, then the day
// before now.
func resolveDate(flag, configured string, now time.Time) (recon.BusinessDate, error) {
	switch {
	case flag != "":
		return recon.ParseBusinessDate(flag)
	case configured != "":
		return recon.ParseBusinessDate(configured)
	default:
		return recon.DateOf(now.AddDate(0, 0, -1)), nil
	}
}
