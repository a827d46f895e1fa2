// =============================================================================
// Store Sale Reconciliation - Main Entry Point
// =============================================================================
//
// USAGE:
//   recon reconcile   - Reconcile one business date and write the report
//   recon validate    - Check the configuration and every input
//   recon version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Sources, mapping, reconciliation core, reports
//   - pkg/           : Shared file utilities
//   - configs/       : Example run configuration
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/store-sale-reconciliation/cmd"
)

func main() {
	cmd.Execute()
}
