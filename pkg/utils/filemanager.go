// =============================================================================
// Store Sale Reconciliation - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the report writer:
//   - Directory management
//   - Report file naming
//   - Run summary generation
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates every directory that does not exist yet.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName expands the placeholders of a report name.
//
// PARAMETERS:
//   - format: The name template, e.g. "reconciliation_{date}".
//   - params: Extra placeholders. A "date" or "uuid" entry overrides the
//     generated value.
//
// PLACEHOLDERS:
//   {uuid}      - A fresh UUID
//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//   {date}      - Current date (YYYYMMDD)
//   {time}      - Current time (HHMMSS)
//
// RETURNS:
//   - The expanded name, without extension.
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// Leftover describes amounts a source could not attribute to a store.
type Leftover struct {
	Records    int
	Amount     decimal.Decimal
	NativeKeys []string
}

// SourceSummary describes one source of a run.
type SourceSummary struct {
	ID      string
	Role    string
	Column  string
	Records int
	Stores  int
	Total   decimal.Decimal

	Unmapped    Leftover
	Unconfirmed Leftover
	Excluded    Leftover
}

// RunSummary contains the outcome of a reconciliation run.
type RunSummary struct {
	RunID        string
	BusinessDate string
	StartTime    time.Time
	EndTime      time.Time

	// Rows is the number of stores in the report; Anomalies the number of
	// them with a non-zero difference.
	Rows      int
	Anomalies int

	// Difference is the sum of every store's difference.
	Difference decimal.Decimal

	// MappingConflicts counts duplicate mapping rows that named another store.
	MappingConflicts int

	Sources []SourceSummary

	// Outputs lists the report files written.
	Outputs []string
}

// WriteSummaryLog writes a human-readable run summary to path.
func WriteSummaryLog(summary RunSummary, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Store Sale Reconciliation - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Business Date:  %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Stores:             %d\n"+
		"  Non-zero rows:      %d\n"+
		"  Total difference:   %s\n"+
		"  Mapping conflicts:  %d\n\n",
		summary.RunID,
		summary.BusinessDate,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.Rows,
		summary.Anomalies,
		summary.Difference.StringFixed(2),
		summary.MappingConflicts)

	if len(summary.Sources) > 0 {
		writer.WriteString("Sources:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, src := range summary.Sources {
			fmt.Fprintf(writer, "  Source:       %s (%s)\n", src.ID, src.Role)
			fmt.Fprintf(writer, "  Column:       %s\n", src.Column)
			fmt.Fprintf(writer, "  Records:      %d\n", src.Records)
			fmt.Fprintf(writer, "  Stores:       %d\n", src.Stores)
			fmt.Fprintf(writer, "  Total:        %s\n", src.Total.StringFixed(2))
			writeLeftover(writer, "Unmapped", src.Unmapped)
			writeLeftover(writer, "Unconfirmed", src.Unconfirmed)
			writeLeftover(writer, "Excluded", src.Excluded)
			writer.WriteString("\n")
		}
	}

	if len(summary.Outputs) > 0 {
		writer.WriteString("Outputs:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		outputs := append([]string(nil), summary.Outputs...)
		sort.Strings(outputs)
		for _, output := range outputs {
			fmt.Fprintf(writer, "  %s\n", output)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary: %w", err)
	}
	return nil
}

// writeLeftover writes one leftover line, or nothing when it is empty.
func writeLeftover(writer *bufio.Writer, label string, leftover Leftover) {
	if leftover.Records == 0 {
		return
	}
	fmt.Fprintf(writer, "  %-13s %d record(s), %s: %s\n",
		label+":",
		leftover.Records,
		leftover.Amount.StringFixed(2),
		strings.Join(leftover.NativeKeys, ", "))
}
