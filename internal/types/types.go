// =============================================================================
// Store Sale Reconciliation - Shared Types
// =============================================================================
//
// This package contains the tabular shape shared by every reader so that the
// CSV reader, the XLSX reader, the validation checks and the source adapters
// agree on one representation without importing each other:
//   - csvparser   (produces Table)
//   - xlsxparser  (produces Table)
//   - validation  (inspects Table headers)
//   - sources     (turns Table rows into SourceRecords)
//
// =============================================================================

package types

// =============================================================================
// TABLE TYPES
// =============================================================================

// Table is a parsed tabular input: one header row and its data rows.
type Table struct {
	// SourceFile is the path the table was read from.
	SourceFile string

	// Sheet is the worksheet name for spreadsheet inputs, empty for CSV.
	Sheet string

	// Headers contains the cleaned column headers in file order.
	Headers []string

	// Rows contains the data rows below the header row.
	Rows []Row
}

// Row represents a single data row.
type Row struct {
	// Number is the 1-based line or row number in the original file.
	// Useful for error reporting.
	Number int

	// Fields maps header name to cell value.
	Fields map[string]string
}

// HasColumn reports whether the table has a header with this exact name.
func (t *Table) HasColumn(name string) bool {
	for _, header := range t.Headers {
		if header == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the requested columns that are not in the header,
// preserving the requested order.
func (t *Table) MissingColumns(names ...string) []string {
	var missing []string
	for _, name := range names {
		if name == "" {
			continue
		}
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
