// =============================================================================
// Store Sale Reconciliation - XLSX Parser
// =============================================================================
//
// This module reads worksheets out of spreadsheet inputs: the reference
// mapping workbook (one section per source, selected by name or position) and
// gateway extracts delivered as workbooks.
//
// SHEET SELECTION:
//   A sheet is picked by name when one is configured, otherwise by its 0-based
//   position in the workbook. The header row is 1-based; rows above it are
//   skipped, rows below it become types.Rows.
//
// Only the OOXML formats excelize understands are accepted (.xlsx, .xlsm,
// .xltx, .xltm). Binary .xlsb workbooks must be re-saved as .xlsx.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/types"
)

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook is an open spreadsheet file.
type Workbook struct {
	path string
	file *excelize.File
}

// Open opens a workbook for reading.
//
// PARAMETERS:
//   - path: The path to the workbook.
//
// RETURNS:
//   - A pointer to the open Workbook. Close it when done.
//   - An error if the file cannot be opened.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{path: path, file: f}, nil
}

// Close closes the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// SheetName resolves a sheet selection to a sheet name.
func (w *Workbook) SheetName(sel config.SheetSettings) (string, error) {
	sheets := w.file.GetSheetList()

	if sel.Name != "" {
		for _, name := range sheets {
			if name == sel.Name {
				return name, nil
			}
		}
		return "", fmt.Errorf("workbook has no sheet named %q", sel.Name)
	}

	if sel.Index < 0 || sel.Index >= len(sheets) {
		return "", fmt.Errorf("workbook has %d sheets, sheet #%d requested", len(sheets), sel.Index)
	}
	return sheets[sel.Index], nil
}

// ReadSheet reads the selected sheet as a table.
//
// PARSING PROCESS:
//   1. Resolve the sheet by name or position
//   2. Read every row (formatted text unless RawValues is set)
//   3. Take the header from HeaderRow and skip the rows above it
//   4. Convert each non-empty row below it to a map of header -> value
func (w *Workbook) ReadSheet(sel config.SheetSettings) (*types.Table, error) {
	sheet, err := w.SheetName(sel)
	if err != nil {
		return nil, err
	}

	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: sel.RawValues})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	headerRow := sel.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	if len(rows) < headerRow {
		return nil, fmt.Errorf("sheet %q ends before header row %d", sheet, headerRow)
	}

	headers := cleanHeaders(rows[headerRow-1])
	table := &types.Table{
		SourceFile: w.path,
		Sheet:      sheet,
		Headers:    headers,
	}

	for i := headerRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(row) {
				fields[header] = strings.TrimSpace(row[col])
			} else {
				fields[header] = ""
			}
		}

		table.Rows = append(table.Rows, types.Row{Number: i + 1, Fields: fields})
	}

	return table, nil
}

// ReadSheet opens a workbook, reads one sheet and closes it again.
func ReadSheet(path string, sel config.SheetSettings) (*types.Table, error) {
	wb, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	return wb.ReadSheet(sel)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// cleanHeaders trims headers and names blank ones by column letter.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				name = fmt.Sprintf("%d", i+1)
			}
			header = "Column_" + name
		}
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
