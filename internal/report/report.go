// =============================================================================
// Store Sale Reconciliation - Report Module
// =============================================================================
//
// This module renders a consolidated reconciliation table. Every rendition
// carries the same columns in the same order:
//
//   STORE, <advance ledger>, <new ledger>, <settlements...>, <total>, <difference>
//
// RENDITIONS:
//   - CSV (always written): one row per store, amounts with two decimals
//   - XLSX (workbook.go): the table plus a chart of the non-zero differences
//   - XML (xml.go): the table as a document, for downstream systems
//
// =============================================================================

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
)

// Places is the number of decimals printed for every amount.
const Places = 2

// =============================================================================
// LAYOUT
// =============================================================================

// Layout names the report columns that do not belong to a source.
type Layout struct {
	// StoreColumn is the header of the store column.
	// Default: "STORE"
	StoreColumn string

	// TotalColumn is the header of the received total.
	// Default: "total_CC_recd"
	TotalColumn string

	// DifferenceColumn is the header of the difference.
	// Default: "Difference"
	DifferenceColumn string
}

// DefaultLayout returns the column names used when nothing is configured.
func DefaultLayout() Layout {
	return Layout{
		StoreColumn:      "STORE",
		TotalColumn:      "total_CC_recd",
		DifferenceColumn: "Difference",
	}
}

// withDefaults fills the blank column names.
func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if l.StoreColumn == "" {
		l.StoreColumn = d.StoreColumn
	}
	if l.TotalColumn == "" {
		l.TotalColumn = d.TotalColumn
	}
	if l.DifferenceColumn == "" {
		l.DifferenceColumn = d.DifferenceColumn
	}
	return l
}

// =============================================================================
// REPORT
// =============================================================================

// Report is a reconciliation table ready to be rendered.
type Report struct {
	RunID        string
	BusinessDate recon.BusinessDate
	Table        *recon.Table
	Layout       Layout
}

// New returns a Report for a table.
func New(runID string, date recon.BusinessDate, table *recon.Table, layout Layout) *Report {
	return &Report{
		RunID:        runID,
		BusinessDate: date,
		Table:        table,
		Layout:       layout.withDefaults(),
	}
}

// Header returns the column headers in report order.
func (r *Report) Header() []string {
	header := []string{
		r.Layout.StoreColumn,
		r.Table.LedgerAdvance.Column,
		r.Table.LedgerNew.Column,
	}
	for _, src := range r.Table.Settlements {
		header = append(header, src.Column)
	}
	return append(header, r.Layout.TotalColumn, r.Layout.DifferenceColumn)
}

// amounts returns the amount cells of a row in report order.
func (r *Report) amounts(row recon.ReconciliationRow) []decimal.Decimal {
	values := []decimal.Decimal{row.LedgerAdvance, row.LedgerNew}
	for _, src := range r.Table.Settlements {
		values = append(values, row.Settlement(src.ID))
	}
	return append(values, row.TotalReceived, row.Difference)
}

// Records returns one formatted record per store, sorted by store.
func (r *Report) Records() [][]string {
	records := make([][]string, 0, len(r.Table.Rows))
	for _, row := range r.Table.Rows {
		record := []string{row.Store.String()}
		for _, amount := range r.amounts(row) {
			record = append(record, amount.StringFixed(Places))
		}
		records = append(records, record)
	}
	return records
}

// =============================================================================
// CSV
// =============================================================================

// WriteCSV writes the header and every store row.
func (r *Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(r.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(r.Records()); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// SaveCSV writes the CSV rendition to path.
func (r *Report) SaveCSV(path string) error {
	return saveFile(path, r.WriteCSV)
}

// saveFile creates path and hands it to write.
func saveFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
