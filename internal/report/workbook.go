package report

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook rendition.
const (
	TableSheet = "Reconciliation"
	ChartSheet = "Differences"
)

// Series names of the difference chart.
const (
	UnderCollection = "Under-collection"
	OverSettlement  = "Over-settlement"
)

// numberFormat is the built-in "#,##0.00" format.
const numberFormat = 4

// WriteWorkbook writes the XLSX rendition to path.
//
// The first sheet holds the full table and a totals row. When any store has
// a non-zero difference, a second sheet lists those stores with a clustered
// column chart: positive differences in one series, negative in the other.
func (r *Report) WriteWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TableSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	number, err := f.NewStyle(&excelize.Style{NumFmt: numberFormat})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := r.writeTable(f, bold, number); err != nil {
		return err
	}
	if anomalies := r.Table.Anomalies(); len(anomalies) > 0 {
		if err := r.writeChart(f, bold, number); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// writeTable fills the table sheet.
func (r *Report) writeTable(f *excelize.File, bold, number int) error {
	header := r.Header()
	if err := setRow(f, TableSheet, 1, toCells(header)); err != nil {
		return err
	}

	for i, row := range r.Table.Rows {
		cells := []interface{}{row.Store.String()}
		for _, amount := range r.amounts(row) {
			cells = append(cells, amount.InexactFloat64())
		}
		if err := setRow(f, TableSheet, i+2, cells); err != nil {
			return err
		}
	}

	totalRow := len(r.Table.Rows) + 2
	cells := []interface{}{"TOTAL"}
	for _, amount := range r.amounts(r.Table.Totals()) {
		cells = append(cells, amount.InexactFloat64())
	}
	if err := setRow(f, TableSheet, totalRow, cells); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(TableSheet, "B2", fmt.Sprintf("%s%d", last, totalRow), number); err != nil {
		return fmt.Errorf("failed to style amounts: %w", err)
	}
	if err := f.SetCellStyle(TableSheet, "A1", fmt.Sprintf("%s1", last), bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetCellStyle(TableSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("A%d", totalRow), bold); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}
	return f.SetColWidth(TableSheet, "A", last, 18)
}

// writeChart adds the difference sheet and its chart.
func (r *Report) writeChart(f *excelize.File, bold, number int) error {
	if _, err := f.NewSheet(ChartSheet); err != nil {
		return fmt.Errorf("failed to create chart sheet: %w", err)
	}

	header := []interface{}{r.Layout.StoreColumn, UnderCollection, OverSettlement}
	if err := setRow(f, ChartSheet, 1, header); err != nil {
		return err
	}

	anomalies := r.Table.Anomalies()
	for i, row := range anomalies {
		under, over := decimal.Zero, decimal.Zero
		if row.Difference.IsPositive() {
			under = row.Difference
		} else {
			over = row.Difference
		}
		cells := []interface{}{row.Store.String(), under.InexactFloat64(), over.InexactFloat64()}
		if err := setRow(f, ChartSheet, i+2, cells); err != nil {
			return err
		}
	}

	last := len(anomalies) + 1
	if err := f.SetCellStyle(ChartSheet, "B2", fmt.Sprintf("C%d", last), number); err != nil {
		return fmt.Errorf("failed to style amounts: %w", err)
	}
	if err := f.SetCellStyle(ChartSheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(ChartSheet, "A", "C", 18); err != nil {
		return err
	}

	categories := fmt.Sprintf("%s!$A$2:$A$%d", ChartSheet, last)
	series := func(column, color string) excelize.ChartSeries {
		return excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", ChartSheet, column),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", ChartSheet, column, column, last),
			Fill:       excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		}
	}

	chart := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			series("B", "C0504D"),
			series("C", "4F81BD"),
		},
		Title:     []excelize.RichTextRun{{Text: "Differences " + r.BusinessDate.String()}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 960, Height: 480},
	}
	if err := f.AddChart(ChartSheet, "E2", chart); err != nil {
		return fmt.Errorf("failed to add chart: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
