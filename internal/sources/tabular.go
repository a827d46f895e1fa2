package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/csvparser"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/normalize"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/types"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/xlsxparser"
)

// Accepted file extensions per input format.
var (
	csvExtensions  = []string{".csv", ".txt", ".tsv"}
	xlsxExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}
)

// tabular reads a delimited file or a worksheet.
type tabular struct {
	source      recon.Source
	cfg         config.SourceConfig
	date        recon.BusinessDate
	transformer *normalize.Transformer
	logger      *zap.Logger
}

func newTabular(src recon.Source, cfg config.SourceConfig, date recon.BusinessDate, logger *zap.Logger) (*tabular, error) {
	transformer, err := normalize.NewTransformer(cfg.TransformationRules)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.ID, err)
	}
	return &tabular{source: src, cfg: cfg, date: date, transformer: transformer, logger: logger}, nil
}

// Source implements Adapter.
func (a *tabular) Source() recon.Source {
	return a.source
}

// Fetch implements Adapter.
//
// PROCESS:
//   1. Check the file type and read the table
//   2. Check that every configured column exists
//   3. Normalize each row, apply the filters and the business date
//   4. Sum the amount columns into one signed record per row
func (a *tabular) Fetch(ctx context.Context) ([]recon.SourceRecord, error) {
	table, err := a.read()
	if err != nil {
		return nil, err
	}

	if err := validation.RequireColumns(a.cfg.ID, table, a.requiredColumns()...); err != nil {
		return nil, err
	}

	records := make([]recon.SourceRecord, 0, len(table.Rows))
	var filtered, otherDates, undated int

	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := a.transformer.Apply(row.Fields); err != nil {
			return nil, &validation.Error{
				Kind:    validation.KindParse,
				Source:  a.cfg.ID,
				File:    table.SourceFile,
				Row:     row.Number,
				Message: fmt.Sprintf("Cannot normalize row %d of %s.", row.Number, table.SourceFile),
				Err:     err,
			}
		}

		if !a.keep(row) {
			filtered++
			continue
		}

		if a.cfg.DateColumn != "" {
			raw := row.Fields[a.cfg.DateColumn]
			if isBlank(raw) {
				undated++
				continue
			}
			when, err := validation.ParseDate(raw, a.cfg.DateLayouts)
			if err != nil {
				return nil, validation.ParseFailure(a.cfg.ID, table.SourceFile, row.Number, a.cfg.DateColumn, raw, err)
			}
			if !a.date.Contains(when) {
				otherDates++
				continue
			}
		}

		amount, err := a.amount(table, row)
		if err != nil {
			return nil, err
		}

		records = append(records, recon.SourceRecord{
			SourceID:     a.cfg.ID,
			NativeKey:    row.Fields[a.cfg.KeyColumn],
			Amount:       amount,
			BusinessDate: a.date,
		})
	}

	a.logger.Info("sources: fetched",
		zap.String("file", table.SourceFile),
		zap.Int("rows", len(table.Rows)),
		zap.Int("records", len(records)),
		zap.Int("filtered", filtered),
		zap.Int("other_dates", otherDates),
		zap.Int("undated", undated))

	return records, nil
}

// read checks the file type and parses the table.
func (a *tabular) read() (*types.Table, error) {
	path := a.cfg.Path

	var table *types.Table
	var err error

	switch a.cfg.Format {
	case config.FormatCSV:
		if verr := validation.RequireExtension(a.cfg.ID, path, csvExtensions...); verr != nil {
			return nil, verr
		}
		table, err = csvparser.Parse(path, a.cfg.CSVSettings)
	case config.FormatXLSX:
		if verr := validation.RequireExtension(a.cfg.ID, path, xlsxExtensions...); verr != nil {
			return nil, verr
		}
		table, err = xlsxparser.ReadSheet(path, a.cfg.Sheet)
	default:
		allowed := append(append([]string(nil), csvExtensions...), xlsxExtensions...)
		return nil, validation.WrongExtension(a.cfg.ID, path, allowed)
	}

	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, validation.IOFailure(a.cfg.ID, path, err)
		}
		return nil, &validation.Error{
			Kind:    validation.KindShape,
			Source:  a.cfg.ID,
			File:    path,
			Message: fmt.Sprintf("Cannot read the header of %s.", path),
			Err:     err,
		}
	}
	return table, nil
}

// requiredColumns lists every column the adapter reads.
func (a *tabular) requiredColumns() []string {
	columns := []string{a.cfg.KeyColumn}
	columns = append(columns, a.cfg.AmountColumns...)
	if a.cfg.DateColumn != "" {
		columns = append(columns, a.cfg.DateColumn)
	}
	for _, f := range a.cfg.Filters {
		columns = append(columns, f.Column)
	}
	return columns
}

// keep reports whether a row passes every filter.
func (a *tabular) keep(row types.Row) bool {
	for _, f := range a.cfg.Filters {
		if !f.Match(row.Fields[f.Column]) {
			return false
		}
	}
	return true
}

// amount sums the amount columns of a row. Blank cells count as zero.
func (a *tabular) amount(table *types.Table, row types.Row) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, column := range a.cfg.AmountColumns {
		raw := row.Fields[column]
		value, err := validation.ParseAmount(raw)
		if err != nil {
			return decimal.Zero, validation.ParseFailure(a.cfg.ID, table.SourceFile, row.Number, column, raw, err)
		}
		total = total.Add(value)
	}
	return total, nil
}

// isBlank reports whether a cell holds nothing but spaces.
func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
