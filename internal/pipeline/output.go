package pipeline

import (
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/report"
	"github.com/ginjaninja78/store-sale-reconciliation/pkg/utils"
)

// Write renders the requested report formats and the run summary into the
// output directory.
//
// RETURNS:
//   - The paths written, summary last.
//   - An error if any file cannot be written.
func (p *Pipeline) Write(res *Result) ([]string, error) {
	if err := utils.EnsureDirectories(p.cfg.OutputDir); err != nil {
		return nil, err
	}

	base := filepath.Join(p.cfg.OutputDir, p.BaseName(res))
	rep := report.New(res.RunID, res.BusinessDate, res.Table, report.Layout{
		TotalColumn:      p.cfg.TotalColumn,
		DifferenceColumn: p.cfg.DifferenceColumn,
	})

	var written []string

	path := base + ".csv"
	if err := rep.SaveCSV(path); err != nil {
		return written, err
	}
	written = append(written, path)

	if p.cfg.WantsFormat(config.FormatXLSX) {
		if len(res.Table.Anomalies()) == 0 {
			p.logger.Info("report: no differences, workbook skipped")
		} else {
			path := base + ".xlsx"
			if err := rep.WriteWorkbook(path); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}

	if p.cfg.WantsFormat(config.FormatXML) {
		path := base + ".xml"
		if err := rep.SaveXML(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	summary := p.Summary(res, written)
	path = base + "_summary.txt"
	if err := utils.WriteSummaryLog(summary, path); err != nil {
		return written, err
	}
	written = append(written, path)

	p.logger.Info("report: written", zap.Strings("files", written))
	return written, nil
}

// BaseName returns the report file name without directory or extension.
func (p *Pipeline) BaseName(res *Result) string {
	return utils.GenerateOutputFileName(p.cfg.ReportName, map[string]string{
		"date": res.BusinessDate.Compact(),
		"uuid": res.RunID,
	})
}

// Summary builds the run summary of a result.
func (p *Pipeline) Summary(res *Result, outputs []string) utils.RunSummary {
	end := res.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	summary := utils.RunSummary{
		RunID:            res.RunID,
		BusinessDate:     res.BusinessDate.String(),
		StartTime:        res.StartTime,
		EndTime:          end,
		Rows:             len(res.Table.Rows),
		Anomalies:        len(res.Table.Anomalies()),
		Difference:       decimal.Zero,
		MappingConflicts: len(res.Conflicts),
		Outputs:          outputs,
	}
	for _, row := range res.Table.Rows {
		summary.Difference = summary.Difference.Add(row.Difference)
	}

	for _, agg := range res.Aggregates {
		summary.Sources = append(summary.Sources, utils.SourceSummary{
			ID:          agg.Source.ID,
			Role:        agg.Source.Role.String(),
			Column:      agg.Source.Column,
			Records:     agg.Records(),
			Stores:      len(agg.Rows),
			Total:       agg.Total(),
			Unmapped:    leftover(agg.Unmapped),
			Unconfirmed: leftover(agg.Unconfirmed),
			Excluded:    leftover(agg.Excluded),
		})
	}
	return summary
}

func leftover(b recon.Bucket) utils.Leftover {
	return utils.Leftover{Records: b.Records, Amount: b.Amount, NativeKeys: b.NativeKeys}
}
