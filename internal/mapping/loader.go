// =============================================================================
// Store Sale Reconciliation - Reference Mapping Loader
// =============================================================================
//
// This module builds the run's store identity resolver from the reference
// mapping. Each source has one section:
//   - a worksheet of the mapping workbook (native key column, store column)
//   - or a query against the ledger database (the ledger's site table)
//   - or nothing at all, for sources whose key already is the store name
//
// Sections are read once, before any source is fetched, and the resolver is
// read-only afterwards.
//
// =============================================================================

package mapping

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/ledgerdb"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/xlsxparser"
)

// Section describes what was loaded for one source.
type Section struct {
	SourceID string
	Mode     recon.MatchMode
	Origin   string
	Rows     int
}

// Result is the loaded reference mapping.
type Result struct {
	Resolver *recon.Resolver
	Sections []Section
}

// Loader reads mapping sections.
type Loader struct {
	cfg    *config.Config
	ledger *ledgerdb.Store
	logger *zap.Logger
}

// NewLoader returns a Loader. ledger may be nil when no section uses a query.
func NewLoader(cfg *config.Config, ledger *ledgerdb.Store, logger *zap.Logger) *Loader {
	return &Loader{cfg: cfg, ledger: ledger, logger: logger}
}

// Load reads every source's section and builds the resolver.
//
// RETURNS:
//   - The resolver and a description of each section.
//   - A *validation.Error when a workbook, sheet or column is missing.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	workbooks := make(map[string]*xlsxparser.Workbook)
	defer func() {
		for _, wb := range workbooks {
			wb.Close()
		}
	}()

	var entries []recon.MappingEntry
	modes := make(map[string]recon.MatchMode)
	result := &Result{}

	for _, src := range l.cfg.Sources {
		mode, ok := recon.ParseMatchMode(src.Mapping.Match)
		if !ok {
			return nil, fmt.Errorf("source %s: unknown mapping match %q", src.ID, src.Mapping.Match)
		}
		modes[src.ID] = mode

		section := Section{SourceID: src.ID, Mode: mode}

		var loaded []recon.MappingEntry
		var err error
		switch {
		case mode == recon.MatchIdentity:
			section.Origin = "identity"
		case src.Mapping.Query != "":
			section.Origin = "ledger query"
			loaded, err = l.loadQuery(ctx, src)
		default:
			file := l.cfg.MappingFileFor(src)
			section.Origin = fmt.Sprintf("%s %s", file, src.Mapping.Sheet.Label())
			loaded, err = l.loadSheet(workbooks, file, src)
		}
		if err != nil {
			return nil, err
		}

		section.Rows = len(loaded)
		entries = append(entries, loaded...)
		result.Sections = append(result.Sections, section)

		l.logger.Debug("mapping: section loaded",
			zap.String("source", src.ID),
			zap.String("origin", section.Origin),
			zap.String("match", mode.String()),
			zap.Int("rows", section.Rows))
	}

	result.Resolver = recon.NewResolver(entries, modes)

	for _, c := range result.Resolver.Conflicts() {
		l.logger.Warn("mapping: conflicting duplicate ignored",
			zap.String("source", c.SourceID),
			zap.String("native_key", c.NativeKey),
			zap.String("kept", c.Kept.String()),
			zap.String("ignored", c.Ignored.String()))
	}
	l.logger.Info("mapping: loaded",
		zap.Int("entries", len(entries)),
		zap.Int("duplicates", result.Resolver.Duplicates()),
		zap.Int("conflicts", len(result.Resolver.Conflicts())),
		zap.Int("skipped", result.Resolver.Skipped()))

	return result, nil
}

// loadSheet reads one worksheet section of a mapping workbook.
func (l *Loader) loadSheet(workbooks map[string]*xlsxparser.Workbook, file string, src config.SourceConfig) ([]recon.MappingEntry, error) {
	wb, ok := workbooks[file]
	if !ok {
		if err := validation.RequireExtension(src.ID, file, ".xlsx", ".xlsm", ".xltx", ".xltm"); err != nil {
			return nil, err
		}
		var err error
		wb, err = xlsxparser.Open(file)
		if err != nil {
			return nil, validation.IOFailure(src.ID, file, err)
		}
		workbooks[file] = wb
	}

	table, err := wb.ReadSheet(src.Mapping.Sheet)
	if err != nil {
		return nil, &validation.Error{
			Kind:    validation.KindShape,
			Source:  src.ID,
			File:    file,
			Message: fmt.Sprintf("Mapping %s of %s cannot be read.", src.Mapping.Sheet.Label(), file),
			Err:     err,
		}
	}

	if err := validation.RequireColumns(src.ID, table, src.Mapping.KeyColumn, src.Mapping.StoreColumn); err != nil {
		return nil, err
	}

	entries := make([]recon.MappingEntry, 0, len(table.Rows))
	for _, row := range table.Rows {
		entries = append(entries, recon.MappingEntry{
			SourceID:  src.ID,
			NativeKey: row.Fields[src.Mapping.KeyColumn],
			Store:     row.Fields[src.Mapping.StoreColumn],
		})
	}
	return entries, nil
}

// loadQuery reads a section from the ledger database.
func (l *Loader) loadQuery(ctx context.Context, src config.SourceConfig) ([]recon.MappingEntry, error) {
	if l.ledger == nil {
		return nil, fmt.Errorf("source %s: mapping query without a ledger database", src.ID)
	}

	pairs, err := l.ledger.Pairs(ctx, src.Mapping.Query)
	if err != nil {
		return nil, validation.IOFailure(src.ID, "ledger database", err)
	}

	entries := make([]recon.MappingEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, recon.MappingEntry{SourceID: src.ID, NativeKey: p.Key, Store: p.Value})
	}
	return entries, nil
}
