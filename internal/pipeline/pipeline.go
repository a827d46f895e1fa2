// =============================================================================
// Store Sale Reconciliation - Pipeline Module
// =============================================================================
//
// This module orchestrates one reconciliation run, from the reference mapping
// to the consolidated table.
//
// RECONCILIATION PIPELINE:
//   1. Connect to the ledger database (when configured)
//   2. Load the reference mapping and build the store resolver
//   3. Build one adapter per configured source
//   4. Fetch every source concurrently
//   5. Aggregate each source by canonical store
//   6. Consolidate the aggregates and compute the differences
//
// CONCURRENCY:
//   Only step 4 runs concurrently. Any adapter error cancels the others and
//   aborts the run; nothing is aggregated from a partial fetch. The resolver
//   is built before the fan-out and only read afterwards.
//
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/ledgerdb"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/mapping"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/sources"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a successful run.
type Result struct {
	// RunID identifies the run in logs, file names and the summary.
	RunID string

	BusinessDate recon.BusinessDate

	StartTime time.Time
	EndTime   time.Time

	// Table is the consolidated reconciliation.
	Table *recon.Table

	// Aggregates holds one entry per configured source, in config order.
	Aggregates []*recon.SourceAggregates

	// Sections describes the mapping section of each source.
	Sections []mapping.Section

	// Conflicts lists duplicate mapping rows that were ignored.
	Conflicts []recon.Conflict
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline runs a configured reconciliation for one business date.
type Pipeline struct {
	cfg    *config.Config
	date   recon.BusinessDate
	runID  string
	logger *zap.Logger
}

// New creates a pipeline with a fresh run ID.
//
// PARAMETERS:
//   - cfg: The validated run configuration.
//   - date: The business date; it takes precedence over cfg.BusinessDate.
//   - logger: The base logger. nil disables logging.
func New(cfg *config.Config, date recon.BusinessDate, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	return &Pipeline{
		cfg:   cfg,
		date:  date,
		runID: runID,
		logger: logger.With(
			zap.String("run_id", runID),
			zap.String("business_date", date.String())),
	}
}

// RunID returns the identifier of this run.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes the reconciliation.
//
// RETURNS:
//   - The consolidated result.
//   - The first error met. Input problems are *validation.Error values.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: p.runID, BusinessDate: p.date, StartTime: time.Now()}

	// =========================================================================
	// STEP 1: LEDGER DATABASE
	// =========================================================================
	ledger, err := p.openLedger()
	if err != nil {
		return nil, err
	}
	if ledger != nil {
		defer ledger.Close()
	}

	// =========================================================================
	// STEP 2: REFERENCE MAPPING
	// =========================================================================
	mapped, err := mapping.NewLoader(p.cfg, ledger, p.logger).Load(ctx)
	if err != nil {
		return nil, err
	}
	result.Sections = mapped.Sections
	result.Conflicts = mapped.Resolver.Conflicts()

	// =========================================================================
	// STEP 3: ADAPTERS
	// =========================================================================
	adapters, err := p.adapters(ledger)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 4: FETCH
	// =========================================================================
	records, err := p.fetch(ctx, adapters)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 5: AGGREGATE
	// =========================================================================
	result.Aggregates, err = p.aggregate(adapters, records, mapped.Resolver)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 6: CONSOLIDATE
	// =========================================================================
	result.Table = consolidate(result.Aggregates)
	result.EndTime = time.Now()

	p.logger.Info("pipeline: reconciled",
		zap.Int("stores", len(result.Table.Rows)),
		zap.Int("differences", len(result.Table.Anomalies())),
		zap.Duration("elapsed", result.EndTime.Sub(result.StartTime)))

	return result, nil
}

// Check reads the mapping and every input without aggregating anything.
// Unlike Run it does not stop at the first failing source.
func (p *Pipeline) Check(ctx context.Context) []error {
	ledger, err := p.openLedger()
	if err != nil {
		return []error{err}
	}
	if ledger != nil {
		defer ledger.Close()
	}

	if _, err := mapping.NewLoader(p.cfg, ledger, p.logger).Load(ctx); err != nil {
		return []error{err}
	}

	adapters, err := p.adapters(ledger)
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, adapter := range adapters {
		if _, err := adapter.Fetch(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openLedger connects to the ledger database, or returns nil when none is
// configured.
func (p *Pipeline) openLedger() (*ledgerdb.Store, error) {
	if !p.cfg.LedgerDB.Configured() {
		return nil, nil
	}
	store, err := ledgerdb.Open(p.cfg.LedgerDB.Driver, p.cfg.LedgerDB.DSN)
	if err != nil {
		return nil, validation.IOFailure("ledger_db", p.cfg.LedgerDB.DSN, err)
	}
	return store, nil
}

// adapters builds one adapter per configured source, in config order.
func (p *Pipeline) adapters(ledger *ledgerdb.Store) ([]sources.Adapter, error) {
	deps := sources.Deps{Ledger: ledger, Logger: p.logger}
	adapters := make([]sources.Adapter, 0, len(p.cfg.Sources))
	for _, src := range p.cfg.Sources {
		adapter, err := sources.New(src, p.date, deps)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// fetch runs every adapter with at most MaxConcurrency in flight.
// records[i] holds the output of adapters[i].
func (p *Pipeline) fetch(ctx context.Context, adapters []sources.Adapter) ([][]recon.SourceRecord, error) {
	records := make([][]recon.SourceRecord, len(adapters))

	limit := min(p.cfg.MaxConcurrency, len(adapters))
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, adapter := range adapters {
		g.Go(func() error {
			out, err := adapter.Fetch(gctx)
			if err != nil {
				return err
			}
			records[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// aggregate groups each source's records by store.
func (p *Pipeline) aggregate(adapters []sources.Adapter, records [][]recon.SourceRecord, resolver *recon.Resolver) ([]*recon.SourceAggregates, error) {
	aggregates := make([]*recon.SourceAggregates, len(adapters))
	for i, adapter := range adapters {
		src := p.cfg.Sources[i]

		opts := recon.AggregateOptions{ConfirmExact: src.ConfirmExact}
		for _, store := range src.ExcludeStores {
			opts.ExcludeStores = append(opts.ExcludeStores, recon.Canonicalize(store))
		}

		agg, err := recon.Aggregate(adapter.Source(), records[i], resolver, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", src.ID, err)
		}
		aggregates[i] = agg

		logger := p.logger.With(zap.String("source", src.ID))
		logger.Debug("aggregate: done",
			zap.Int("stores", len(agg.Rows)),
			zap.Int("records", agg.Records()),
			zap.String("total", agg.Total().String()))
		warnBucket(logger, "aggregate: unmapped keys", agg.Unmapped)
		warnBucket(logger, "aggregate: unconfirmed keys", agg.Unconfirmed)
		if !agg.Excluded.Empty() {
			logger.Info("aggregate: excluded stores",
				zap.Int("records", agg.Excluded.Records),
				zap.String("amount", agg.Excluded.Amount.String()))
		}
	}
	return aggregates, nil
}

func warnBucket(logger *zap.Logger, msg string, bucket recon.Bucket) {
	if bucket.Empty() {
		return
	}
	logger.Warn(msg,
		zap.Int("records", bucket.Records),
		zap.String("amount", bucket.Amount.String()),
		zap.Strings("native_keys", bucket.NativeKeys))
}

// consolidate splits the aggregates by role and builds the table.
func consolidate(aggregates []*recon.SourceAggregates) *recon.Table {
	var settlements []*recon.SourceAggregates
	var ledgerAdvance, ledgerNew *recon.SourceAggregates
	for _, agg := range aggregates {
		switch agg.Source.Role {
		case recon.RoleLedgerAdvance:
			ledgerAdvance = agg
		case recon.RoleLedgerNew:
			ledgerNew = agg
		default:
			settlements = append(settlements, agg)
		}
	}
	return recon.Consolidate(settlements, ledgerAdvance, ledgerNew)
}
