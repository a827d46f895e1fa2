// =============================================================================
// Store Sale Reconciliation - Source Adapters
// =============================================================================
//
// A source adapter turns one raw input into normalized SourceRecords in that
// source's native key space. Every processor quirk (file type, encoding,
// header position, quoted cells, embedded amounts, date layouts, row filters)
// stays behind the Adapter interface; the engine never sees it.
//
// ADAPTER KINDS:
//   - card, wallet, gateway, ledger_new : tabular files (CSV/TSV or XLSX)
//   - ledger_advance                    : the ledger database
//
// Adapters are independent and safe to run concurrently. Any input failure is
// returned as a *validation.Error and aborts the run.
//
// =============================================================================

package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/ledgerdb"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
)

// Adapter fetches the records of one source for the run's business date.
type Adapter interface {
	// Source describes the source and its report column.
	Source() recon.Source

	// Fetch reads the input and returns the records of the business date.
	Fetch(ctx context.Context) ([]recon.SourceRecord, error)
}

// Deps are the shared resources adapters may use.
type Deps struct {
	Ledger *ledgerdb.Store
	Logger *zap.Logger
}

// New builds the adapter for a configured source.
func New(cfg config.SourceConfig, date recon.BusinessDate, deps Deps) (Adapter, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("source", cfg.ID), zap.String("kind", cfg.Kind))

	src := recon.Source{ID: cfg.ID, Role: RoleOf(cfg.Kind), Column: cfg.Column}

	switch cfg.Kind {
	case config.KindLedgerAdvance:
		if deps.Ledger == nil {
			return nil, fmt.Errorf("source %s: no ledger database", cfg.ID)
		}
		return &ledgerAdvance{source: src, cfg: cfg, date: date, ledger: deps.Ledger, logger: logger}, nil

	case config.KindCard, config.KindWallet, config.KindGateway, config.KindLedgerNew:
		return newTabular(src, cfg, date, logger)

	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", cfg.ID, cfg.Kind)
	}
}

// RoleOf maps a source kind to its side of the reconciliation.
func RoleOf(kind string) recon.Role {
	switch kind {
	case config.KindLedgerAdvance:
		return recon.RoleLedgerAdvance
	case config.KindLedgerNew:
		return recon.RoleLedgerNew
	default:
		return recon.RoleSettlement
	}
}
