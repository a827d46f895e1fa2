package sources

import (
	"context"

	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/ledgerdb"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
)

// ledgerAdvance reads card and wallet collections from the ledger database.
// One record is emitted per site and payment method.
type ledgerAdvance struct {
	source recon.Source
	cfg    config.SourceConfig
	date   recon.BusinessDate
	ledger *ledgerdb.Store
	logger *zap.Logger
}

// Source implements Adapter.
func (a *ledgerAdvance) Source() recon.Source {
	return a.source
}

// Fetch implements Adapter.
func (a *ledgerAdvance) Fetch(ctx context.Context) ([]recon.SourceRecord, error) {
	collections, err := a.ledger.Collections(ctx, a.date, a.cfg.PaymentMethods)
	if err != nil {
		return nil, validation.IOFailure(a.cfg.ID, "ledger database", err)
	}

	records := make([]recon.SourceRecord, 0, len(collections))
	bills := 0
	for _, c := range collections {
		records = append(records, recon.SourceRecord{
			SourceID:     a.cfg.ID,
			NativeKey:    c.SiteCode,
			Amount:       c.Amount,
			BusinessDate: a.date,
		})
		bills += c.Bills
	}

	a.logger.Info("sources: fetched",
		zap.Strings("methods", a.cfg.PaymentMethods),
		zap.Int("bills", bills),
		zap.Int("records", len(records)))

	return records, nil
}
