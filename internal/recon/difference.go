package recon

import "github.com/shopspring/decimal"

// Received sums every settlement amount of the row. Ledger columns are
// never part of it.
func Received(row ReconciliationRow) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range row.Settlements {
		total = total.Add(amount)
	}
	return total
}

// Expected is what the ledgers say should have been collected.
func Expected(row ReconciliationRow) decimal.Decimal {
	return row.LedgerAdvance.Add(row.LedgerNew)
}

// Difference returns expected minus received.
//
// Positive means the ledger expected more than was settled (under-collection),
// negative means more was settled than the ledger expected.
func Difference(row ReconciliationRow) decimal.Decimal {
	return Expected(row).Sub(Received(row))
}

// ApplyDifference returns the row with TotalReceived and Difference filled in.
func ApplyDifference(row ReconciliationRow) ReconciliationRow {
	row.TotalReceived = Received(row)
	row.Difference = Difference(row)
	return row
}
