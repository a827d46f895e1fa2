// =============================================================================
// Store Sale Reconciliation - Consolidator
// =============================================================================
//
// Consolidate outer-joins every source's aggregates on canonical store.
//
// ALGORITHM (union, then fill):
//   1. Collect the union of store keys across every settlement aggregate and
//      both ledger aggregates.
//   2. Sort the union ascending. Input order of sources and rows is irrelevant.
//   3. Create one row per key with every column set to zero.
//   4. Add each aggregate's amount into its cell.
//   5. Compute received, difference for every row.
//
// A store present in a single source still gets a row, and a missing cell is
// zero by construction rather than by a fill step after the join.
//
// =============================================================================

package recon

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TABLE TYPES
// =============================================================================

// ReconciliationRow is the consolidated view of one store.
type ReconciliationRow struct {
	Store         CanonicalStoreKey
	LedgerAdvance decimal.Decimal
	LedgerNew     decimal.Decimal

	// Settlements holds one amount per registered settlement source ID.
	// Every registered source is present, zero when it had no aggregate.
	Settlements map[string]decimal.Decimal

	TotalReceived decimal.Decimal
	Difference    decimal.Decimal
}

// Settlement returns the amount of one settlement source for this row.
func (r ReconciliationRow) Settlement(sourceID string) decimal.Decimal {
	return r.Settlements[sourceID]
}

// Reconciled reports whether expected and received agree exactly.
func (r ReconciliationRow) Reconciled() bool {
	return r.Difference.IsZero()
}

// Table is the consolidated reconciliation for one business date.
type Table struct {
	LedgerAdvance Source
	LedgerNew     Source

	// Settlements lists settlement sources in column order.
	Settlements []Source

	// Rows is sorted by Store ascending.
	Rows []ReconciliationRow
}

// Row returns the row of one store.
func (t *Table) Row(store CanonicalStoreKey) (ReconciliationRow, bool) {
	i := sort.Search(len(t.Rows), func(i int) bool { return t.Rows[i].Store >= store })
	if i < len(t.Rows) && t.Rows[i].Store == store {
		return t.Rows[i], true
	}
	return ReconciliationRow{}, false
}

// Anomalies returns the rows with a non-zero difference, in table order.
func (t *Table) Anomalies() []ReconciliationRow {
	var out []ReconciliationRow
	for _, row := range t.Rows {
		if !row.Reconciled() {
			out = append(out, row)
		}
	}
	return out
}

// Totals returns a synthetic row holding the column sums of the table.
func (t *Table) Totals() ReconciliationRow {
	total := ReconciliationRow{Settlements: make(map[string]decimal.Decimal, len(t.Settlements))}
	for _, src := range t.Settlements {
		total.Settlements[src.ID] = decimal.Zero
	}
	for _, row := range t.Rows {
		total.LedgerAdvance = total.LedgerAdvance.Add(row.LedgerAdvance)
		total.LedgerNew = total.LedgerNew.Add(row.LedgerNew)
		for id, amount := range row.Settlements {
			total.Settlements[id] = total.Settlements[id].Add(amount)
		}
	}
	return ApplyDifference(total)
}

// =============================================================================
// CONSOLIDATION
// =============================================================================

// Consolidate builds the reconciliation table.
//
// PARAMETERS:
//   - settlements: settlement aggregates; their order fixes the column order.
//     Aggregates sharing a source ID are summed into one column.
//   - ledgerAdvance, ledgerNew: ledger aggregates; nil means the ledger
//     contributed nothing and its column is all zeros.
//
// RETURNS:
//   - A table with exactly one row per store found in any input.
func Consolidate(settlements []*SourceAggregates, ledgerAdvance, ledgerNew *SourceAggregates) *Table {
	table := &Table{
		LedgerAdvance: DefaultLedgerAdvance,
		LedgerNew:     DefaultLedgerNew,
	}
	if ledgerAdvance != nil {
		table.LedgerAdvance = ledgerAdvance.Source
	}
	if ledgerNew != nil {
		table.LedgerNew = ledgerNew.Source
	}

	registered := make(map[string]struct{}, len(settlements))
	for _, agg := range settlements {
		if agg == nil {
			continue
		}
		if _, ok := registered[agg.Source.ID]; ok {
			continue
		}
		registered[agg.Source.ID] = struct{}{}
		table.Settlements = append(table.Settlements, agg.Source)
	}

	// Step 1-2: union of keys, sorted.
	union := make(map[CanonicalStoreKey]struct{})
	collect := func(agg *SourceAggregates) {
		if agg == nil {
			return
		}
		for _, row := range agg.Rows {
			if row.Store == Unmapped {
				continue
			}
			union[row.Store] = struct{}{}
		}
	}
	collect(ledgerAdvance)
	collect(ledgerNew)
	for _, agg := range settlements {
		collect(agg)
	}

	keys := make([]CanonicalStoreKey, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	// Step 3: zero-filled rows.
	table.Rows = make([]ReconciliationRow, len(keys))
	index := make(map[CanonicalStoreKey]int, len(keys))
	for i, key := range keys {
		row := ReconciliationRow{
			Store:         key,
			LedgerAdvance: decimal.Zero,
			LedgerNew:     decimal.Zero,
			Settlements:   make(map[string]decimal.Decimal, len(table.Settlements)),
		}
		for _, src := range table.Settlements {
			row.Settlements[src.ID] = decimal.Zero
		}
		table.Rows[i] = row
		index[key] = i
	}

	// Step 4: fill cells.
	if ledgerAdvance != nil {
		for _, agg := range ledgerAdvance.Rows {
			if i, ok := index[agg.Store]; ok {
				table.Rows[i].LedgerAdvance = table.Rows[i].LedgerAdvance.Add(agg.Amount)
			}
		}
	}
	if ledgerNew != nil {
		for _, agg := range ledgerNew.Rows {
			if i, ok := index[agg.Store]; ok {
				table.Rows[i].LedgerNew = table.Rows[i].LedgerNew.Add(agg.Amount)
			}
		}
	}
	for _, settlement := range settlements {
		if settlement == nil {
			continue
		}
		id := settlement.Source.ID
		for _, agg := range settlement.Rows {
			if i, ok := index[agg.Store]; ok {
				table.Rows[i].Settlements[id] = table.Rows[i].Settlements[id].Add(agg.Amount)
			}
		}
	}

	// Step 5: difference.
	for i := range table.Rows {
		table.Rows[i] = ApplyDifference(table.Rows[i])
	}

	return table
}
