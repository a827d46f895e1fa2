// =============================================================================
// Store Sale Reconciliation - Per-Source Aggregator
// =============================================================================
//
// Aggregate sums one source's records per canonical store. Records that do
// not resolve never touch a real store's total: they are summed into the
// Unmapped bucket, which the pipeline reports per source.
//
// BUCKETS:
//   Rows        - one SourceAggregate per resolved store, sorted by store
//   Unmapped    - native keys with no mapping entry
//   Unconfirmed - keys matched only after folding when exact confirmation is on
//   Excluded    - stores the source configuration excludes
//
// =============================================================================

package recon

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATE TYPES
// =============================================================================

// SourceAggregate is the total of one source for one store.
type SourceAggregate struct {
	SourceID string
	Store    CanonicalStoreKey
	Amount   decimal.Decimal
	Records  int
}

// Bucket collects records kept out of the per-store totals.
type Bucket struct {
	Records int
	Amount  decimal.Decimal

	// NativeKeys lists the distinct native keys seen, sorted.
	NativeKeys []string
}

// Empty reports whether nothing landed in the bucket.
func (b Bucket) Empty() bool {
	return b.Records == 0
}

// SourceAggregates is the full aggregation result of one source.
type SourceAggregates struct {
	Source      Source
	Rows        []SourceAggregate
	Unmapped    Bucket
	Unconfirmed Bucket
	Excluded    Bucket
}

// Total returns the sum over every store row, buckets excluded.
func (a *SourceAggregates) Total() decimal.Decimal {
	total := decimal.Zero
	for _, row := range a.Rows {
		total = total.Add(row.Amount)
	}
	return total
}

// Records returns how many records were attributed to stores.
func (a *SourceAggregates) Records() int {
	n := 0
	for _, row := range a.Rows {
		n += row.Records
	}
	return n
}

// Lookup returns the aggregate for one store.
func (a *SourceAggregates) Lookup(store CanonicalStoreKey) (SourceAggregate, bool) {
	i := sort.Search(len(a.Rows), func(i int) bool { return a.Rows[i].Store >= store })
	if i < len(a.Rows) && a.Rows[i].Store == store {
		return a.Rows[i], true
	}
	return SourceAggregate{}, false
}

// AggregateOptions tunes aggregation for one source.
type AggregateOptions struct {
	// ConfirmExact keeps only records whose native key equals the mapping
	// row's key byte for byte. Matches found through folding go to Unconfirmed.
	ConfirmExact bool

	// ExcludeStores lists stores this source must not contribute to.
	ExcludeStores []CanonicalStoreKey
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate groups a source's records by canonical store.
//
// PARAMETERS:
//   - source: the source being aggregated; every record must carry its ID.
//   - records: the adapter output, in any order.
//   - resolver: the run's shared, read-only resolver.
//   - opts: per-source confirmation and exclusion settings.
//
// RETURNS:
//   - The aggregates, with Rows sorted by store.
//   - An error if a record belongs to another source.
func Aggregate(source Source, records []SourceRecord, resolver *Resolver, opts AggregateOptions) (*SourceAggregates, error) {
	if resolver == nil {
		return nil, fmt.Errorf("aggregate %s: resolver is required", source.ID)
	}

	excluded := make(map[CanonicalStoreKey]struct{}, len(opts.ExcludeStores))
	for _, store := range opts.ExcludeStores {
		excluded[store] = struct{}{}
	}

	totals := make(map[CanonicalStoreKey]*SourceAggregate)
	var unmapped, unconfirmed, excludedBucket bucketBuilder

	for i, rec := range records {
		if rec.SourceID != source.ID {
			return nil, fmt.Errorf("aggregate %s: record %d belongs to source %q", source.ID, i, rec.SourceID)
		}

		res := resolver.Resolve(source.ID, rec.NativeKey)
		switch {
		case !res.Mapped():
			unmapped.add(rec)
			continue
		case opts.ConfirmExact && !res.Exact(rec.NativeKey):
			unconfirmed.add(rec)
			continue
		}
		if _, skip := excluded[res.Store]; skip {
			excludedBucket.add(rec)
			continue
		}

		agg, ok := totals[res.Store]
		if !ok {
			agg = &SourceAggregate{SourceID: source.ID, Store: res.Store, Amount: decimal.Zero}
			totals[res.Store] = agg
		}
		agg.Amount = agg.Amount.Add(rec.Amount)
		agg.Records++
	}

	rows := make([]SourceAggregate, 0, len(totals))
	for _, agg := range totals {
		rows = append(rows, *agg)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Store < rows[j].Store })

	return &SourceAggregates{
		Source:      source,
		Rows:        rows,
		Unmapped:    unmapped.bucket(),
		Unconfirmed: unconfirmed.bucket(),
		Excluded:    excludedBucket.bucket(),
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type bucketBuilder struct {
	records int
	amount  decimal.Decimal
	keys    map[string]struct{}
}

func (b *bucketBuilder) add(rec SourceRecord) {
	if b.keys == nil {
		b.keys = make(map[string]struct{})
	}
	b.records++
	b.amount = b.amount.Add(rec.Amount)
	b.keys[rec.NativeKey] = struct{}{}
}

func (b *bucketBuilder) bucket() Bucket {
	out := Bucket{Records: b.records, Amount: b.amount}
	if len(b.keys) > 0 {
		out.NativeKeys = make([]string, 0, len(b.keys))
		for key := range b.keys {
			out.NativeKeys = append(out.NativeKeys, key)
		}
		sort.Strings(out.NativeKeys)
	}
	return out
}
