// =============================================================================
// Store Sale Reconciliation - Core Types
// =============================================================================
//
// This package is the reconciliation engine. It is deliberately free of I/O:
// adapters hand it normalized SourceRecords, and it hands back a consolidated
// Table with one row per canonical store.
//
// PIPELINE:
//   SourceRecord --(Resolver)--> CanonicalStoreKey
//   SourceRecords --(Aggregate)--> SourceAggregates (one per source)
//   SourceAggregates --(Consolidate)--> Table of ReconciliationRows
//   ReconciliationRow --(Difference)--> expected - received
//
// =============================================================================

package recon

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// STORE IDENTITY
// =============================================================================

// CanonicalStoreKey identifies one physical store across every source.
type CanonicalStoreKey string

// Unmapped is the resolution outcome for a native key with no mapping entry.
// Canonicalize never produces it for a non-blank store name.
const Unmapped CanonicalStoreKey = ""

// Canonicalize converts a store name from the reference mapping (or from a
// ledger that already carries store names) into its canonical key.
//
// The name is NFC-normalized, trimmed, internal whitespace runs are collapsed
// to one space, and the result is upper-cased. "Vmart  Delhi " and
// "VMART DELHI" therefore converge on the same key.
func Canonicalize(name string) CanonicalStoreKey {
	name = norm.NFC.String(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return Unmapped
	}
	// A Caser is stateful, so one is built per call.
	return CanonicalStoreKey(cases.Upper(language.Und).String(name))
}

// String returns the key as a plain string.
func (k CanonicalStoreKey) String() string {
	return string(k)
}

// =============================================================================
// SOURCES
// =============================================================================

// Role tells the consolidator which side of the difference a source feeds.
type Role int

const (
	// RoleSettlement marks money actually received (card, wallet, gateways).
	RoleSettlement Role = iota

	// RoleLedgerAdvance marks the advance point-of-sale ledger.
	RoleLedgerAdvance

	// RoleLedgerNew marks the new ledger extract.
	RoleLedgerNew
)

// String returns the configuration name of the role.
func (r Role) String() string {
	switch r {
	case RoleSettlement:
		return "settlement"
	case RoleLedgerAdvance:
		return "ledger_advance"
	case RoleLedgerNew:
		return "ledger_new"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Source describes one registered input of a run.
type Source struct {
	// ID is the unique source identifier (e.g. "sbi", "paytm").
	ID string

	// Role decides whether the source is a ledger or a settlement.
	Role Role

	// Column is the header used for this source in the report.
	Column string
}

// DefaultLedgerAdvance is used when a run has no advance ledger configured.
var DefaultLedgerAdvance = Source{ID: "ledger_advance", Role: RoleLedgerAdvance, Column: "total_ginesys_advance"}

// DefaultLedgerNew is used when a run has no new ledger configured.
var DefaultLedgerNew = Source{ID: "ledger_new", Role: RoleLedgerNew, Column: "total_ginesys_new"}

// =============================================================================
// BUSINESS DATE
// =============================================================================

// BusinessDate is the single calendar date a run is scoped to.
type BusinessDate struct {
	Year  int
	Month time.Month
	Day   int
}

// BusinessDateLayout is the layout accepted by ParseBusinessDate.
const BusinessDateLayout = "2006-01-02"

// ParseBusinessDate parses a YYYY-MM-DD date.
func ParseBusinessDate(value string) (BusinessDate, error) {
	t, err := time.Parse(BusinessDateLayout, strings.TrimSpace(value))
	if err != nil {
		return BusinessDate{}, fmt.Errorf("invalid business date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) BusinessDate {
	y, m, d := t.Date()
	return BusinessDate{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date was never set.
func (d BusinessDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Contains reports whether t falls on this date, ignoring the time of day.
func (d BusinessDate) Contains(t time.Time) bool {
	return DateOf(t) == d
}

// Window returns the inclusive [00:00:00, 23:59:59] bounds of the date in UTC.
func (d BusinessDate) Window() (time.Time, time.Time) {
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	end := time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, time.UTC)
	return start, end
}

// String formats the date as YYYY-MM-DD.
func (d BusinessDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compact formats the date as YYYYMMDD for file names.
func (d BusinessDate) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// =============================================================================
// SOURCE RECORD
// =============================================================================

// SourceRecord is one normalized line produced by a source adapter.
// Amount is signed: refunds and chargebacks arrive negative.
type SourceRecord struct {
	SourceID     string
	NativeKey    string
	Amount       decimal.Decimal
	BusinessDate BusinessDate
}
