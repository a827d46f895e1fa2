// =============================================================================
// Store Sale Reconciliation - Store Identity Resolver
// =============================================================================
//
// Every source names stores in its own key space: card terminals by TID,
// wallets by merchant id, gateways by dealer code, the advance ledger by site
// code. The Resolver maps (source, native key) to the one CanonicalStoreKey
// shared by the whole run.
//
// LOOKUP CONSTRUCTION:
//   1. Exact-duplicate mapping rows are discarded.
//   2. The first row seen for a (source, native key) wins; later rows that
//      point elsewhere are recorded as conflicts and ignored.
//   3. The table is immutable after construction and safe for concurrent use.
//
// =============================================================================

package recon

import (
	"strings"

	"golang.org/x/text/cases"
)

// =============================================================================
// MATCH MODES
// =============================================================================

// MatchMode controls how a source's native keys are compared with the mapping.
type MatchMode int

const (
	// MatchExact requires the native key to equal the mapping key byte for byte.
	MatchExact MatchMode = iota

	// MatchFold trims and case-folds both sides before comparing.
	MatchFold

	// MatchIdentity treats the native key as the store name itself.
	MatchIdentity
)

// ParseMatchMode converts a configuration value into a MatchMode.
// An empty value selects MatchExact.
func ParseMatchMode(value string) (MatchMode, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "exact":
		return MatchExact, true
	case "fold", "case_insensitive":
		return MatchFold, true
	case "identity":
		return MatchIdentity, true
	default:
		return MatchExact, false
	}
}

// String returns the configuration name of the mode.
func (m MatchMode) String() string {
	switch m {
	case MatchFold:
		return "fold"
	case MatchIdentity:
		return "identity"
	default:
		return "exact"
	}
}

// =============================================================================
// MAPPING TABLE
// =============================================================================

// MappingEntry is one row of the reference mapping, in table order.
type MappingEntry struct {
	SourceID  string
	NativeKey string
	Store     string
}

// Conflict records a mapping row that was ignored because an earlier row
// already mapped the same native key to a different store.
type Conflict struct {
	SourceID  string
	NativeKey string
	Kept      CanonicalStoreKey
	Ignored   CanonicalStoreKey
}

// Resolution is the outcome of a lookup.
type Resolution struct {
	// Store is the canonical key, or Unmapped.
	Store CanonicalStoreKey

	// MatchedKey is the native key as written in the mapping row that matched.
	MatchedKey string
}

// Mapped reports whether the lookup found a store.
func (r Resolution) Mapped() bool {
	return r.Store != Unmapped
}

// Exact reports whether the record's key equals the matched mapping key.
func (r Resolution) Exact(nativeKey string) bool {
	return r.Mapped() && r.MatchedKey == nativeKey
}

type mapped struct {
	store      CanonicalStoreKey
	matchedKey string
}

// Resolver resolves native keys to canonical stores.
type Resolver struct {
	modes      map[string]MatchMode
	lookup     map[string]map[string]mapped
	conflicts  []Conflict
	duplicates int
	skipped    int
}

// NewResolver builds the lookup from mapping entries in table order.
//
// PARAMETERS:
//   - entries: mapping rows, in the order they appear in the reference table.
//   - modes: match mode per source ID; sources absent from the map use MatchExact.
//
// Rows with a blank native key or a blank store are skipped.
func NewResolver(entries []MappingEntry, modes map[string]MatchMode) *Resolver {
	r := &Resolver{
		modes:  make(map[string]MatchMode, len(modes)),
		lookup: make(map[string]map[string]mapped),
	}
	for id, mode := range modes {
		r.modes[id] = mode
	}

	seen := make(map[MappingEntry]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry]; dup {
			r.duplicates++
			continue
		}
		seen[entry] = struct{}{}

		store := Canonicalize(entry.Store)
		if store == Unmapped || entry.NativeKey == "" {
			r.skipped++
			continue
		}

		key := r.lookupKey(entry.SourceID, entry.NativeKey)
		table := r.lookup[entry.SourceID]
		if table == nil {
			table = make(map[string]mapped)
			r.lookup[entry.SourceID] = table
		}

		if existing, ok := table[key]; ok {
			if existing.store != store {
				r.conflicts = append(r.conflicts, Conflict{
					SourceID:  entry.SourceID,
					NativeKey: entry.NativeKey,
					Kept:      existing.store,
					Ignored:   store,
				})
			}
			continue
		}

		table[key] = mapped{store: store, matchedKey: entry.NativeKey}
	}

	return r
}

// Resolve looks up a native key exactly as the source wrote it.
// A missing mapping yields Unmapped; it is never an error.
func (r *Resolver) Resolve(sourceID, nativeKey string) Resolution {
	if r.Mode(sourceID) == MatchIdentity {
		store := Canonicalize(nativeKey)
		if store == Unmapped {
			return Resolution{Store: Unmapped}
		}
		return Resolution{Store: store, MatchedKey: nativeKey}
	}

	table := r.lookup[sourceID]
	if table == nil {
		return Resolution{Store: Unmapped}
	}

	hit, ok := table[r.lookupKey(sourceID, nativeKey)]
	if !ok {
		return Resolution{Store: Unmapped}
	}
	return Resolution{Store: hit.store, MatchedKey: hit.matchedKey}
}

// Mode returns the match mode configured for a source.
func (r *Resolver) Mode(sourceID string) MatchMode {
	return r.modes[sourceID]
}

// Size returns the number of distinct native keys mapped for a source.
func (r *Resolver) Size(sourceID string) int {
	return len(r.lookup[sourceID])
}

// Conflicts returns the ignored conflicting rows in table order.
func (r *Resolver) Conflicts() []Conflict {
	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

// Duplicates returns how many exact-duplicate rows were discarded.
func (r *Resolver) Duplicates() int {
	return r.duplicates
}

// Skipped returns how many rows had a blank key or store.
func (r *Resolver) Skipped() int {
	return r.skipped
}

func (r *Resolver) lookupKey(sourceID, nativeKey string) string {
	if r.modes[sourceID] == MatchFold {
		return cases.Fold().String(strings.TrimSpace(nativeKey))
	}
	return nativeKey
}
