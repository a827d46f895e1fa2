// =============================================================================
// Store Sale Reconciliation - Source Kind Defaults
// =============================================================================
//
// Every source kind has a known file shape. The defaults below describe the
// extracts as the processors deliver them, so a minimal configuration only
// names the id, the kind and the path. Anything set in YAML wins.
//
// =============================================================================

package config

import (
	"path/filepath"
	"strings"
)

// Source kinds.
const (
	KindCard          = "card"
	KindWallet        = "wallet"
	KindGateway       = "gateway"
	KindLedgerAdvance = "ledger_advance"
	KindLedgerNew     = "ledger_new"
)

// Input and report formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXML  = "xml"
)

// Mapping match policies.
const (
	MatchExact    = "exact"
	MatchFold     = "fold"
	MatchIdentity = "identity"
)

// DefaultSiteQuery reads the ledger's site table as a mapping section.
const DefaultSiteQuery = "SELECT CODE, SHRTNAME FROM ADMSITE"

// quoteRule strips the apostrophes spreadsheet exports put in front of
// numeric-looking cells.
func quoteRule(field string) TransformationRule {
	return TransformationRule{
		Field:   field,
		Actions: []TransformationAction{{Type: "strip_quotes"}, {Type: "trim"}},
	}
}

// kindDefaults holds the per-kind defaults. Slices are copied on use.
var kindDefaults = map[string]SourceConfig{
	KindCard: {
		Column:        "SBI_total_amt",
		Format:        FormatCSV,
		KeyColumn:     "TID",
		AmountColumns: []string{"Net Amount"},
		DateColumn:    "Tran Date",
		DateLayouts: []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"02-Jan-2006",
			"02-Jan-2006 15:04:05",
			"01/02/2006",
			"01/02/2006 15:04:05",
		},
		TransformationRules: []TransformationRule{quoteRule("TID")},
		Mapping: MappingSection{
			Sheet:       SheetSettings{Index: 11},
			KeyColumn:   "TID",
			StoreColumn: "LOCATION NAME",
		},
	},
	KindWallet: {
		Column:        "Paytm_total_amt",
		Format:        FormatCSV,
		CSVSettings:   CSVSettings{Encoding: "ISO-8859-1"},
		KeyColumn:     "original_mid",
		AmountColumns: []string{"amount"},
		DateColumn:    "transaction_date",
		DateLayouts:   []string{"02-01-2006 15:04:05"},
		TransformationRules: []TransformationRule{
			quoteRule("original_mid"),
			quoteRule("transaction_date"),
			{
				Field: "amount",
				Actions: []TransformationAction{
					{Type: "strip_quotes"},
					{Type: "sum_decimals"},
				},
			},
		},
		Mapping: MappingSection{
			Sheet:       SheetSettings{Index: 3, HeaderRow: 2},
			KeyColumn:   "Production Mid",
			StoreColumn: "LOCATION",
		},
	},
	KindGateway: {
		Mapping: MappingSection{StoreColumn: "Store name"},
	},
	KindLedgerAdvance: {
		Column:         "total_ginesys_advance",
		KeyColumn:      "ADMSITE_CODE",
		PaymentMethods: []string{"Credit Card", "Paytm_EDC_1"},
		Mapping:        MappingSection{Query: DefaultSiteQuery},
	},
	KindLedgerNew: {
		Column:        "total_ginesys_new",
		Format:        FormatCSV,
		CSVSettings:   CSVSettings{HeaderRow: 2, Encoding: "ISO-8859-1"},
		KeyColumn:     "Source Short Name",
		AmountColumns: []string{"Balance SUM"},
		Filters: []Filter{
			{Column: "Ledger", Equals: "Credit Card Receivable"},
			{Column: "Entry type long", Equals: "POS Journal"},
		},
		Mapping: MappingSection{Match: MatchIdentity},
	},
}

// KnownKind reports whether kind names an adapter.
func KnownKind(kind string) bool {
	_, ok := kindDefaults[kind]
	return ok
}

// applySourceDefaults fills a source from its kind, then from the global
// defaults.
func applySourceDefaults(src *SourceConfig) {
	src.ID = strings.TrimSpace(src.ID)
	src.Kind = strings.ToLower(strings.TrimSpace(src.Kind))
	src.Format = strings.ToLower(strings.TrimSpace(src.Format))
	src.Mapping.Match = strings.ToLower(strings.TrimSpace(src.Mapping.Match))

	if src.ID == "" {
		src.ID = src.Kind
	}

	defaults := kindDefaults[src.Kind]

	if src.Column == "" {
		src.Column = defaults.Column
	}
	if src.Column == "" {
		src.Column = src.ID + "_total_amt"
	}
	if src.Format == "" {
		src.Format = defaults.Format
	}
	if src.Format == "" {
		src.Format = formatFromPath(src.Path)
	}

	// CSV settings.
	if src.CSVSettings.Encoding == "" {
		src.CSVSettings.Encoding = defaults.CSVSettings.Encoding
	}
	if src.CSVSettings.Encoding == "" {
		src.CSVSettings.Encoding = "UTF-8"
	}
	if src.CSVSettings.HeaderRow == 0 {
		src.CSVSettings.HeaderRow = defaults.CSVSettings.HeaderRow
	}
	if src.CSVSettings.HeaderRow == 0 {
		src.CSVSettings.HeaderRow = 1
	}
	if src.CSVSettings.Delimiter == "" {
		if strings.EqualFold(filepath.Ext(src.Path), ".tsv") {
			src.CSVSettings.Delimiter = "\t"
		} else {
			src.CSVSettings.Delimiter = ","
		}
	}
	if src.Sheet.HeaderRow == 0 {
		src.Sheet.HeaderRow = 1
	}

	// Field selection.
	if src.KeyColumn == "" {
		src.KeyColumn = defaults.KeyColumn
	}
	if len(src.AmountColumns) == 0 {
		src.AmountColumns = append([]string(nil), defaults.AmountColumns...)
	}
	if src.DateColumn == "" {
		src.DateColumn = defaults.DateColumn
	}
	if len(src.DateLayouts) == 0 {
		src.DateLayouts = append([]string(nil), defaults.DateLayouts...)
	}
	if len(src.Filters) == 0 {
		src.Filters = append([]Filter(nil), defaults.Filters...)
	}
	if len(src.TransformationRules) == 0 {
		src.TransformationRules = append([]TransformationRule(nil), defaults.TransformationRules...)
	}
	if len(src.PaymentMethods) == 0 {
		src.PaymentMethods = append([]string(nil), defaults.PaymentMethods...)
	}

	applyMappingDefaults(&src.Mapping, defaults.Mapping)

	// A mapping sheet usually names the key the way the extract does.
	if src.Mapping.Query == "" && src.Mapping.KeyColumn == "" {
		src.Mapping.KeyColumn = src.KeyColumn
	}
}

// applyMappingDefaults fills a mapping section from the kind's section.
func applyMappingDefaults(section *MappingSection, defaults MappingSection) {
	if section.Match == "" {
		section.Match = defaults.Match
	}
	if section.Match == "" {
		section.Match = MatchExact
	}

	// A section that names its own sheet or query keeps it.
	custom := section.Query != "" || section.Sheet.Name != "" || section.Sheet.Index != 0
	if !custom {
		section.Query = defaults.Query
		if section.Query == "" {
			section.Sheet.Index = defaults.Sheet.Index
		}
	}
	if section.Sheet.HeaderRow == 0 {
		section.Sheet.HeaderRow = defaults.Sheet.HeaderRow
	}
	if section.Sheet.HeaderRow == 0 {
		section.Sheet.HeaderRow = 1
	}
	if section.Query == "" {
		if section.KeyColumn == "" {
			section.KeyColumn = defaults.KeyColumn
		}
		if section.StoreColumn == "" {
			section.StoreColumn = defaults.StoreColumn
		}
	}
}

// formatFromPath guesses the input format from the file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX
	case ".csv", ".txt", ".tsv":
		return FormatCSV
	default:
		return ""
	}
}
