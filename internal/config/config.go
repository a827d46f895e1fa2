// =============================================================================
// Store Sale Reconciliation - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the run configuration.
// One YAML file describes a whole reconciliation run: where the inputs live,
// how each source's file is shaped, which mapping section resolves its keys,
// and what the report should look like.
//
// CONFIGURATION LAYERS:
//   1. YAML file (recon.yaml): everything below
//   2. Kind defaults (kinds.go): the known shape of each source kind
//   3. Command line flags: --date, --output-dir override the file
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
)

// =============================================================================
// RUN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the configuration of a single reconciliation run.
type Config struct {
	// =========================================================================
	// RUN SETTINGS
	// =========================================================================

	// BusinessDate is the date being reconciled, formatted YYYY-MM-DD.
	// The --date flag overrides it.
	BusinessDate string `yaml:"business_date"`

	// MaxConcurrency caps the number of sources fetched at the same time.
	// The effective limit is never larger than the number of sources.
	// Default: 6
	MaxConcurrency int `yaml:"max_concurrency"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is the directory where reports are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ReportName is the base file name of every report artifact.
	// Placeholders:
	//   {date}      - Business date (YYYYMMDD)
	//   {uuid}      - Run ID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	// Default: "reconciliation_{date}"
	ReportName string `yaml:"report_name"`

	// Formats lists the report renditions to write.
	// Valid values: "csv", "xlsx", "xml". CSV is always written.
	// Default: ["csv", "xlsx"]
	Formats []string `yaml:"formats"`

	// TotalColumn is the header of the received total column.
	// Default: "total_CC_recd"
	TotalColumn string `yaml:"total_column"`

	// DifferenceColumn is the header of the difference column.
	// Default: "Difference"
	DifferenceColumn string `yaml:"difference_column"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFile is an optional extra log destination. Logs always go to stderr.
	LogFile string `yaml:"log_file"`

	// =========================================================================
	// REFERENCE DATA
	// =========================================================================

	// MappingFile is the reference workbook holding the per-source mapping
	// sections. A source's mapping.file overrides it.
	MappingFile string `yaml:"mapping_file"`

	// LedgerDB is the connection to the point-of-sale ledger database.
	LedgerDB DatabaseConfig `yaml:"ledger_db"`

	// =========================================================================
	// SOURCES
	// =========================================================================

	// Sources lists every input of the run. Settlement columns appear in the
	// report in this order.
	Sources []SourceConfig `yaml:"sources"`
}

// =============================================================================
// DATABASE CONFIGURATION STRUCTURE
// =============================================================================

// DatabaseConfig describes a database/sql connection.
type DatabaseConfig struct {
	// Driver is the database/sql driver name.
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// DSN is the driver-specific data source name.
	DSN string `yaml:"dsn"`
}

// Configured reports whether a DSN has been provided.
func (d DatabaseConfig) Configured() bool {
	return strings.TrimSpace(d.DSN) != ""
}

// =============================================================================
// SOURCE CONFIGURATION STRUCTURE
// =============================================================================

// SourceConfig describes one input of the run.
type SourceConfig struct {
	// =========================================================================
	// IDENTIFICATION
	// =========================================================================

	// ID is the unique source identifier used in logs and the summary.
	ID string `yaml:"id"`

	// Kind selects the adapter and its defaults.
	// Valid values: "card", "wallet", "gateway", "ledger_advance", "ledger_new"
	Kind string `yaml:"kind"`

	// Column is the header of this source's amount column in the report.
	Column string `yaml:"column"`

	// =========================================================================
	// INPUT FILE
	// =========================================================================

	// Path is the input file. Not used by the ledger_advance kind.
	Path string `yaml:"path"`

	// Format is "csv" or "xlsx". Derived from the file extension when empty.
	Format string `yaml:"format"`

	// CSVSettings contains settings for delimited inputs.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Sheet selects the worksheet of an xlsx input.
	Sheet SheetSettings `yaml:"sheet"`

	// =========================================================================
	// FIELD SELECTION
	// =========================================================================

	// KeyColumn holds the source's native store or terminal identifier.
	KeyColumn string `yaml:"key_column"`

	// AmountColumns are summed per row to give the row amount.
	AmountColumns []string `yaml:"amount_columns"`

	// DateColumn holds the transaction date. When empty the input is taken to
	// be already scoped to the business date.
	DateColumn string `yaml:"date_column"`

	// DateLayouts are tried in order when parsing DateColumn (Go layouts).
	DateLayouts []string `yaml:"date_layouts"`

	// Filters keep only the rows matching every filter.
	Filters []Filter `yaml:"filters"`

	// TransformationRules normalize raw cell values before extraction.
	// When empty the kind's default rules apply.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`

	// PaymentMethods restricts the ledger_advance query to these methods.
	PaymentMethods []string `yaml:"payment_methods"`

	// =========================================================================
	// IDENTITY
	// =========================================================================

	// Mapping locates the section that resolves this source's native keys.
	Mapping MappingSection `yaml:"mapping"`

	// ConfirmExact demands that the native key be byte-identical to the key of
	// the mapping row that resolved it. Other rows are reported, not summed.
	ConfirmExact bool `yaml:"confirm_exact"`

	// ExcludeStores are store names whose amounts are left out of this source.
	ExcludeStores []string `yaml:"exclude_stores"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing delimited files.
type CSVSettings struct {
	// Delimiter is the field separator. "tab", "\t", "comma", "pipe" and
	// "semicolon" are accepted as aliases.
	// Default: "," (".tsv" files default to tab)
	Delimiter string `yaml:"delimiter"`

	// HeaderRow is the 1-based line holding the column headers. Lines above
	// it are skipped.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// Encoding is the character encoding of the file.
	// Valid values: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// SHEET SETTINGS STRUCTURE
// =============================================================================

// SheetSettings selects a worksheet and its header row.
type SheetSettings struct {
	// Name selects the sheet by name. Takes precedence over Index.
	Name string `yaml:"name"`

	// Index selects the sheet by 0-based position in the workbook.
	Index int `yaml:"index"`

	// HeaderRow is the 1-based row holding the column headers.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// RawValues reads unformatted cell values instead of displayed text.
	RawValues bool `yaml:"raw_values"`
}

// Label describes the sheet selection for log and error messages.
func (s SheetSettings) Label() string {
	if s.Name != "" {
		return fmt.Sprintf("sheet %q", s.Name)
	}
	return fmt.Sprintf("sheet #%d", s.Index)
}

// =============================================================================
// MAPPING SECTION STRUCTURE
// =============================================================================

// MappingSection locates the mapping rows for one source.
type MappingSection struct {
	// Match is the lookup policy.
	// Valid values: "exact", "fold", "identity"
	// Default: "exact" ("identity" for ledger_new)
	Match string `yaml:"match"`

	// File overrides the run's mapping_file for this section.
	File string `yaml:"file"`

	// Sheet selects the worksheet of the mapping workbook.
	Sheet SheetSettings `yaml:"sheet"`

	// KeyColumn holds the native key in the mapping section.
	KeyColumn string `yaml:"key_column"`

	// StoreColumn holds the store name in the mapping section.
	StoreColumn string `yaml:"store_column"`

	// Query reads the section from the ledger database instead of the
	// workbook. It must select exactly two columns: native key, store name.
	Query string `yaml:"query"`
}

// =============================================================================
// FILTER STRUCTURE
// =============================================================================

// Filter keeps a row when Column equals Equals or any value of In.
type Filter struct {
	Column string   `yaml:"column"`
	Equals string   `yaml:"equals"`
	In     []string `yaml:"in"`

	// Not inverts the filter.
	Not bool `yaml:"not"`
}

// Match reports whether value passes the filter.
func (f Filter) Match(value string) bool {
	matched := value == f.Equals && (f.Equals != "" || len(f.In) == 0)
	for _, candidate := range f.In {
		if value == candidate {
			matched = true
			break
		}
	}
	if f.Not {
		return !matched
	}
	return matched
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines the actions applied to one field.
type TransformationRule struct {
	// Field is the column header the actions apply to.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim"                 : Remove leading and trailing whitespace
	//   - "strip_quotes"         : Remove every quote character (Value, default "'")
	//   - "uppercase"            : Convert to uppercase
	//   - "lowercase"            : Convert to lowercase
	//   - "replace"              : Replace Find with Value
	//   - "regex_replace"        : Replace matches of Find with Value
	//   - "extract_digits"       : Keep only the digits
	//   - "sum_decimals"         : Sum every decimal number in the value (Find overrides the pattern)
	//   - "normalize_whitespace" : Collapse whitespace runs to one space
	//   - "remove_leading_zeros" : Drop leading zeros, keeping at least one digit
	//   - "if_empty_use_default" : Use Value when the field is blank
	//   - "lookup"               : Replace the value using LookupTable
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is the substring or pattern for replace, regex_replace and
	// sum_decimals.
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values. Values missing from
	// the table pass through unless Value is set, which is then used instead.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load loads a run configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//
// RETURNS:
//   - A pointer to the Config struct with defaults applied.
//   - An error if the file cannot be read, parsed or fails validation.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses, defaults and validates configuration YAML.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.ReportName == "" {
		config.ReportName = "reconciliation_{date}"
	}
	if len(config.Formats) == 0 {
		config.Formats = []string{FormatCSV, FormatXLSX}
	}
	for i, format := range config.Formats {
		config.Formats[i] = strings.ToLower(strings.TrimSpace(format))
	}
	if config.TotalColumn == "" {
		config.TotalColumn = "total_CC_recd"
	}
	if config.DifferenceColumn == "" {
		config.DifferenceColumn = "Difference"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 6
	}
	if config.LedgerDB.Driver == "" {
		config.LedgerDB.Driver = "sqlite3"
	}

	for i := range config.Sources {
		applySourceDefaults(&config.Sources[i])
	}
}

// validate checks the cross-field rules of a defaulted configuration.
func validate(config *Config) error {
	if config.BusinessDate != "" {
		if _, err := recon.ParseBusinessDate(config.BusinessDate); err != nil {
			return err
		}
	}

	for _, format := range config.Formats {
		switch format {
		case FormatCSV, FormatXLSX, FormatXML:
		default:
			return fmt.Errorf("unknown report format %q", format)
		}
	}

	if len(config.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	seen := make(map[string]bool)
	columns := map[string]string{
		config.TotalColumn:      "total_column",
		config.DifferenceColumn: "difference_column",
	}
	ledgers := make(map[string]int)

	for i := range config.Sources {
		src := &config.Sources[i]
		if err := validateSource(config, src); err != nil {
			return fmt.Errorf("source %d (%s): %w", i+1, src.ID, err)
		}
		if seen[src.ID] {
			return fmt.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = true

		if owner, ok := columns[src.Column]; ok {
			return fmt.Errorf("source %q: column %q already used by %s", src.ID, src.Column, owner)
		}
		columns[src.Column] = src.ID

		if src.Kind == KindLedgerAdvance || src.Kind == KindLedgerNew {
			ledgers[src.Kind]++
			if ledgers[src.Kind] > 1 {
				return fmt.Errorf("at most one %s source may be configured", src.Kind)
			}
		}
	}

	return nil
}

// validateSource checks a single defaulted source.
func validateSource(config *Config, src *SourceConfig) error {
	if src.ID == "" {
		return fmt.Errorf("id is required")
	}
	if _, ok := kindDefaults[src.Kind]; !ok {
		return fmt.Errorf("unknown kind %q", src.Kind)
	}
	if src.KeyColumn == "" {
		return fmt.Errorf("key_column is required")
	}

	if src.Kind == KindLedgerAdvance {
		if !config.LedgerDB.Configured() {
			return fmt.Errorf("ledger_db.dsn is required for a %s source", src.Kind)
		}
		if len(src.PaymentMethods) == 0 {
			return fmt.Errorf("payment_methods is required")
		}
	} else {
		if src.Path == "" {
			return fmt.Errorf("path is required")
		}
		if len(src.AmountColumns) == 0 {
			return fmt.Errorf("amount_columns is required")
		}
		if src.DateColumn != "" && len(src.DateLayouts) == 0 {
			return fmt.Errorf("date_layouts is required when date_column is set")
		}
	}

	switch src.Format {
	case "", FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("unknown input format %q", src.Format)
	}

	if src.CSVSettings.HeaderRow < 1 || src.Sheet.HeaderRow < 1 {
		return fmt.Errorf("header_row must be 1 or greater")
	}
	if src.Sheet.Index < 0 {
		return fmt.Errorf("sheet index must not be negative")
	}

	for _, filter := range src.Filters {
		if filter.Column == "" {
			return fmt.Errorf("filter without column")
		}
	}

	return validateMapping(config, src)
}

// validateMapping checks that a source can resolve its native keys.
func validateMapping(config *Config, src *SourceConfig) error {
	section := src.Mapping
	switch section.Match {
	case MatchExact, MatchFold:
	case MatchIdentity:
		if src.ConfirmExact {
			return fmt.Errorf("confirm_exact cannot be combined with identity matching")
		}
		return nil
	default:
		return fmt.Errorf("unknown mapping match %q", section.Match)
	}

	if section.Query != "" {
		if !config.LedgerDB.Configured() {
			return fmt.Errorf("mapping query requires ledger_db.dsn")
		}
		return nil
	}

	if section.File == "" && config.MappingFile == "" {
		return fmt.Errorf("mapping file is required (mapping_file or mapping.file)")
	}
	if section.KeyColumn == "" || section.StoreColumn == "" {
		return fmt.Errorf("mapping key_column and store_column are required")
	}
	if section.Sheet.HeaderRow < 1 || section.Sheet.Index < 0 {
		return fmt.Errorf("invalid mapping sheet settings")
	}
	return nil
}

// MappingFileFor returns the workbook holding a source's mapping section.
func (c *Config) MappingFileFor(src SourceConfig) string {
	if src.Mapping.File != "" {
		return src.Mapping.File
	}
	return c.MappingFile
}

// WantsFormat reports whether a report format was requested.
func (c *Config) WantsFormat(format string) bool {
	if format == FormatCSV {
		return true
	}
	for _, f := range c.Formats {
		if f == format {
			return true
		}
	}
	return false
}
