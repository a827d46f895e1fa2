// =============================================================================
// Store Sale Reconciliation - Validation Engine
// =============================================================================
//
// This module provides the input checks every source adapter runs before any
// aggregation happens, and the typed error those checks produce.
//
// ERROR TAXONOMY:
//   - shape : missing required column/header, wrong file extension
//   - parse : a non-blank amount or date that cannot be read
//   - io    : a file or database that cannot be opened or read
//
// Any of these aborts the whole run. The CLI recovers the *Error with
// errors.As and reports its Message on the status channel.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Kind classifies a validation failure.
type Kind string

const (
	KindShape Kind = "shape"
	KindParse Kind = "parse"
	KindIO    Kind = "io"
)

// Error is a run-aborting input failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Source is the ID of the source that failed, empty for shared inputs.
	Source string

	// File is the input file or database involved.
	File string

	// Fields names the offending columns, if any.
	Fields []string

	// Row is the 1-based row of a parse failure, 0 otherwise.
	Row int

	// Value is the cell that failed to parse.
	Value string

	// Message is the human-readable description reported to the operator.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[" + strings.ToUpper(string(e.Kind)) + "]")
	if e.Source != "" {
		b.WriteString(" source " + e.Source + ":")
	}
	b.WriteString(" " + e.Message)
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// As recovers a *Error from an error chain.
func As(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// MissingColumns builds the shape error for absent headers.
func MissingColumns(source, file string, columns []string) *Error {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = fmt.Sprintf("'%s'", c)
	}
	return &Error{
		Kind:    KindShape,
		Source:  source,
		File:    file,
		Fields:  columns,
		Message: fmt.Sprintf("Missing %s column(s) in %s.", strings.Join(quoted, ", "), filepath.Base(file)),
	}
}

// WrongExtension builds the shape error for an unsupported file type.
func WrongExtension(source, file string, allowed []string) *Error {
	return &Error{
		Kind:   KindShape,
		Source: source,
		File:   file,
		Message: fmt.Sprintf("Wrong file type for %s; expected one of %s.",
			filepath.Base(file), strings.Join(allowed, ", ")),
	}
}

// ParseFailure builds the parse error for a single cell.
func ParseFailure(source, file string, row int, field, value string, err error) *Error {
	return &Error{
		Kind:    KindParse,
		Source:  source,
		File:    file,
		Fields:  []string{field},
		Row:     row,
		Value:   value,
		Message: fmt.Sprintf("Cannot read %s '%s' at row %d of %s.", field, value, row, filepath.Base(file)),
		Err:     err,
	}
}

// IOFailure builds the error for an input that cannot be opened or read.
func IOFailure(source, file string, err error) *Error {
	return &Error{
		Kind:    KindIO,
		Source:  source,
		File:    file,
		Message: fmt.Sprintf("Cannot read %s.", file),
		Err:     err,
	}
}

// =============================================================================
// SHAPE CHECKS
// =============================================================================

// RequireColumns checks that every named column is in the table header.
func RequireColumns(source string, table *types.Table, columns ...string) error {
	missing := table.MissingColumns(columns...)
	if len(missing) == 0 {
		return nil
	}
	file := table.SourceFile
	if table.Sheet != "" {
		file = fmt.Sprintf("%s [%s]", file, table.Sheet)
	}
	return MissingColumns(source, file, missing)
}

// RequireExtension checks the file extension against an allow-list.
// Extensions are compared case-insensitively and include the dot.
func RequireExtension(source, path string, allowed ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return WrongExtension(source, path, allowed)
}

// =============================================================================
// VALUE CHECKS
// =============================================================================

// ParseAmount reads a decimal amount.
//
// Blank cells are zero. Thousands separators and surrounding spaces are
// ignored, and an amount in parentheses is negative, as accounting exports
// write refunds. Anything else that decimal cannot read is an error.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		negative = true
		value = strings.TrimSpace(value[1 : len(value)-1])
	}

	value = strings.ReplaceAll(value, ",", "")
	value = strings.ReplaceAll(value, " ", "")

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("value '%s' is not a valid decimal number", value)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// ParseDate reads a date with the first layout that matches.
func ParseDate(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("value '%s' does not match date formats %s", value, strings.Join(layouts, ", "))
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display.
func FormatErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errs)))
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

// Message returns the operator-facing text of err.
func Message(err error) string {
	if verr, ok := As(err); ok {
		return verr.Message
	}
	return err.Error()
}
