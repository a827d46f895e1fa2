// =============================================================================
// Store Sale Reconciliation - Normalization Engine
// =============================================================================
//
// This module applies the per-source transformation rules to raw cells before
// the adapter reads keys, amounts and dates out of them. Processor exports
// carry their own quirks (apostrophe-prefixed terminal IDs, amounts embedded in
// text, padded merchant codes); the rules remove them so the engine only sees
// clean values.
//
// TRANSFORMATION TYPES:
//   - String clean-up (trim, strip_quotes, case conversion, whitespace)
//   - Substitution (replace, regex_replace, lookup)
//   - Numeric extraction (extract_digits, sum_decimals, remove_leading_zeros)
//   - Defaults (if_empty_use_default)
//
// Rules are compiled once per source. An unknown action type or an invalid
// pattern is a configuration error reported before any file is read.
//
// =============================================================================

package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
)

// DefaultDecimalPattern finds the decimal numbers summed by sum_decimals.
const DefaultDecimalPattern = `-?\d+\.\d+`

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies a source's transformation rules to row fields.
type Transformer struct {
	rules    []config.TransformationRule
	patterns map[string]*regexp.Regexp
}

// NewTransformer compiles the given rules.
//
// PARAMETERS:
//   - rules: The transformation rules of one source.
//
// RETURNS:
//   - A Transformer ready to apply the rules.
//   - An error naming the first unknown action or invalid pattern.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules:    rules,
		patterns: make(map[string]*regexp.Regexp),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			if !knownAction(action.Type) {
				return nil, fmt.Errorf("field %q: unknown transformation %q", rule.Field, action.Type)
			}

			pattern := ""
			switch action.Type {
			case "regex_replace":
				pattern = action.Find
			case "sum_decimals":
				pattern = action.Find
				if pattern == "" {
					pattern = DefaultDecimalPattern
				}
			}
			if pattern == "" || t.patterns[pattern] != nil {
				continue
			}

			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("field %q: invalid regex pattern: %w", rule.Field, err)
			}
			t.patterns[pattern] = re
		}
	}

	return t, nil
}

// Apply transforms the fields of one row in place. Rules naming a field the
// row does not have are skipped.
func (t *Transformer) Apply(fields map[string]string) error {
	for _, rule := range t.rules {
		value, ok := fields[rule.Field]
		if !ok {
			continue
		}

		for _, action := range rule.Actions {
			var err error
			value, err = t.apply(value, action)
			if err != nil {
				return fmt.Errorf("transformation '%s' on %q failed: %w", action.Type, rule.Field, err)
			}
		}

		fields[rule.Field] = value
	}
	return nil
}

// Value transforms a single field value with the rules for that field.
func (t *Transformer) Value(field, value string) (string, error) {
	fields := map[string]string{field: value}
	if err := t.Apply(fields); err != nil {
		return "", err
	}
	return fields[field], nil
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// apply applies a single transformation action.
func (t *Transformer) apply(value string, action config.TransformationAction) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING CLEAN-UP
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "trim_left":
		if action.Value != "" {
			return strings.TrimLeft(value, action.Value), nil
		}
		return strings.TrimLeftFunc(value, unicode.IsSpace), nil

	case "trim_right":
		if action.Value != "" {
			return strings.TrimRight(value, action.Value), nil
		}
		return strings.TrimRightFunc(value, unicode.IsSpace), nil

	case "strip_quotes":
		// EXAMPLE:
		//   Input: "'12345678"
		//   Output: "12345678"
		quotes := action.Value
		if quotes == "" {
			quotes = "'"
		}
		return strings.Map(func(r rune) rune {
			if strings.ContainsRune(quotes, r) {
				return -1
			}
			return r
		}, value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "normalize_whitespace":
		return strings.Join(strings.Fields(value), " "), nil

	// =========================================================================
	// SUBSTITUTION
	// =========================================================================

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		return t.patterns[action.Find].ReplaceAllString(value, action.Value), nil

	case "lookup":
		if mapped, ok := action.LookupTable[value]; ok {
			return mapped, nil
		}
		if action.Value != "" {
			return action.Value, nil
		}
		return value, nil

	// =========================================================================
	// NUMERIC EXTRACTION
	// =========================================================================

	case "extract_digits":
		return strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, value), nil

	case "remove_leading_zeros":
		trimmed := strings.TrimLeft(value, "0")
		if trimmed == "" && value != "" {
			return "0", nil
		}
		return trimmed, nil

	case "sum_decimals":
		// EXAMPLE:
		//   Input: "INR 100.50 + 20.25"
		//   Output: "120.75"
		pattern := action.Find
		if pattern == "" {
			pattern = DefaultDecimalPattern
		}
		total := decimal.Zero
		for _, match := range t.patterns[pattern].FindAllString(value, -1) {
			amount, err := decimal.NewFromString(match)
			if err != nil {
				return "", fmt.Errorf("match '%s' is not a decimal: %w", match, err)
			}
			total = total.Add(amount)
		}
		return total.String(), nil

	// =========================================================================
	// DEFAULTS
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// knownAction reports whether apply handles the action type.
func knownAction(kind string) bool {
	switch kind {
	case "trim", "trim_left", "trim_right", "strip_quotes", "uppercase", "lowercase",
		"normalize_whitespace", "replace", "regex_replace", "lookup",
		"extract_digits", "remove_leading_zeros", "sum_decimals", "if_empty_use_default":
		return true
	}
	return false
}
