package recon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testDate = BusinessDate{Year: 2023, Month: 12, Day: 28}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func record(source, key, amount string) SourceRecord {
	return SourceRecord{SourceID: source, NativeKey: key, Amount: dec(amount), BusinessDate: testDate}
}

func settlement(id string) Source {
	return Source{ID: id, Role: RoleSettlement, Column: id + "_total_amt"}
}

// aggregatesOf builds aggregates directly, bypassing the resolver.
func aggregatesOf(src Source, amounts map[string]string) *SourceAggregates {
	out := &SourceAggregates{Source: src}
	for store, amount := range amounts {
		out.Rows = append(out.Rows, SourceAggregate{
			SourceID: src.ID,
			Store:    Canonicalize(store),
			Amount:   dec(amount),
			Records:  1,
		})
	}
	return out
}
