package recon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifferenceSignConvention(t *testing.T) {
	row := ReconciliationRow{
		LedgerAdvance: dec("100"),
		LedgerNew:     dec("50"),
		Settlements:   map[string]decimal.Decimal{"sbi": dec("70"), "paytm": dec("50")},
	}

	assertAmount(t, "150", Expected(row))
	assertAmount(t, "120", Received(row))
	assertAmount(t, "30", Difference(row), "under-collection is positive")

	row.Settlements["hdfc"] = dec("60")
	assertAmount(t, "-30", Difference(row), "over-settlement is negative")
}

func TestDifferenceAssociativeAcrossSources(t *testing.T) {
	amounts := []string{"10.10", "-3.05", "7", "0.95", "100"}

	expectedReceived := decimal.Zero
	row := ReconciliationRow{LedgerAdvance: dec("200"), Settlements: map[string]decimal.Decimal{}}
	for i, amount := range amounts {
		row.Settlements[string(rune('a'+i))] = dec(amount)
		expectedReceived = expectedReceived.Add(dec(amount))
		assertAmount(t, dec("200").Sub(expectedReceived).String(), Difference(row), "after %d sources", i+1)
	}
}

func TestApplyDifferenceZeroIsReconciled(t *testing.T) {
	row := ApplyDifference(ReconciliationRow{
		LedgerAdvance: dec("60"),
		Settlements:   map[string]decimal.Decimal{"sbi": dec("40"), "paytm": dec("20.00")},
	})
	assertAmount(t, "60", row.TotalReceived)
	assert.True(t, row.Reconciled())
}

func TestApplyDifferenceNoSources(t *testing.T) {
	row := ApplyDifference(ReconciliationRow{})
	assert.True(t, row.TotalReceived.IsZero())
	assert.True(t, row.Difference.IsZero())
}

func TestBusinessDate(t *testing.T) {
	d, err := ParseBusinessDate("2023-12-28")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-28", d.String())
	assert.Equal(t, "20231228", d.Compact())

	assert.True(t, d.Contains(time.Date(2023, 12, 28, 23, 59, 59, 0, time.UTC)))
	assert.False(t, d.Contains(time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC)))

	start, end := d.Window()
	assert.Equal(t, "2023-12-28 00:00:00", start.Format("2006-01-02 15:04:05"))
	assert.Equal(t, "2023-12-28 23:59:59", end.Format("2006-01-02 15:04:05"))

	_, err = ParseBusinessDate("28/12/2023")
	assert.Error(t, err)
	assert.True(t, BusinessDate{}.IsZero())
}
