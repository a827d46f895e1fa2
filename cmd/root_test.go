package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
)

func TestResolveDate(t *testing.T) {
	now := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	date, err := resolveDate("2023-12-28", "2023-11-01", now)
	require.NoError(t, err)
	assert.Equal(t, "2023-12-28", date.String(), "the flag wins")

	date, err = resolveDate("", "2023-11-01", now)
	require.NoError(t, err)
	assert.Equal(t, "2023-11-01", date.String())

	date, err = resolveDate("", "", now)
	require.NoError(t, err)
	assert.Equal(t, recon.BusinessDate{Year: 2023, Month: time.December, Day: 31}, date)

	_, err = resolveDate("28-12-2023", "", now)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Store Sale Reconciliation")
	assert.Contains(t, out.String(), "Version:    "+Version)
}
