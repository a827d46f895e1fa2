package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
)

// writeWorkbook saves a workbook with the given sheets, each a list of rows.
func writeWorkbook(t *testing.T, sheets []string, rows map[string][][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}

	path := filepath.Join(t.TempDir(), "master.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadSheetByIndexAndHeaderRow(t *testing.T) {
	path := writeWorkbook(t, []string{"Summary", "PAYTM"}, map[string][][]interface{}{
		"Summary": {{"ignored"}},
		"PAYTM": {
			{"Paytm master list"},
			{"Production Mid", "LOCATION"},
			{"MID001", "Vmart Delhi"},
			{},
			{"MID002", "Vmart Noida"},
		},
	})

	table, err := ReadSheet(path, config.SheetSettings{Index: 1, HeaderRow: 2})
	require.NoError(t, err)

	assert.Equal(t, "PAYTM", table.Sheet)
	assert.Equal(t, []string{"Production Mid", "LOCATION"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "MID001", table.Rows[0].Fields["Production Mid"])
	assert.Equal(t, 3, table.Rows[0].Number)
	assert.Equal(t, "Vmart Noida", table.Rows[1].Fields["LOCATION"])
	assert.Equal(t, 5, table.Rows[1].Number)
}

func TestReadSheetByName(t *testing.T) {
	path := writeWorkbook(t, []string{"A", "BAJAJ"}, map[string][][]interface{}{
		"BAJAJ": {
			{"BFL\nDEALER CODE", "", "Store name"},
			{"D-01", "x", "Vmart Delhi"},
			{"D-02"},
		},
	})

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"A", "BAJAJ"}, wb.Sheets())

	table, err := wb.ReadSheet(config.SheetSettings{Name: "BAJAJ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BFL\nDEALER CODE", "Column_B", "Store name"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "", table.Rows[1].Fields["Store name"], "short rows are padded")
}

func TestReadSheetSelectionErrors(t *testing.T) {
	path := writeWorkbook(t, []string{"Only"}, map[string][][]interface{}{
		"Only": {{"h"}},
	})

	wb, err := Open(path)
	require.NoError(t, err)
	defer wb.Close()

	_, err = wb.ReadSheet(config.SheetSettings{Name: "Missing"})
	assert.ErrorContains(t, err, `no sheet named "Missing"`)

	_, err = wb.ReadSheet(config.SheetSettings{Index: 11})
	assert.ErrorContains(t, err, "sheet #11")

	_, err = wb.ReadSheet(config.SheetSettings{HeaderRow: 4})
	assert.ErrorContains(t, err, "ends before header row 4")
}

func TestOpenMissingWorkbook(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
