package mapping

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/ledgerdb"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
)

// writeMaster saves a mapping workbook with a filler sheet and two sections.
func writeMaster(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]interface{}{
		"Cover": {{"Master file"}},
		"SBI": {
			{"TID", "LOCATION NAME"},
			{"1001", "Vmart Delhi"},
			{"1002", "vmart  noida"},
			{"1001", "Vmart Gurgaon"},
		},
		"BAJAJ": {
			{"Dealers"},
			{"BFL\nDEALER CODE", "Store name"},
			{"D-01", "Vmart Delhi"},
		},
	}
	order := []string{"Cover", "SBI", "BAJAJ"}

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			values := row
			require.NoError(t, f.SetSheetRow(name, fmt.Sprintf("A%d", r+1), &values))
		}
	}

	path := filepath.Join(t.TempDir(), "MASTER FILE.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func TestLoadSheetQueryAndIdentitySections(t *testing.T) {
	ctx := context.Background()
	master := writeMaster(t)

	ledger, err := ledgerdb.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer ledger.Close()
	require.NoError(t, ledger.EnsureSchema(ctx))
	require.NoError(t, ledger.InsertSite(ctx, "S01", "VMART DELHI"))

	cfg := parseConfig(t, fmt.Sprintf(`
mapping_file: %q
ledger_db: {dsn: ":memory:"}
sources:
  - id: sbi
    kind: card
    path: sbi.csv
    mapping: {sheet: {name: SBI}}
  - id: bajaj
    kind: gateway
    path: bajaj.xlsx
    key_column: Supplier ID
    amount_columns: [Invoice Amt]
    mapping:
      match: fold
      sheet: {index: 2, header_row: 2}
      key_column: "BFL\nDEALER CODE"
  - id: advance
    kind: ledger_advance
  - id: new
    kind: ledger_new
    path: ledger.csv
`, master))

	result, err := NewLoader(cfg, ledger, zap.NewNop()).Load(ctx)
	require.NoError(t, err)

	r := result.Resolver
	assert.Equal(t, recon.CanonicalStoreKey("VMART DELHI"), r.Resolve("sbi", "1001").Store, "first row wins")
	assert.Equal(t, recon.CanonicalStoreKey("VMART NOIDA"), r.Resolve("sbi", "1002").Store)
	require.Len(t, r.Conflicts(), 1)

	assert.Equal(t, recon.CanonicalStoreKey("VMART DELHI"), r.Resolve("bajaj", "d-01").Store)
	assert.Equal(t, recon.CanonicalStoreKey("VMART DELHI"), r.Resolve("advance", "S01").Store)
	assert.Equal(t, recon.CanonicalStoreKey("VMART KARNAL"), r.Resolve("new", "Vmart Karnal").Store)

	require.Len(t, result.Sections, 4)
	assert.Equal(t, 3, result.Sections[0].Rows)
	assert.Equal(t, recon.MatchFold, result.Sections[1].Mode)
	assert.Equal(t, "ledger query", result.Sections[2].Origin)
	assert.Equal(t, "identity", result.Sections[3].Origin)
}

func TestLoadMissingMappingColumn(t *testing.T) {
	master := writeMaster(t)

	cfg := parseConfig(t, fmt.Sprintf(`
mapping_file: %q
sources:
  - id: paytm
    kind: wallet
    path: paytm.csv
    mapping: {sheet: {name: SBI}}
`, master))

	_, err := NewLoader(cfg, nil, zap.NewNop()).Load(context.Background())
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindShape, verr.Kind)
	assert.Equal(t, []string{"Production Mid", "LOCATION"}, verr.Fields)
}

func TestLoadRejectsBinaryWorkbook(t *testing.T) {
	cfg := parseConfig(t, `
mapping_file: master.xlsb
sources:
  - id: sbi
    kind: card
    path: sbi.csv
`)

	_, err := NewLoader(cfg, nil, zap.NewNop()).Load(context.Background())
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Contains(t, verr.Message, "Wrong file type for master.xlsb")
}

func TestLoadMissingSheet(t *testing.T) {
	master := writeMaster(t)

	cfg := parseConfig(t, fmt.Sprintf(`
mapping_file: %q
sources:
  - id: sbi
    kind: card
    path: sbi.csv
`, master))

	_, err := NewLoader(cfg, nil, zap.NewNop()).Load(context.Background())
	verr, ok := validation.As(err)
	require.True(t, ok, "card defaults to sheet #11, which this workbook lacks")
	assert.Contains(t, verr.Message, "sheet #11")
}
