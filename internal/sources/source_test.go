package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/ledgerdb"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
)

var businessDate = recon.BusinessDate{Year: 2023, Month: time.December, Day: 28}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// sourceConfig parses a single-source configuration and returns the source.
func sourceConfig(t *testing.T, source string) config.SourceConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(`
mapping_file: master.xlsx
ledger_db: {dsn: ":memory:"}
sources:
` + source))
	require.NoError(t, err)
	return cfg.Sources[0]
}

func fetch(t *testing.T, cfg config.SourceConfig, deps Deps) ([]recon.SourceRecord, error) {
	t.Helper()
	deps.Logger = zap.NewNop()
	adapter, err := New(cfg, businessDate, deps)
	require.NoError(t, err)
	return adapter.Fetch(context.Background())
}

func amounts(records []recon.SourceRecord) map[string]string {
	out := make(map[string]string)
	for _, r := range records {
		out[r.NativeKey] = r.Amount.String()
	}
	return out
}

func TestCardFile(t *testing.T) {
	path := writeFile(t, "SBI CC.csv", "TID,Tran Date,Net Amount\n"+
		"'1001,2023-12-28,100.50\n"+
		"'1002,28-Dec-2023 14:05:00,-20\n"+
		"'1003,2023-12-27,999\n"+
		"'1004,2023-12-28,\n"+
		",,\"12,000.00\"\n")

	cfg := sourceConfig(t, fmt.Sprintf("  - {id: sbi, kind: card, path: %q}\n", path))
	records, err := fetch(t, cfg, Deps{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"1001": "100.5", "1002": "-20", "1004": "0"}, amounts(records),
		"other dates and undated rows are dropped, blank amounts are zero")
	for _, r := range records {
		assert.Equal(t, "sbi", r.SourceID)
		assert.Equal(t, businessDate, r.BusinessDate)
	}
}

func TestWalletFile(t *testing.T) {
	content, err := charmap.ISO8859_1.NewEncoder().String("original_mid,transaction_date,amount,Café\n" +
		"'MID01,'28-12-2023 10:00:00,'1500.00,x\n" +
		"'MID01,'28-12-2023 11:00:00,'INR 20.25 + 4.75,x\n" +
		"'MID02,'29-12-2023 00:00:01,'99.00,x\n")
	require.NoError(t, err)
	path := writeFile(t, "paytm.csv", content)

	cfg := sourceConfig(t, fmt.Sprintf("  - {id: paytm, kind: wallet, path: %q}\n", path))
	records, err := fetch(t, cfg, Deps{})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "MID01", records[0].NativeKey)
	assert.Equal(t, "1500", records[0].Amount.String())
	assert.Equal(t, "25", records[1].Amount.String())
}

func TestLedgerNewFile(t *testing.T) {
	path := writeFile(t, "ledger.csv", "Journal report\n"+
		"Ledger,Entry type long,Source Short Name,Balance SUM\n"+
		"Credit Card Receivable,POS Journal,Vmart Delhi,500\n"+
		"Credit Card Receivable,Manual Journal,Vmart Delhi,7\n"+
		"Cash,POS Journal,Vmart Delhi,9\n"+
		"Credit Card Receivable,POS Journal,Vmart Noida,(12.50)\n")

	cfg := sourceConfig(t, fmt.Sprintf("  - {id: new, kind: ledger_new, path: %q}\n", path))
	records, err := fetch(t, cfg, Deps{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Vmart Delhi": "500", "Vmart Noida": "-12.5"}, amounts(records))
}

func TestGatewayTabSeparatedSumsColumns(t *testing.T) {
	path := writeFile(t, "HDFC.tsv", "TERMINAL NUMBER\tDOMESTIC AMT\tINTNL AMT\n"+
		"H1\t100.00\t\n"+
		"H2\t\t25.00\n"+
		"H3\t10\t5\n")

	cfg := sourceConfig(t, fmt.Sprintf(`  - id: hdfc
    kind: gateway
    path: %q
    key_column: TERMINAL NUMBER
    amount_columns: [DOMESTIC AMT, INTNL AMT]
`, path))
	assert.Equal(t, "hdfc_total_amt", cfg.Column)

	records, err := fetch(t, cfg, Deps{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"H1": "100", "H2": "25", "H3": "15"}, amounts(records))
}

func TestGatewayWorkbook(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Supplier ID", "Invoice Date", "Invoice Amt"},
		{"'D-01", "'28/12/2023", "250.75"},
		{"'D-02", "'27/12/2023", "10"},
	}
	for i, row := range rows {
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &values))
	}
	path := filepath.Join(t.TempDir(), "Bajaj.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cfg := sourceConfig(t, fmt.Sprintf(`  - id: bajaj
    kind: gateway
    path: %q
    key_column: Supplier ID
    amount_columns: [Invoice Amt]
    date_column: Invoice Date
    date_layouts: ["02/01/2006"]
    transformation_rules:
      - {field: Supplier ID, actions: [{type: strip_quotes}]}
      - {field: Invoice Date, actions: [{type: strip_quotes}]}
`, path))
	assert.Equal(t, config.FormatXLSX, cfg.Format)

	records, err := fetch(t, cfg, Deps{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"D-01": "250.75"}, amounts(records))
}

func TestMissingColumnIsShapeError(t *testing.T) {
	path := writeFile(t, "SBI CC.csv", "Terminal,Tran Date,Net Amount\n1,2023-12-28,1\n")

	cfg := sourceConfig(t, fmt.Sprintf("  - {id: sbi, kind: card, path: %q}\n", path))
	_, err := fetch(t, cfg, Deps{})

	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindShape, verr.Kind)
	assert.Equal(t, []string{"TID"}, verr.Fields)
	assert.Equal(t, "Missing 'TID' column(s) in SBI CC.csv.", verr.Message)
}

func TestWrongExtensionIsShapeError(t *testing.T) {
	cfg := sourceConfig(t, `  - id: hdfc
    kind: gateway
    path: /in/HDFC.xlsb
    key_column: TERMINAL NUMBER
    amount_columns: [DOMESTIC AMT]
`)
	_, err := fetch(t, cfg, Deps{})

	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindShape, verr.Kind)
	assert.Contains(t, verr.Message, "HDFC.xlsb")

	cfg = sourceConfig(t, "  - {id: sbi, kind: card, path: /in/sbi.xlsx}\n")
	_, err = fetch(t, cfg, Deps{})
	verr, ok = validation.As(err)
	require.True(t, ok)
	assert.Contains(t, verr.Message, ".csv, .txt, .tsv")
}

func TestUnparseableValuesAreParseErrors(t *testing.T) {
	badDate := writeFile(t, "sbi.csv", "TID,Tran Date,Net Amount\n1,yesterday,1\n")
	cfg := sourceConfig(t, fmt.Sprintf("  - {id: sbi, kind: card, path: %q}\n", badDate))
	_, err := fetch(t, cfg, Deps{})
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindParse, verr.Kind)
	assert.Equal(t, 2, verr.Row)
	assert.Equal(t, "yesterday", verr.Value)

	badAmount := writeFile(t, "sbi.csv", "TID,Tran Date,Net Amount\n1,2023-12-28,1\n2,2023-12-28,N/A\n")
	cfg = sourceConfig(t, fmt.Sprintf("  - {id: sbi, kind: card, path: %q}\n", badAmount))
	_, err = fetch(t, cfg, Deps{})
	verr, ok = validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindParse, verr.Kind)
	assert.Equal(t, []string{"Net Amount"}, verr.Fields)
	assert.Equal(t, 3, verr.Row)
}

func TestMissingFileIsIOError(t *testing.T) {
	cfg := sourceConfig(t, fmt.Sprintf("  - {id: sbi, kind: card, path: %q}\n", filepath.Join(t.TempDir(), "none.csv")))
	_, err := fetch(t, cfg, Deps{})

	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindIO, verr.Kind)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLedgerAdvance(t *testing.T) {
	ctx := context.Background()
	store, err := ledgerdb.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	day := time.Date(2023, 12, 28, 11, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertBill(ctx, "S01", "Credit Card", "60", day))
	require.NoError(t, store.InsertBill(ctx, "S01", "Paytm_EDC_1", "15.5", day))
	require.NoError(t, store.InsertBill(ctx, "S02", "Cash", "40", day))

	cfg := sourceConfig(t, "  - {id: advance, kind: ledger_advance}\n")
	adapter, err := New(cfg, businessDate, Deps{Ledger: store, Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, recon.RoleLedgerAdvance, adapter.Source().Role)
	assert.Equal(t, "total_ginesys_advance", adapter.Source().Column)

	records, err := adapter.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "S01", records[0].NativeKey)
	assert.Equal(t, "60", records[0].Amount.String())
	assert.Equal(t, "15.5", records[1].Amount.String())

	_, err = New(cfg, businessDate, Deps{})
	assert.Error(t, err, "ledger source without a database")
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, recon.RoleSettlement, RoleOf(config.KindCard))
	assert.Equal(t, recon.RoleSettlement, RoleOf(config.KindGateway))
	assert.Equal(t, recon.RoleLedgerNew, RoleOf(config.KindLedgerNew))
}
