package pipeline

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
	"go.uber.org/zap/zaptest"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/config"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/ledgerdb"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
	"github.com/ginjaninja78/store-sale-reconciliation/internal/validation"
)

var businessDate = recon.BusinessDate{Year: 2023, Month: time.December, Day: 28}

// fixture is a complete set of run inputs in a temporary directory.
type fixture struct {
	dir     string
	sbiFile string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeMapping(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]interface{}{
		"SBI": {
			{"TID", "LOCATION NAME"},
			{"1001", "Vmart Delhi"},
			{"1002", "VMART  NOIDA"},
		},
		"HDFC": {
			{"TERMINAL NUMBER", "Store name"},
			{"H1", "Vmart Delhi"},
			{"H2", "Vmart Pune"},
		},
	}
	require.NoError(t, f.SetSheetName("Sheet1", "SBI"))
	_, err := f.NewSheet("HDFC")
	require.NoError(t, err)

	for sheet, rows := range sheets {
		for i, row := range rows {
			values := row
			require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &values))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func writeLedger(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	writeFile(t, path, "")

	store, err := ledgerdb.Open("sqlite3", path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.EnsureSchema(ctx))

	require.NoError(t, store.InsertSite(ctx, "S01", "Vmart Delhi"))
	require.NoError(t, store.InsertSite(ctx, "S02", "Vmart Noida"))

	day := time.Date(2023, 12, 28, 12, 30, 0, 0, time.UTC)
	require.NoError(t, store.InsertBill(ctx, "S01", "Credit Card", "60", day))
	require.NoError(t, store.InsertBill(ctx, "S01", "Paytm_EDC_1", "40", day))
	require.NoError(t, store.InsertBill(ctx, "S02", "Credit Card", "10", day))
	require.NoError(t, store.InsertBill(ctx, "S01", "Credit Card", "999", day.AddDate(0, 0, -1)))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	writeMapping(t, filepath.Join(dir, "master.xlsx"))
	writeLedger(t, filepath.Join(dir, "ginesys.db"))

	writeFile(t, filepath.Join(dir, "ledger.csv"), "Journal report\n"+
		"Ledger,Entry type long,Source Short Name,Balance SUM\n"+
		"Credit Card Receivable,POS Journal,Vmart Delhi,50\n")
	writeFile(t, filepath.Join(dir, "sbi.csv"), "TID,Tran Date,Net Amount\n"+
		"'1001,2023-12-28,120\n"+
		"'1002,2023-12-28,15\n"+
		"'9999,2023-12-28,5\n")
	writeFile(t, filepath.Join(dir, "HDFC.tsv"), "TERMINAL NUMBER\tDOMESTIC AMT\tINTNL AMT\n"+
		"H1\t20\t10\n"+
		"H2\t100\t\n")

	return &fixture{dir: dir, sbiFile: filepath.Join(dir, "sbi.csv")}
}

func (f *fixture) config(t *testing.T) *config.Config {
	t.Helper()
	in := func(name string) string { return filepath.Join(f.dir, name) }

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
business_date: 2023-12-28
output_dir: %q
formats: [csv, xlsx, xml]
max_concurrency: 2
mapping_file: %q
ledger_db: {dsn: %q}
sources:
  - {id: advance, kind: ledger_advance}
  - {id: new, kind: ledger_new, path: %q}
  - {id: sbi, kind: card, path: %q, mapping: {sheet: {name: SBI}}}
  - id: hdfc
    kind: gateway
    path: %q
    key_column: TERMINAL NUMBER
    amount_columns: [DOMESTIC AMT, INTNL AMT]
    exclude_stores: ["vmart pune"]
    mapping: {sheet: {name: HDFC}}
`, in("out"), in("master.xlsx"), in("ginesys.db"), in("ledger.csv"), f.sbiFile, in("HDFC.tsv"))))
	require.NoError(t, err)
	return cfg
}

func TestRunReconciles(t *testing.T) {
	fx := newFixture(t)
	p := New(fx.config(t), businessDate, zaptest.NewLogger(t))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.RunID(), res.RunID)

	require.Len(t, res.Table.Rows, 2, "the excluded store gets no row")

	delhi, ok := res.Table.Row("VMART DELHI")
	require.True(t, ok)
	assert.Equal(t, "100", delhi.LedgerAdvance.String())
	assert.Equal(t, "50", delhi.LedgerNew.String())
	assert.Equal(t, "120", delhi.Settlement("sbi").String())
	assert.Equal(t, "30", delhi.Settlement("hdfc").String())
	assert.True(t, delhi.Reconciled())

	noida, ok := res.Table.Row("VMART NOIDA")
	require.True(t, ok)
	assert.Equal(t, "-5", noida.Difference.String())

	assert.Equal(t, []string{"sbi", "hdfc"}, []string{res.Table.Settlements[0].ID, res.Table.Settlements[1].ID})

	require.Len(t, res.Aggregates, 4)
	assert.Equal(t, []string{"9999"}, res.Aggregates[2].Unmapped.NativeKeys)
	assert.Equal(t, 1, res.Aggregates[3].Excluded.Records)
	require.Len(t, res.Sections, 4)
	assert.Equal(t, "ledger query", res.Sections[0].Origin)
}

func TestWriteOutputs(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t)
	p := New(cfg, businessDate, zaptest.NewLogger(t))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reconciliation_20231228", p.BaseName(res))

	written, err := p.Write(res)
	require.NoError(t, err)

	base := filepath.Join(cfg.OutputDir, "reconciliation_20231228")
	assert.Equal(t, []string{base + ".csv", base + ".xlsx", base + ".xml", base + "_summary.txt"}, written)
	for _, path := range written {
		assert.FileExists(t, path)
	}

	csv, err := os.ReadFile(base + ".csv")
	require.NoError(t, err)
	assert.Equal(t, "STORE,total_ginesys_advance,total_ginesys_new,SBI_total_amt,hdfc_total_amt,total_CC_recd,Difference\n"+
		"VMART DELHI,100.00,50.00,120.00,30.00,150.00,0.00\n"+
		"VMART NOIDA,10.00,0.00,15.00,0.00,15.00,-5.00\n", string(csv))

	summary, err := os.ReadFile(base + "_summary.txt")
	require.NoError(t, err)
	assert.Contains(t, string(summary), res.RunID)
	assert.Contains(t, string(summary), "9999")
}

func TestRunStopsOnSourceError(t *testing.T) {
	fx := newFixture(t)
	writeFile(t, fx.sbiFile, "Terminal,Tran Date,Net Amount\n1,2023-12-28,1\n")
	cfg := fx.config(t)

	_, err := New(cfg, businessDate, zaptest.NewLogger(t)).Run(context.Background())
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindShape, verr.Kind)
	assert.Equal(t, "sbi", verr.Source)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestRunMissingLedger(t *testing.T) {
	fx := newFixture(t)
	cfg := fx.config(t)
	cfg.LedgerDB.DSN = filepath.Join(fx.dir, "absent.db")

	_, err := New(cfg, businessDate, nil).Run(context.Background())
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindIO, verr.Kind)
}

func TestCheckCollectsEveryError(t *testing.T) {
	fx := newFixture(t)
	writeFile(t, fx.sbiFile, "TID,Tran Date,Net Amount\n1,someday,1\n")
	cfg := fx.config(t)
	cfg.Sources[1].Path = filepath.Join(fx.dir, "missing.csv")

	errs := New(cfg, businessDate, nil).Check(context.Background())
	require.Len(t, errs, 2)

	first, ok := validation.As(errs[0])
	require.True(t, ok)
	assert.Equal(t, validation.KindIO, first.Kind)
	second, ok := validation.As(errs[1])
	require.True(t, ok)
	assert.Equal(t, validation.KindParse, second.Kind)
}

func TestCheckPassesOnGoodInputs(t *testing.T) {
	fx := newFixture(t)
	assert.Empty(t, New(fx.config(t), businessDate, nil).Check(context.Background()))
}
