// Package ledgerdb reads the point-of-sale ledger database: the bill payment
// table behind the advance ledger source, and the site table that maps ledger
// site codes to store names.
package ledgerdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/store-sale-reconciliation/internal/recon"
)

//go:embed schema.sql
var schemaSQL string

// billDateLayout is the text form of BILLDATE bounds.
const billDateLayout = "2006-01-02"

// Store is a read-mostly handle on the ledger database.
type Store struct {
	db *sql.DB
}

// Collection is the total collected at one site with one payment method.
type Collection struct {
	SiteCode string
	Method   string
	Amount   decimal.Decimal
	Bills    int
}

// Pair is one row of a two-column mapping query.
type Pair struct {
	Key   string
	Value string
}

// Open connects to the ledger database.
//
// For sqlite3 a DSN naming a file that does not exist is an error rather than
// a new empty database.
func Open(driver, dsn string) (*Store, error) {
	if driver == "sqlite3" && isPlainPath(dsn) {
		if _, err := os.Stat(dsn); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// An in-memory database lives on a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the ledger tables where they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Collections sums the bill payments of one business date per site and
// payment method. Amounts are summed as decimals, not by the database.
func (s *Store) Collections(ctx context.Context, date recon.BusinessDate, methods []string) ([]Collection, error) {
	if len(methods) == 0 {
		return nil, nil
	}

	start, _ := date.Window()
	from := start.Format(billDateLayout)
	to := start.AddDate(0, 0, 1).Format(billDateLayout)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(methods)), ",")
	query := `SELECT ADMSITE_CODE, MOPDESC, CAST(BASEAMT AS TEXT)
		FROM PSITE_POSBILLMOP
		WHERE MOPDESC IN (` + placeholders + `)
		AND BILLDATE >= ? AND BILLDATE < ?`

	args := make([]any, 0, len(methods)+2)
	for _, m := range methods {
		args = append(args, m)
	}
	args = append(args, from, to)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bill payments: %w", err)
	}
	defer rows.Close()

	type groupKey struct{ site, method string }
	groups := make(map[groupKey]*Collection)

	for rows.Next() {
		var site, method string
		var amount sql.NullString
		if err := rows.Scan(&site, &method, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan bill payment: %w", err)
		}

		value := decimal.Zero
		if amount.Valid && strings.TrimSpace(amount.String) != "" {
			value, err = decimal.NewFromString(strings.TrimSpace(amount.String))
			if err != nil {
				return nil, fmt.Errorf("site %s: invalid BASEAMT %q: %w", site, amount.String, err)
			}
		}

		k := groupKey{site, method}
		c, ok := groups[k]
		if !ok {
			c = &Collection{SiteCode: site, Method: method}
			groups[k] = c
		}
		c.Amount = c.Amount.Add(value)
		c.Bills++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bill payments: %w", err)
	}

	out := make([]Collection, 0, len(groups))
	for _, c := range groups {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SiteCode != out[j].SiteCode {
			return out[i].SiteCode < out[j].SiteCode
		}
		return out[i].Method < out[j].Method
	})
	return out, nil
}

// Pairs runs a two-column query and returns its rows in result order.
// Rows with a NULL in either column are skipped.
func (s *Store) Pairs(ctx context.Context, query string) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run mapping query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping columns: %w", err)
	}
	if len(columns) != 2 {
		return nil, fmt.Errorf("mapping query must select 2 columns, got %d", len(columns))
	}

	var pairs []Pair
	for rows.Next() {
		var key, value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		if !key.Valid || !value.Valid {
			continue
		}
		pairs = append(pairs, Pair{Key: key.String, Value: value.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mapping rows: %w", err)
	}
	return pairs, nil
}

// InsertBill adds one bill payment row. Used to build local snapshots.
func (s *Store) InsertBill(ctx context.Context, site, method, amount string, billed time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO PSITE_POSBILLMOP (ADMSITE_CODE, MOPDESC, BASEAMT, BILLDATE) VALUES (?, ?, ?, ?)`,
		site, method, amount, billed.Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("failed to insert bill payment: %w", err)
	}
	return nil
}

// InsertSite adds one site row.
func (s *Store) InsertSite(ctx context.Context, code, name string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO ADMSITE (CODE, SHRTNAME) VALUES (?, ?)`, code, name); err != nil {
		return fmt.Errorf("failed to insert site: %w", err)
	}
	return nil
}

// isPlainPath reports whether a sqlite DSN is an ordinary file path.
func isPlainPath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}
