package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenSQLite opens a SQLite database read-only.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func readSQLite(ctx context.Context, path, table string) ([]claim.Fields, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return ReadSQLite(ctx, db, table)
}

// ReadSQLite reads every row of table in rowid order. Optional columns that
// the table lacks are read as missing.
func ReadSQLite(ctx context.Context, db *sql.DB, table string) ([]claim.Fields, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	present, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	if _, err := columnIndex(present); err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(present))
	for _, c := range present {
		have[strings.ToUpper(c)] = true
	}

	exprs := make([]string, len(Columns))
	for i, c := range Columns {
		if have[c] {
			exprs[i] = `"` + c + `"`
		} else {
			exprs[i] = "NULL"
		}
	}
	q := fmt.Sprintf(`SELECT %s FROM "%s" ORDER BY rowid`, strings.Join(exprs, ", "), table)

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []claim.Fields
	for rows.Next() {
		var (
			number, claimType, lossType, parent, name sql.NullString
			date, noteType, note, amount              sql.NullString
		)
		if err := rows.Scan(
			&number, &claimType, &lossType, &parent, &name,
			&date, &amount, &noteType, &note,
		); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		total, err := parseAmount(amount.String)
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", len(out)+1, ColTotalIncurred, err)
		}
		out = append(out, claim.Fields{
			ClaimNumber:   number.String,
			ClaimType:     claimType.String,
			LossType:      lossType.String,
			AgencyParent:  parent.String,
			AgencyName:    name.String,
			AssertedDate:  date.String,
			TotalIncurred: total,
			NoteType:      noteType.String,
			Note:          note,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, nil
}
