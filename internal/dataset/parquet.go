package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

const parquetBatch = 1000

// parquetColumns holds leaf column indexes by dataset column name; -1 when absent.
type parquetColumns map[string]int

func resolveParquetColumns(pf *parquet.File) (parquetColumns, error) {
	paths := pf.Schema().Columns()
	header := make([]string, len(paths))
	for i, path := range paths {
		if len(path) > 0 {
			header[i] = path[0]
		}
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}
	cols := make(parquetColumns, len(Columns))
	for _, c := range Columns {
		cols[c] = -1
		if i, ok := idx[c]; ok {
			cols[c] = i
		}
	}
	return cols, nil
}

func readParquetFile(ctx context.Context, path string) ([]claim.Fields, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	return ReadParquet(ctx, f, stat.Size())
}

// ReadParquet reads a claim-note Parquet file with the generic row reader.
// Columns are matched by name; string, integer, floating point and
// DATE (days since epoch) physical values are accepted.
func ReadParquet(ctx context.Context, r io.ReaderAt, size int64) ([]claim.Fields, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	cols, err := resolveParquetColumns(pf)
	if err != nil {
		return nil, err
	}

	out := make([]claim.Fields, 0, pf.NumRows())
	buf := make([]parquet.Row, parquetBatch)
	for _, rg := range pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return nil, err //nolint:wrapcheck // context error returned as-is
		}

		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				f, err := rowToFields(buf[i], cols)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", len(out)+1, err)
				}
				out = append(out, f)
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return out, nil
}

func rowToFields(row parquet.Row, cols parquetColumns) (claim.Fields, error) {
	var (
		f      claim.Fields
		amount string
	)
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols[ColClaimNumber]:
			f.ClaimNumber = valueString(v)
		case cols[ColClaimType]:
			f.ClaimType = valueString(v)
		case cols[ColLossType]:
			f.LossType = valueString(v)
		case cols[ColAgencyParent]:
			f.AgencyParent = valueString(v)
		case cols[ColAgencyName]:
			f.AgencyName = valueString(v)
		case cols[ColAssertedDate]:
			f.AssertedDate = dateString(v)
		case cols[ColTotalIncurred]:
			amount = valueString(v)
		case cols[ColNoteType]:
			f.NoteType = valueString(v)
		case cols[ColNote]:
			f.Note = sql.NullString{String: valueString(v), Valid: true}
		}
	}
	total, err := parseAmount(amount)
	if err != nil {
		return claim.Fields{}, fmt.Errorf("%s: %w", ColTotalIncurred, err)
	}
	f.TotalIncurred = total
	return f, nil
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	}
	return strings.TrimSpace(v.String())
}

// dateString renders an INT32 date column as YYYY-MM-DD and passes strings through.
func dateString(v parquet.Value) string {
	if v.Kind() == parquet.Int32 {
		return time.Unix(int64(v.Int32())*86400, 0).UTC().Format(time.DateOnly)
	}
	return valueString(v)
}
