package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

func readCSVFile(ctx context.Context, path string) ([]claim.Fields, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(ctx, f)
}

// ReadCSV parses a claim-note CSV with a header row. Columns are matched by
// name in any order; unknown columns are ignored. An empty note cell is a
// missing note.
func ReadCSV(ctx context.Context, r io.Reader) ([]claim.Fields, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []claim.Fields
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err //nolint:wrapcheck // context error returned as-is
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(col string) string {
			if i, ok := idx[col]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}

		amount, err := parseAmount(cell(ColTotalIncurred))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColTotalIncurred, err)
		}
		note := cell(ColNote)

		rows = append(rows, claim.Fields{
			ClaimNumber:   cell(ColClaimNumber),
			ClaimType:     cell(ColClaimType),
			LossType:      cell(ColLossType),
			AgencyParent:  cell(ColAgencyParent),
			AgencyName:    cell(ColAgencyName),
			AssertedDate:  cell(ColAssertedDate),
			TotalIncurred: amount,
			NoteType:      cell(ColNoteType),
			Note:          sql.NullString{String: note, Valid: note != ""},
		})
	}
	return rows, nil
}
