// Package export renders a final record set for download or display.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

// Header is the column order of every export.
var Header = []string{"CLAIM_NUMBER", "ASSERTED_YEAR", "TOTAL_INCURRED", "NOTE_TYPE", "NOTE_DESCRIPTION"}

// Row is one displayed record. Note is the original, unmodified note text.
type Row struct {
	SourceIndex   int
	ClaimNumber   string
	AssertedYear  int // 0 when unknown
	TotalIncurred float64
	NoteType      string
	Note          string
	HasNote       bool
}

// Rows converts a record set into display rows, preserving order.
func Rows(set claim.Set) []Row {
	out := make([]Row, set.Len())
	for i := range out {
		r := set.At(i)
		out[i] = Row{
			SourceIndex:   r.SourceIndex(),
			ClaimNumber:   r.ClaimNumber(),
			AssertedYear:  r.AssertedYear(),
			TotalIncurred: r.TotalIncurred(),
			NoteType:      r.NoteType(),
			Note:          r.Note().String,
			HasNote:       r.Note().Valid,
		}
	}
	return out
}

func (r Row) cells() []string {
	year := ""
	if r.AssertedYear != 0 {
		year = strconv.Itoa(r.AssertedYear)
	}
	return []string{
		r.ClaimNumber,
		year,
		strconv.FormatFloat(r.TotalIncurred, 'f', -1, 64),
		r.NoteType,
		r.Note,
	}
}

// WriteCSV writes the header and one line per record.
func WriteCSV(w io.Writer, set claim.Set) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range Rows(set) {
		if err := cw.Write(r.cells()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteTable writes an aligned text table for terminals. Notes longer than
// maxNote runes are truncated; maxNote <= 0 disables truncation.
func WriteTable(w io.Writer, set claim.Set, maxNote int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(Header, "\t")); err != nil {
		return fmt.Errorf("write table header: %w", err)
	}
	for _, r := range Rows(set) {
		cells := r.cells()
		cells[4] = truncate(oneLine(cells[4]), maxNote)
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return fmt.Errorf("write table row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Filename returns a download name for an export.
func Filename() string { return "claim_notes_search.csv" }
