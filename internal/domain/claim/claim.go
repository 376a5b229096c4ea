// Package claim holds the claim-note record and the ordered record set that
// every filter and search stage narrows.
package claim

import (
	"database/sql"
	"regexp"
	"strings"
	"time"
)

// Field names a categorical attribute that can be filtered on.
type Field string

// Categorical field names, matching the dataset column headers.
const (
	ClaimType    Field = "CLAIM_TYPE"
	LossType     Field = "LOSS_TYPE"
	AgencyParent Field = "AGENCY_PARENT"
	AgencyName   Field = "AGENCY_NAME"
	NoteType     Field = "NOTE_TYPE"
)

// CategoricalFields lists the filterable fields in display order.
var CategoricalFields = []Field{ClaimType, LossType, AgencyParent, AgencyName, NoteType}

// IsValid checks if the field is a known categorical field.
func (f Field) IsValid() bool {
	switch f {
	case ClaimType, LossType, AgencyParent, AgencyName, NoteType:
		return true
	}
	return false
}

// dateLayouts are the accepted ASSERTED_DATE formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

var nonSearchable = regexp.MustCompile(`[^A-Za-z0-9 ]+`)

// Fields is the raw input for New.
type Fields struct {
	ClaimNumber   string
	ClaimType     string
	LossType      string
	AgencyParent  string
	AgencyName    string
	AssertedDate  string
	TotalIncurred float64
	NoteType      string
	Note          sql.NullString
}

// Record is one claim note row (immutable value object).
// The search copy of the note is derived once and never shown to users.
type Record struct {
	sourceIndex   int
	claimNumber   string
	claimType     string
	lossType      string
	agencyParent  string
	agencyName    string
	assertedDate  string
	assertedYear  int
	totalIncurred float64
	noteType      string
	note          sql.NullString
	searchNote    sql.NullString
}

// New creates a Record, deriving the asserted year and the note's search copy.
// An unparseable date leaves the year unknown (0).
func New(f Fields) Record {
	date := strings.TrimSpace(f.AssertedDate)
	return Record{
		sourceIndex:   -1,
		claimNumber:   strings.TrimSpace(f.ClaimNumber),
		claimType:     strings.TrimSpace(f.ClaimType),
		lossType:      strings.TrimSpace(f.LossType),
		agencyParent:  strings.TrimSpace(f.AgencyParent),
		agencyName:    strings.TrimSpace(f.AgencyName),
		assertedDate:  date,
		assertedYear:  ParseYear(date),
		totalIncurred: f.TotalIncurred,
		noteType:      strings.TrimSpace(f.NoteType),
		note:          f.Note,
		searchNote:    NormalizeNote(f.Note),
	}
}

// NormalizeNote strips every character outside [A-Za-z0-9 ] from a note.
// A missing note stays missing.
func NormalizeNote(note sql.NullString) sql.NullString {
	if !note.Valid {
		return note
	}
	return sql.NullString{String: nonSearchable.ReplaceAllString(note.String, ""), Valid: true}
}

// ParseYear extracts the year from a date string, or 0 when it cannot be parsed.
func ParseYear(date string) int {
	if date == "" {
		return 0
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Year()
		}
	}
	return 0
}

// SourceIndex returns the row position in the base dataset, or -1 if unset.
func (r *Record) SourceIndex() int { return r.sourceIndex }

// ClaimNumber returns the claim identifier.
func (r *Record) ClaimNumber() string { return r.claimNumber }

// AssertedDate returns the date as loaded.
func (r *Record) AssertedDate() string { return r.assertedDate }

// AssertedYear returns the year derived from the asserted date (0 if unknown).
func (r *Record) AssertedYear() int { return r.assertedYear }

// HasYear reports whether the asserted year is known.
func (r *Record) HasYear() bool { return r.assertedYear != 0 }

// TotalIncurred returns the incurred amount.
func (r *Record) TotalIncurred() float64 { return r.totalIncurred }

// NoteType returns the note type.
func (r *Record) NoteType() string { return r.noteType }

// Note returns the original, unmodified note text.
func (r *Record) Note() sql.NullString { return r.note }

// SearchNote returns the punctuation-stripped copy used for matching.
func (r *Record) SearchNote() sql.NullString { return r.searchNote }

// Value returns a categorical field value. ok is false when the value is missing.
func (r *Record) Value(f Field) (v string, ok bool) {
	switch f {
	case ClaimType:
		v = r.claimType
	case LossType:
		v = r.lossType
	case AgencyParent:
		v = r.agencyParent
	case AgencyName:
		v = r.agencyName
	case NoteType:
		v = r.noteType
	}
	return v, v != ""
}

// Fields returns the raw input the record was built from.
func (r *Record) Fields() Fields {
	return Fields{
		ClaimNumber:   r.claimNumber,
		ClaimType:     r.claimType,
		LossType:      r.lossType,
		AgencyParent:  r.agencyParent,
		AgencyName:    r.agencyName,
		AssertedDate:  r.assertedDate,
		TotalIncurred: r.totalIncurred,
		NoteType:      r.noteType,
		Note:          r.note,
	}
}
