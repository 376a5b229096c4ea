package claim

import (
	"database/sql"
	"slices"
)

// Set is an ordered, read-only collection of records.
// Derived sets share record values with their parent; each record keeps the
// index of its row in the base dataset.
type Set struct {
	records []Record
}

// NewBase builds the base set, assigning each record its position as source index.
func NewBase(records []Record) Set {
	out := make([]Record, len(records))
	for i, r := range records {
		r.sourceIndex = i
		out[i] = r
	}
	return Set{records: out}
}

// Len returns the number of records.
func (s Set) Len() int { return len(s.records) }

// IsEmpty reports whether the set has no records.
func (s Set) IsEmpty() bool { return len(s.records) == 0 }

// At returns the i-th record.
func (s Set) At(i int) Record { return s.records[i] }

// Records returns a copy of the records in order.
func (s Set) Records() []Record { return slices.Clone(s.records) }

// SourceIndexes returns the base-dataset index of every record, in order.
func (s Set) SourceIndexes() []int {
	out := make([]int, len(s.records))
	for i := range s.records {
		out[i] = s.records[i].sourceIndex
	}
	return out
}

// SearchNotes returns the search copy of every note, aligned with the set.
func (s Set) SearchNotes() []sql.NullString {
	out := make([]sql.NullString, len(s.records))
	for i := range s.records {
		out[i] = s.records[i].searchNote
	}
	return out
}

// Select keeps the records for which keep returns true, preserving order.
func (s Set) Select(keep func(*Record) bool) Set {
	out := make([]Record, 0, len(s.records))
	for i := range s.records {
		if keep(&s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return Set{records: out}
}

// SelectAt keeps the records at the positions for which keep returns true,
// preserving order.
func (s Set) SelectAt(keep func(i int) bool) Set {
	out := make([]Record, 0, len(s.records))
	for i := range s.records {
		if keep(i) {
			out = append(out, s.records[i])
		}
	}
	return Set{records: out}
}

// SortByYearDesc returns a copy stably sorted by asserted year, newest first.
// Records without a year sort last.
func (s Set) SortByYearDesc() Set {
	out := slices.Clone(s.records)
	slices.SortStableFunc(out, func(a, b Record) int {
		switch {
		case a.assertedYear == b.assertedYear:
			return 0
		case a.assertedYear == 0:
			return 1
		case b.assertedYear == 0:
			return -1
		case a.assertedYear > b.assertedYear:
			return -1
		default:
			return 1
		}
	})
	return Set{records: out}
}

// Limit returns at most n leading records. n <= 0 returns the set unchanged.
func (s Set) Limit(n int) Set {
	if n <= 0 || n >= len(s.records) {
		return s
	}
	return Set{records: s.records[:n:n]}
}

// UniqueClaims counts distinct non-empty claim numbers.
func (s Set) UniqueClaims() int {
	seen := make(map[string]struct{}, len(s.records))
	for i := range s.records {
		if id := s.records[i].claimNumber; id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// Values returns the distinct non-missing values of a field in order of first appearance.
func (s Set) Values(f Field) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range s.records {
		v, ok := s.records[i].Value(f)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// YearBounds returns the smallest and largest known asserted year.
// ok is false when no record has a year.
func (s Set) YearBounds() (lo, hi int, ok bool) {
	for i := range s.records {
		y := s.records[i].assertedYear
		if y == 0 {
			continue
		}
		if !ok || y < lo {
			lo = y
		}
		if !ok || y > hi {
			hi = y
		}
		ok = true
	}
	return lo, hi, ok
}
