package dataset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

type parquetClaim struct {
	ClaimNumber   string  `parquet:"CLAIM_NUMBER"`
	ClaimType     string  `parquet:"CLAIM_TYPE"`
	AgencyParent  string  `parquet:"AGENCY_PARENT"`
	AssertedDate  string  `parquet:"ASSERTED_DATE"`
	TotalIncurred float64 `parquet:"TOTAL_INCURRED"`
	Note          *string `parquet:"NOTE_DESCRIPTION,optional"`
}

func TestReadParquet(t *testing.T) {
	note := "Knee pain, see ER report."
	path := filepath.Join(t.TempDir(), "claims.parquet")
	err := parquet.WriteFile(path, []parquetClaim{
		{ClaimNumber: "P1", ClaimType: "SUIT", AgencyParent: "North", AssertedDate: "2020-02-02", TotalIncurred: 99.5, Note: &note},
		{ClaimNumber: "P2", ClaimType: "CLAIM", AgencyParent: "South", AssertedDate: "bad date"},
	})
	if err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	f, err := NewFile(Source{Path: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if f.Source().Format != Parquet {
		t.Fatalf("format = %q", f.Source().Format)
	}
	set, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("rows = %d, want 2", set.Len())
	}

	p1 := set.At(0)
	if p1.ClaimNumber() != "P1" || p1.TotalIncurred() != 99.5 || p1.AssertedYear() != 2020 {
		t.Errorf("p1 = %s %v %d", p1.ClaimNumber(), p1.TotalIncurred(), p1.AssertedYear())
	}
	if p1.Note().String != note {
		t.Errorf("note = %q", p1.Note().String)
	}
	if v, _ := p1.Value("AGENCY_PARENT"); v != "North" {
		t.Errorf("agency parent = %q", v)
	}

	p2 := set.At(1)
	if p2.Note().Valid {
		t.Error("null note should be missing")
	}
	if p2.HasYear() {
		t.Errorf("unparseable date produced year %d", p2.AssertedYear())
	}
}

func TestReadParquet_MissingRequiredColumn(t *testing.T) {
	type noNote struct {
		ClaimNumber string `parquet:"CLAIM_NUMBER"`
	}
	path := filepath.Join(t.TempDir(), "x.parquet")
	if err := parquet.WriteFile(path, []noNote{{ClaimNumber: "A"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := readParquetFile(context.Background(), path); err == nil {
		t.Error("expected error for missing NOTE_DESCRIPTION")
	}
}
