package search

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/claimsearch/internal/domain"
	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/policy"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/query"
)

// --- Mocks ---

type mockBase struct {
	set   claim.Set
	err   error
	calls int
}

func (m *mockBase) Load(_ context.Context) (claim.Set, error) {
	m.calls++
	return m.set, m.err
}

func row(number, claimType, parent, date, note string) claim.Record {
	return claim.New(claim.Fields{
		ClaimNumber:  number,
		ClaimType:    claimType,
		LossType:     "GEN LIAB",
		AgencyParent: parent,
		AgencyName:   parent + " agency",
		AssertedDate: date,
		NoteType:     "ADJUSTER",
		Note:         sql.NullString{String: note, Valid: true},
	})
}

func claimsBase() claim.Set {
	return claim.NewBase([]claim.Record{
		row("C1", "SUIT", "P1", "2015-03-01", "the pain"),
		row("C2", "SUIT", "P1", "2019-06-01", "painful"),
		row("C1", "CLAIM", "P2", "2017-01-01", "hospital"),
		row("C3", "SUIT", "P1", "2021-01-01", "pain management"),
		row("C4", "ALERT", "P2", "", "pain, again"),
	})
}

// --- Tests ---

func TestSearch_WholeWordPrimary(t *testing.T) {
	base := claim.NewBase([]claim.Record{
		row("A", "SUIT", "P", "", "the pain"),
		row("B", "SUIT", "P", "", "painful"),
		row("C", "SUIT", "P", "", "hospital"),
		row("D", "SUIT", "P", "", "pain management"),
	})
	svc := New(&mockBase{set: base}, zap.NewNop())

	res, err := svc.Search(context.Background(), &Request{
		Primary:   q(t, "pain", mode.WholeWord, 1),
		Secondary: query.Blank(mode.WholeWord),
		Tertiary:  query.Blank(mode.WholeWord),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Result.SourceIndexes(); !slices.Equal(got, []int{0, 3}) {
		t.Errorf("indexes = %v, want [0 3]", got)
	}
	if res.UniqueClaims != 2 {
		t.Errorf("unique claims = %d, want 2", res.UniqueClaims)
	}
	if res.FilteredRows != 4 {
		t.Errorf("filtered rows = %d, want 4", res.FilteredRows)
	}
}

func TestSearch_FilterThenSortByYear(t *testing.T) {
	in, err := filter.NewIn(claim.ClaimType, []string{"SUIT"})
	if err != nil {
		t.Fatal(err)
	}
	expr, err := filter.NewExpression([]filter.Condition{in}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	svc := New(&mockBase{set: claimsBase()}, nil)

	res, err := svc.Search(context.Background(), &Request{
		Filter:  expr,
		Primary: q(t, "pain", mode.Substring, 1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2021, 2019, 2015
	if got := res.Result.SourceIndexes(); !slices.Equal(got, []int{3, 1, 0}) {
		t.Errorf("indexes = %v, want [3 1 0]", got)
	}
	if res.FilteredRows != 3 {
		t.Errorf("filtered rows = %d, want 3", res.FilteredRows)
	}
}

func TestSearch_PolicyOverride(t *testing.T) {
	svc := New(&mockBase{set: claimsBase()}, nil).WithPolicy(policy.SkipOnBlankQuery)

	req := &Request{
		Primary:   query.Blank(mode.WholeWord),
		Secondary: q(t, "hospital", mode.WholeWord, 1),
	}
	res, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if rep := res.Report(Secondary); rep.Status != Skipped || rep.SkipReason != SkipBlankQuery {
		t.Errorf("secondary = %s/%s, want skipped/blank_query", rep.Status, rep.SkipReason)
	}
	if res.Policy != policy.SkipOnBlankQuery {
		t.Errorf("policy = %s", res.Policy)
	}

	req.Policy = policy.SkipOnEmptyInput
	res, err = svc.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if rep := res.Report(Secondary); rep.Status != Ran || rep.Matched != 1 {
		t.Errorf("secondary = %s matched=%d, want ran/1", rep.Status, rep.Matched)
	}
	if res.UniqueClaims != 1 {
		t.Errorf("unique claims = %d, want 1", res.UniqueClaims)
	}
}

func TestSearch_InvalidPolicy(t *testing.T) {
	svc := New(&mockBase{set: claimsBase()}, nil)

	_, err := svc.Search(context.Background(), &Request{Policy: "sometimes"})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearch_DatasetError(t *testing.T) {
	svc := New(&mockBase{err: errors.New("disk gone")}, nil)

	_, err := svc.Search(context.Background(), &Request{})
	if !errors.Is(err, domain.ErrDatasetUnavailable) {
		t.Errorf("expected ErrDatasetUnavailable, got %v", err)
	}
}

func TestSearch_DeterministicAcrossCalls(t *testing.T) {
	base := &mockBase{set: claimsBase()}
	svc := New(base, nil)
	req := &Request{Primary: q(t, "pain", mode.Substring, 1)}

	first, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(first.Result.SourceIndexes(), second.Result.SourceIndexes()) {
		t.Errorf("results differ: %v vs %v", first.Result.SourceIndexes(), second.Result.SourceIndexes())
	}
	if base.calls != 2 {
		t.Errorf("Load called %d times, want 2", base.calls)
	}
}

func TestSearch_ObserverAndLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	obs := &recordingObserver{}
	svc := New(&mockBase{set: claimsBase()}, zap.New(core)).WithObserver(obs)

	_, err := svc.Search(context.Background(), &Request{
		Primary: q(t, "pain", mode.WholeWord, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(obs.reports) != 3 {
		t.Errorf("observed %d stages, want 3", len(obs.reports))
	}
	if n := logs.FilterMessage("search stage").Len(); n != 3 {
		t.Errorf("logged %d stage entries, want 3", n)
	}
	if n := logs.FilterMessage("search completed").Len(); n != 1 {
		t.Errorf("logged %d completion entries, want 1", n)
	}
}

func TestOptions(t *testing.T) {
	svc := New(&mockBase{set: claimsBase()}, nil)

	opts, err := svc.Options(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := opts.Defaults.ClaimTypes; !slices.Equal(got, []string{"SUIT", "CLAIM", "ALERT"}) {
		t.Errorf("default claim types = %q", got)
	}
	if opts.YearMin != 2015 || opts.YearMax != 2021 {
		t.Errorf("years = %d..%d", opts.YearMin, opts.YearMax)
	}

	_, err = New(&mockBase{err: errors.New("x")}, nil).Options(context.Background(), nil)
	if !errors.Is(err, domain.ErrDatasetUnavailable) {
		t.Errorf("expected ErrDatasetUnavailable, got %v", err)
	}
}
