package chi

import (
	"fmt"

	"github.com/kailas-cloud/claimsearch/internal/domain"
	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/policy"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/query"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/terms"
	"github.com/kailas-cloud/claimsearch/internal/domain/selection"
	"github.com/kailas-cloud/claimsearch/internal/export"
	searchuc "github.com/kailas-cloud/claimsearch/internal/usecase/search"
)

// Open year bounds used when only one end of the range is given.
const (
	minYear = 1
	maxYear = 9999
)

// FilterRequest selects the base records to search. A nil field imposes no
// constraint; an empty list selects nothing.
type FilterRequest struct {
	ClaimType     *[]string `json:"claim_type,omitempty"`
	LossType      *[]string `json:"loss_type,omitempty"`
	AgencyParent  *[]string `json:"agency_parent,omitempty"`
	AgencyName    *[]string `json:"agency_name,omitempty"`
	NoteType      *[]string `json:"note_type,omitempty"`
	YearFrom      *int      `json:"year_from,omitempty"`
	YearTo        *int      `json:"year_to,omitempty"`
	MissingPasses *bool     `json:"missing_passes,omitempty"`
}

// StageRequest is one text stage: comma-separated terms and the minimum
// number of distinct terms a note must contain.
type StageRequest struct {
	Terms     string `json:"terms"`
	Threshold *int   `json:"threshold,omitempty"`
}

// SearchRequest is the body of POST /search and POST /search/export.
type SearchRequest struct {
	Filter    FilterRequest `json:"filter"`
	Mode      *string       `json:"mode,omitempty"`
	Policy    *string       `json:"policy,omitempty"`
	Primary   StageRequest  `json:"primary"`
	Secondary StageRequest  `json:"secondary"`
	Tertiary  StageRequest  `json:"tertiary"`
	Limit     *int          `json:"limit,omitempty"`
}

// SearchResponse is the body of a successful POST /search.
type SearchResponse struct {
	Records      int             `json:"records"`
	UniqueClaims int             `json:"unique_claims"`
	FilteredRows int             `json:"filtered_rows"`
	Policy       string          `json:"policy"`
	Stages       []StageResponse `json:"stages"`
	Warnings     []string        `json:"warnings"`
	Items        []ItemResponse  `json:"items"`
	Truncated    bool            `json:"truncated"`
}

// StageResponse reports one stage of a search.
type StageResponse struct {
	Stage        string   `json:"stage"`
	Status       string   `json:"status"`
	SkipReason   string   `json:"skip_reason,omitempty"`
	Terms        []string `json:"terms"`
	Mode         string   `json:"mode"`
	Threshold    int      `json:"threshold"`
	MaxThreshold int      `json:"max_threshold"`
	InputRows    int      `json:"input_rows"`
	Matched      int      `json:"matched"`
}

// ItemResponse is one matched record. NoteDescription is the original note.
type ItemResponse struct {
	SourceIndex     int     `json:"source_index"`
	ClaimNumber     string  `json:"claim_number"`
	AssertedYear    *int    `json:"asserted_year"`
	TotalIncurred   float64 `json:"total_incurred"`
	NoteType        string  `json:"note_type"`
	NoteDescription *string `json:"note_description"`
}

// OptionsResponse lists filter choices and the default selection.
type OptionsResponse struct {
	ClaimTypes    []string         `json:"claim_type"`
	LossTypes     []string         `json:"loss_type"`
	AgencyParents []string         `json:"agency_parent"`
	AgencyNames   []string         `json:"agency_name"`
	NoteTypes     []string         `json:"note_type"`
	YearMin       *int             `json:"year_min"`
	YearMax       *int             `json:"year_max"`
	Modes         []string         `json:"modes"`
	Policies      []string         `json:"policies"`
	Defaults      DefaultsResponse `json:"defaults"`
}

// DefaultsResponse is the initial filter selection.
type DefaultsResponse struct {
	ClaimType    []string `json:"claim_type"`
	LossType     []string `json:"loss_type"`
	AgencyParent []string `json:"agency_parent"`
	AgencyName   []string `json:"agency_name"`
	YearFrom     *int     `json:"year_from"`
	YearTo       *int     `json:"year_to"`
	Mode         string   `json:"mode"`
	Policy       string   `json:"policy"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Rows   int               `json:"rows"`
}

// Limits bounds and defaults request parameters.
type Limits struct {
	MaxTerms      int
	MaxLimit      int
	DefaultMode   mode.Mode
	MissingPasses bool
}

func (l Limits) withDefaults() Limits {
	if l.MaxTerms <= 0 {
		l.MaxTerms = 64
	}
	if l.MaxLimit <= 0 {
		l.MaxLimit = 1000
	}
	if !l.DefaultMode.IsValid() {
		l.DefaultMode = mode.Default
	}
	return l
}

// searchFromRequest validates req and converts it to a use case request.
func searchFromRequest(req *SearchRequest, lim Limits) (*searchuc.Request, error) {
	m := lim.DefaultMode
	if req.Mode != nil {
		parsed, err := mode.Parse(*req.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}
		m = parsed
	}

	var p policy.Policy
	if req.Policy != nil {
		parsed, err := policy.Parse(*req.Policy)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}
		p = parsed
	}

	expr, err := filterFromRequest(&req.Filter, lim.MissingPasses)
	if err != nil {
		return nil, err
	}

	out := &searchuc.Request{Filter: expr, Policy: p}
	stages := []struct {
		name string
		in   StageRequest
		dst  *query.Query
	}{
		{"primary", req.Primary, &out.Primary},
		{"secondary", req.Secondary, &out.Secondary},
		{"tertiary", req.Tertiary, &out.Tertiary},
	}
	for _, st := range stages {
		q, err := stageQuery(st.in, m, lim.MaxTerms)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidQuery, st.name, err)
		}
		*st.dst = q
	}
	return out, nil
}

func stageQuery(in StageRequest, m mode.Mode, maxTerms int) (query.Query, error) {
	threshold := 1
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	q, err := query.New(in.Terms, m, threshold)
	if err != nil {
		return query.Query{}, fmt.Errorf("new query: %w", err)
	}
	if len(q.Terms()) > maxTerms {
		return query.Query{}, fmt.Errorf("too many terms (max %d)", maxTerms)
	}
	return q, nil
}

func filterFromRequest(f *FilterRequest, missingPasses bool) (filter.Expression, error) {
	fields := []struct {
		field  claim.Field
		values *[]string
	}{
		{claim.ClaimType, f.ClaimType},
		{claim.LossType, f.LossType},
		{claim.AgencyParent, f.AgencyParent},
		{claim.AgencyName, f.AgencyName},
		{claim.NoteType, f.NoteType},
	}

	var conds []filter.Condition
	for _, fv := range fields {
		if fv.values == nil {
			continue
		}
		c, err := filter.NewIn(fv.field, *fv.values)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
		conds = append(conds, c)
	}

	var years *filter.YearRange
	if f.YearFrom != nil || f.YearTo != nil {
		from, to := minYear, maxYear
		if f.YearFrom != nil {
			from = *f.YearFrom
		}
		if f.YearTo != nil {
			to = *f.YearTo
		}
		yr, err := filter.NewYearRange(from, to)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
		years = &yr
	}

	if f.MissingPasses != nil {
		missingPasses = *f.MissingPasses
	}
	expr, err := filter.NewExpression(conds, years, missingPasses)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return expr, nil
}

func searchToResponse(res *searchuc.Result, limit int) SearchResponse {
	stages := make([]StageResponse, len(res.Stages))
	for i, rep := range res.Stages {
		stages[i] = StageResponse{
			Stage:        string(rep.Stage),
			Status:       string(rep.Status),
			SkipReason:   string(rep.SkipReason),
			Terms:        nonNil(rep.Query.Terms()),
			Mode:         string(rep.Query.Mode()),
			Threshold:    rep.Query.Threshold(),
			MaxThreshold: terms.MaxThreshold(rep.Query.Terms()),
			InputRows:    rep.InputRows,
			Matched:      rep.Matched,
		}
	}

	rows := export.Rows(res.Result.Limit(limit))
	items := make([]ItemResponse, len(rows))
	for i, r := range rows {
		items[i] = itemToResponse(r)
	}

	return SearchResponse{
		Records:      res.Result.Len(),
		UniqueClaims: res.UniqueClaims,
		FilteredRows: res.FilteredRows,
		Policy:       string(res.Policy),
		Stages:       stages,
		Warnings:     nonNil(res.Warnings),
		Items:        items,
		Truncated:    res.Result.Len() > len(items),
	}
}

func itemToResponse(r export.Row) ItemResponse {
	item := ItemResponse{
		SourceIndex:   r.SourceIndex,
		ClaimNumber:   r.ClaimNumber,
		TotalIncurred: r.TotalIncurred,
		NoteType:      r.NoteType,
	}
	if r.AssertedYear != 0 {
		y := r.AssertedYear
		item.AssertedYear = &y
	}
	if r.HasNote {
		n := r.Note
		item.NoteDescription = &n
	}
	return item
}

func optionsToResponse(o *selection.Options, defMode mode.Mode, defPolicy policy.Policy) OptionsResponse {
	resp := OptionsResponse{
		ClaimTypes:    nonNil(o.Values[claim.ClaimType]),
		LossTypes:     nonNil(o.Values[claim.LossType]),
		AgencyParents: nonNil(o.Values[claim.AgencyParent]),
		AgencyNames:   nonNil(o.AgencyNames),
		NoteTypes:     nonNil(o.Values[claim.NoteType]),
		Modes:         []string{string(mode.WholeWord), string(mode.Substring)},
		Policies:      []string{string(policy.SkipOnBlankQuery), string(policy.SkipOnEmptyInput)},
		Defaults: DefaultsResponse{
			ClaimType:    nonNil(o.Defaults.ClaimTypes),
			LossType:     nonNil(o.Defaults.LossTypes),
			AgencyParent: nonNil(o.Defaults.AgencyParents),
			AgencyName:   nonNil(o.Defaults.AgencyNames),
			Mode:         string(defMode),
			Policy:       string(defPolicy),
		},
	}
	if o.HasYears {
		lo, hi := o.YearMin, o.YearMax
		resp.YearMin, resp.YearMax = &lo, &hi
		resp.Defaults.YearFrom, resp.Defaults.YearTo = &lo, &hi
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
