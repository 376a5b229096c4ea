// Package chi exposes the search service over HTTP with a chi router.
package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/claimsearch/internal/export"
	logpkg "github.com/kailas-cloud/claimsearch/internal/logger"
	healthuc "github.com/kailas-cloud/claimsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/claimsearch/internal/usecase/search"
)

const maxBodyBytes = 1 << 20

// Server serves the claim-note search API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, limits Limits, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		health:        health,
		limits:        limits.withDefaults(),
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/options", s.GetOptions)
	r.Post("/search", s.Search)
	r.Post("/search/export", s.ExportSearch)
	r.Get("/search/export", s.ExportSearchQuery)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Rows:   report.Rows,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// GetOptions handles GET /options. Repeated agency_parent parameters restrict
// the agency-name options; without any the default parents apply.
func (s *Server) GetOptions(w http.ResponseWriter, r *http.Request) {
	var parents *[]string
	if err := runtime.BindQueryParameter("form", true, false, "agency_parent", r.URL.Query(), &parents); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid parameter agency_parent: "+err.Error())
		return
	}
	var sel []string
	if parents != nil {
		sel = *parents
	}

	opts, err := s.search.Options(r.Context(), sel)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, optionsToResponse(&opts, s.limits.DefaultMode, s.search.Policy()))
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	limit := s.limits.MaxLimit
	if req.Limit != nil {
		if *req.Limit <= 0 || *req.Limit > s.limits.MaxLimit {
			writeError(w, http.StatusBadRequest, ErrorCodeInvalidQuery,
				fmt.Sprintf("limit must be between 1 and %d", s.limits.MaxLimit))
			return
		}
		limit = *req.Limit
	}

	res, ok := s.runSearch(w, r, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(&res, limit))
}

// ExportSearch handles POST /search/export.
func (s *Server) ExportSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}
	s.export(w, r, req)
}

// ExportSearchQuery handles GET /search/export with the search parameters in
// the query string, so that a result can be downloaded from a plain link.
func (s *Server) ExportSearchQuery(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequestFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	s.export(w, r, req)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, req *SearchRequest) {
	res, ok := s.runSearch(w, r, req)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename()+`"`)
	w.Header().Set("X-Record-Count", strconv.Itoa(res.Result.Len()))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, res.Result); err != nil {
		logpkg.FromContextOr(r.Context(), s.logger).Warn("export aborted", zap.Error(err))
	}
}

func (s *Server) decodeSearch(w http.ResponseWriter, r *http.Request) (*SearchRequest, bool) {
	var req SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return &req, true
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req *SearchRequest) (searchuc.Result, bool) {
	sreq, err := searchFromRequest(req, s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return searchuc.Result{}, false
	}
	res, err := s.search.Search(r.Context(), sreq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return searchuc.Result{}, false
	}
	return res, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

// searchRequestFromQuery binds form-style query parameters:
// claim_type=A&claim_type=B, year_from=2019, primary=pain,back,
// primary_threshold=2, mode=substring, policy=skip_on_empty_input.
func searchRequestFromQuery(q url.Values) (*SearchRequest, error) {
	var req SearchRequest

	lists := []struct {
		name string
		dst  **[]string
	}{
		{"claim_type", &req.Filter.ClaimType},
		{"loss_type", &req.Filter.LossType},
		{"agency_parent", &req.Filter.AgencyParent},
		{"agency_name", &req.Filter.AgencyName},
		{"note_type", &req.Filter.NoteType},
	}
	for _, l := range lists {
		if err := runtime.BindQueryParameter("form", true, false, l.name, q, l.dst); err != nil {
			return nil, fmt.Errorf("invalid parameter %s: %w", l.name, err)
		}
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"year_from", &req.Filter.YearFrom},
		{"year_to", &req.Filter.YearTo},
		{"primary_threshold", &req.Primary.Threshold},
		{"secondary_threshold", &req.Secondary.Threshold},
		{"tertiary_threshold", &req.Tertiary.Threshold},
	}
	for _, p := range ints {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dst); err != nil {
			return nil, fmt.Errorf("invalid parameter %s: %w", p.name, err)
		}
	}

	if err := runtime.BindQueryParameter("form", true, false, "missing_passes", q, &req.Filter.MissingPasses); err != nil {
		return nil, fmt.Errorf("invalid parameter missing_passes: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "mode", q, &req.Mode); err != nil {
		return nil, fmt.Errorf("invalid parameter mode: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "policy", q, &req.Policy); err != nil {
		return nil, fmt.Errorf("invalid parameter policy: %w", err)
	}

	// Terms are comma-separated themselves, so they are read raw rather than
	// exploded into a list.
	req.Primary.Terms = q.Get("primary")
	req.Secondary.Terms = q.Get("secondary")
	req.Tertiary.Terms = q.Get("tertiary")
	return &req, nil
}
