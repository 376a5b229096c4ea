package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/claimsearch/internal/domain"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/policy"
	"github.com/kailas-cloud/claimsearch/internal/domain/search/query"
	"github.com/kailas-cloud/claimsearch/internal/domain/selection"
	logpkg "github.com/kailas-cloud/claimsearch/internal/logger"
	"github.com/kailas-cloud/claimsearch/internal/metrics"
)

// Request is one full search: the categorical/year filter followed by up to
// three chained text stages.
type Request struct {
	Filter    filter.Expression
	Policy    policy.Policy // empty uses the service default
	Primary   query.Query
	Secondary query.Query
	Tertiary  query.Query
}

// Result is a completed search.
type Result struct {
	Outcome
	FilteredRows int
	UniqueClaims int
}

// Service runs searches over the cached base record set.
type Service struct {
	base     BaseProvider
	policy   policy.Policy
	observer StageObserver
	logger   *zap.Logger
}

// New creates a search service.
func New(base BaseProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{base: base, policy: policy.Default, logger: logger}
}

// WithPolicy sets the default stage-gating policy.
func (s *Service) WithPolicy(p policy.Policy) *Service {
	if p.IsValid() {
		s.policy = p
	}
	return s
}

// WithObserver sets a stage observer (metrics, progress feedback).
func (s *Service) WithObserver(o StageObserver) *Service {
	s.observer = o
	return s
}

// Policy returns the default stage-gating policy.
func (s *Service) Policy() policy.Policy { return s.policy }

// Search filters the base set, orders it newest year first and runs the
// text stages. The result is a pure function of the base set and req.
func (s *Service) Search(ctx context.Context, req *Request) (Result, error) {
	start := time.Now()

	base, err := s.base.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrDatasetUnavailable, err)
	}

	filtered := req.Filter.Apply(base).SortByYearDesc()

	p := req.Policy
	if p == "" {
		p = s.policy
	}
	if !p.IsValid() {
		return Result{}, fmt.Errorf("%w: invalid stage policy %q", domain.ErrInvalidQuery, p)
	}

	metrics.PipelineRunsTotal.WithLabelValues(string(p)).Inc()
	pipe := NewPipeline(p).WithObserver(s.stageObserver(ctx))
	out := pipe.Run(filtered, req.Primary, req.Secondary, req.Tertiary)

	logpkg.FromContextOr(ctx, s.logger).Info("search completed",
		zap.String("policy", string(p)),
		zap.Int("base_rows", base.Len()),
		zap.Int("filtered_rows", filtered.Len()),
		zap.Int("result_rows", out.Result.Len()),
		zap.String("last_stage", string(out.LastRan())),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{
		Outcome:      out,
		FilteredRows: filtered.Len(),
		UniqueClaims: out.Result.UniqueClaims(),
	}, nil
}

// Options returns the filter option sets and defaults for the base set.
// parents restricts the agency-name options; nil means no restriction.
func (s *Service) Options(ctx context.Context, parents []string) (selection.Options, error) {
	base, err := s.base.Load(ctx)
	if err != nil {
		return selection.Options{}, fmt.Errorf("%w: %w", domain.ErrDatasetUnavailable, err)
	}
	return selection.OptionsFor(base, parents), nil
}

func (s *Service) stageObserver(ctx context.Context) StageObserver {
	return observerFunc(func(rep StageReport) {
		logpkg.FromContextOr(ctx, s.logger).Debug("search stage",
			zap.String("stage", string(rep.Stage)),
			zap.String("status", string(rep.Status)),
			zap.String("skip_reason", string(rep.SkipReason)),
			zap.Int("terms", len(rep.Query.Terms())),
			zap.Int("threshold", rep.Query.Threshold()),
			zap.Int("input_rows", rep.InputRows),
			zap.Int("matched", rep.Matched),
		)
		if s.observer != nil {
			s.observer.ObserveStage(rep)
		}
	})
}

type observerFunc func(StageReport)

func (f observerFunc) ObserveStage(rep StageReport) { f(rep) }
