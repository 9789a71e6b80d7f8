package app

import (
	"context"

	"abtest/adapters/stats/inference"
	"abtest/domain/stats"
	"abtest/internal"
)

// PlanService sizes an experiment before it runs
type PlanService struct {
	logger *internal.Logger
}

// NewPlanService creates a plan service. A nil logger discards.
func NewPlanService(logger *internal.Logger) *PlanService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &PlanService{logger: logger.With("plan")}
}

// Plan computes per-metric sample sizes, the pageviews they require and the
// duration at each traffic fraction
func (s *PlanService) Plan(ctx context.Context, settings stats.PlanSettings) (*stats.ExperimentPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan, err := inference.PlanExperiment(settings)
	if err != nil {
		return nil, err
	}

	for _, m := range plan.Metrics {
		s.logger.Debug("%s: sample size %d per group, %.0f pageviews", m.Name, m.SampleSize, m.Pageviews)
	}
	s.logger.Info("plan needs %.0f pageviews", plan.TotalPageviews)
	return plan, nil
}
