package app

import (
	"context"
	"encoding/json"
	"fmt"

	"abtest/adapters/stats/inference"
	"abtest/domain/experiment"
	"abtest/domain/stats"
	"abtest/internal"
	"abtest/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// reportNamespace scopes the name-based report ids
var reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("abtest/report"))

// AnalysisService runs the full post-experiment pipeline: invariant checks,
// effect sizes and sign tests for every configured evaluation metric
type AnalysisService struct {
	params stats.Parameters
	logger *internal.Logger
}

// NewAnalysisService creates an analysis service. A nil logger discards.
func NewAnalysisService(params stats.Parameters, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &AnalysisService{params: params, logger: logger.With("analysis")}
}

// Parameters returns the settings the service analyses with
func (s *AnalysisService) Parameters() stats.Parameters {
	return s.params
}

// Run loads the table from source and analyses it
func (s *AnalysisService) Run(ctx context.Context, source ports.ObservationSource) (*stats.Report, error) {
	table, err := s.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, table)
}

// Load reads the daily table from source
func (s *AnalysisService) Load(ctx context.Context, source ports.ObservationSource) (experiment.Table, error) {
	s.logger.Debug("loading observations from %s", source.Describe())
	table, err := source.Load(ctx)
	if err != nil {
		return experiment.Table{}, fmt.Errorf("failed to load %s: %w", source.Describe(), err)
	}
	return table, nil
}

// Analyze computes the report for one table. It fails as a whole only for
// invalid parameters or a table the statistics cannot read; per-metric
// failures are recorded in the metric's result and the other metrics still
// run. Identical inputs give identical reports, id included.
func (s *AnalysisService) Analyze(ctx context.Context, table experiment.Table) (*stats.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	report := &stats.Report{
		Fingerprint: table.Fingerprint(),
		Parameters:  s.params,
		Control:     experiment.Aggregate(experiment.ArmControl, table.Control),
		Experiment:  experiment.Aggregate(experiment.ArmExperiment, table.Experiment),
	}

	id, err := s.reportID(report)
	if err != nil {
		return nil, err
	}
	report.ID = id

	report.Invariants = inference.CheckInvariants(report.Control, report.Experiment, s.params)
	report.InvariantsPassed = inference.AllPassed(report.Invariants)
	if !report.InvariantsPassed {
		s.logger.Warn("invariant checks failed: %v; effect estimates may be unreliable", report.FailedInvariants())
	}

	eligible := experiment.EligibleDays(table, s.params.MinRecordedFields)
	report.EligibleDays = len(eligible)
	s.logger.Debug("%d days eligible for metric evaluation", len(eligible))

	// one metric at a time so results and log lines follow the configured order
	results := make([]stats.MetricResult, len(s.params.Metrics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)
	for i, metric := range s.params.Metrics {
		i, metric := i, metric
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.evaluate(metric, eligible)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Metrics = results

	s.logger.Info("analysis %s complete: %d metrics, invariants passed=%t",
		report.ID, len(report.Metrics), report.InvariantsPassed)
	return report, nil
}

func (s *AnalysisService) evaluate(metric stats.Metric, eligible []experiment.DayPair) stats.MetricResult {
	result := stats.MetricResult{Metric: metric}

	effect, err := inference.EstimateEffect(metric, eligible, s.params)
	if err != nil {
		s.logger.Warn("effect size for %s: %v", metric.Name, err)
		result.EffectError = err.Error()
	} else {
		result.Effect = effect
	}

	sign, err := inference.SignTest(metric, eligible, s.params)
	if err != nil {
		s.logger.Warn("sign test for %s: %v", metric.Name, err)
		result.SignTestError = err.Error()
	} else {
		result.SignTest = sign
	}

	result.Judgement = Judge(metric, result.Effect, result.SignTest, s.params.Alpha)
	return result
}

// Judge reads an effect interval and sign test. Statistical significance
// means the unrounded interval excludes zero; practical significance means it
// lies entirely outside [-MDE, MDE]. Returns nil when neither input is present.
func Judge(metric stats.Metric, effect *stats.EffectSize, sign *stats.SignTestResult, alpha float64) *stats.Judgement {
	if effect == nil && sign == nil {
		return nil
	}
	j := &stats.Judgement{}
	if effect != nil {
		j.StatisticallySignificant = !effect.RawInterval.Contains(0)
		j.PracticallySignificant = effect.RawInterval.ExcludesBand(metric.MDE)
	}
	if sign != nil {
		j.SignTestSignificant = inference.Significant(sign, alpha)
	}
	return j
}

// reportID derives a name-based UUID from the input fingerprint and the
// parameters
func (s *AnalysisService) reportID(report *stats.Report) (string, error) {
	params, err := json.Marshal(s.params)
	if err != nil {
		return "", fmt.Errorf("failed to encode parameters: %w", err)
	}
	name := append([]byte(report.Fingerprint.String()+"\n"), params...)
	return uuid.NewSHA1(reportNamespace, name).String(), nil
}
