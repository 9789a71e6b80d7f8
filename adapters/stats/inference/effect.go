package inference

import (
	"fmt"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/domain/stats"
)

// EstimateEffect computes the confidence interval for experimentRate -
// controlRate of one evaluation metric over the eligible days. The rates are
// aggregate sums over the days both arms recorded the metric, the standard
// error is pooled across arms and the interval is difference ± z·se.
//
// The result is the interval only. Whether it is statistically or practically
// significant is left to the caller.
func EstimateEffect(metric stats.Metric, eligible []experiment.DayPair, params stats.Parameters) (*stats.EffectSize, error) {
	pairs := experiment.MetricPairs(eligible, metric.Numerator, metric.Denominator)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no eligible days for %s", core.ErrInsufficientData, metric.Name)
	}

	controlRows, experimentRows := experiment.Split(pairs)
	controlAgg := experiment.Aggregate(experiment.ArmControl, controlRows)
	experimentAgg := experiment.Aggregate(experiment.ArmExperiment, experimentRows)

	cx, cn := controlAgg.Total(metric.Numerator), controlAgg.Total(metric.Denominator)
	ex, en := experimentAgg.Total(metric.Numerator), experimentAgg.Total(metric.Denominator)

	controlEst, err := Estimate(cx, cn)
	if err != nil {
		return nil, fmt.Errorf("%s control rate: %w", metric.Name, err)
	}
	experimentEst, err := Estimate(ex, en)
	if err != nil {
		return nil, fmt.Errorf("%s experiment rate: %w", metric.Name, err)
	}
	pooled, err := PooledProportion(cx, cn, ex, en)
	if err != nil {
		return nil, fmt.Errorf("%s pooled rate: %w", metric.Name, err)
	}
	se, err := PooledStandardError(cx, cn, ex, en)
	if err != nil {
		return nil, fmt.Errorf("%s standard error: %w", metric.Name, err)
	}

	diff := experimentEst.Value - controlEst.Value
	raw := NewInterval(diff, se, params.ZMultiplier)

	return &stats.EffectSize{
		Metric:        metric.Name,
		Days:          len(pairs),
		Control:       controlEst,
		Experiment:    experimentEst,
		PooledRate:    pooled,
		StandardError: se,
		Difference:    Round(diff, params.Precision),
		Interval:      RoundInterval(raw, params.Precision),
		RawDifference: diff,
		RawInterval:   raw,
		ZMultiplier:   params.ZMultiplier,
	}, nil
}

// DifferenceInterval is the count-level form of EstimateEffect for callers
// that already hold aggregate totals.
func DifferenceInterval(controlX, controlN, experimentX, experimentN int64, params stats.Parameters) (stats.ConfidenceInterval, float64, error) {
	controlRate, err := Proportion(controlX, controlN)
	if err != nil {
		return stats.ConfidenceInterval{}, 0, err
	}
	experimentRate, err := Proportion(experimentX, experimentN)
	if err != nil {
		return stats.ConfidenceInterval{}, 0, err
	}
	se, err := PooledStandardError(controlX, controlN, experimentX, experimentN)
	if err != nil {
		return stats.ConfidenceInterval{}, 0, err
	}
	diff := experimentRate - controlRate
	return RoundInterval(NewInterval(diff, se, params.ZMultiplier), params.Precision), Round(diff, params.Precision), nil
}
