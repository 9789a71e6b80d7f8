package stats

import (
	"abtest/domain/core"
	"abtest/domain/experiment"
)

// ============================================================================
// STABLE PRIMITIVES
// ============================================================================

// ProportionEstimate is numerator/denominator for one metric and arm.
// INVARIANT: Denominator > 0; otherwise no estimate exists.
type ProportionEstimate struct {
	Numerator   int64   `json:"numerator"`
	Denominator int64   `json:"denominator"`
	Value       float64 `json:"value"`
}

// ConfidenceInterval is a closed interval [Lower, Upper]
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether x lies inside the closed interval
func (ci ConfidenceInterval) Contains(x float64) bool {
	return x >= ci.Lower && x <= ci.Upper
}

// Width returns Upper - Lower
func (ci ConfidenceInterval) Width() float64 {
	return ci.Upper - ci.Lower
}

// Center returns the midpoint
func (ci ConfidenceInterval) Center() float64 {
	return (ci.Lower + ci.Upper) / 2
}

// ExcludesBand reports whether the interval lies entirely outside [-band, band]
func (ci ConfidenceInterval) ExcludesBand(band float64) bool {
	return ci.Upper < -band || ci.Lower > band
}

// ============================================================================
// INVARIANT CHECKS
// ============================================================================

// InvariantKind distinguishes the two statistical constructions
type InvariantKind string

const (
	// InvariantShare tests one arm's share of a combined count against the
	// null proportion (one-sample).
	InvariantShare InvariantKind = "share"
	// InvariantDifference tests the difference of two rates against zero with
	// a pooled standard error (two-sample).
	InvariantDifference InvariantKind = "difference"
)

// InvariantCheck is the outcome of one sanity check. It only flags; callers
// decide what a failure means for the rest of the analysis.
type InvariantCheck struct {
	Name          string             `json:"name"`
	Kind          InvariantKind      `json:"kind"`
	Expected      float64            `json:"expected"`       // interval center: null proportion or 0
	Observed      float64            `json:"observed"`       // rounded observed share or difference
	Interval      ConfidenceInterval `json:"interval"`       // rounded
	Margin        float64            `json:"margin"`         // z * standard error, unrounded
	StandardError float64            `json:"standard_error"` // unrounded
	Passed        bool               `json:"passed"`
	Error         string             `json:"error,omitempty"`
	Err           error              `json:"-"`
}

// ============================================================================
// EVALUATION METRICS
// ============================================================================

// EffectSize is the confidence interval for experiment-minus-control on one
// evaluation metric. Rounded fields follow the reporting precision; the raw
// values are kept for downstream arithmetic.
type EffectSize struct {
	Metric        string             `json:"metric"`
	Days          int                `json:"days"`
	Control       ProportionEstimate `json:"control"`
	Experiment    ProportionEstimate `json:"experiment"`
	PooledRate    float64            `json:"pooled_rate"`
	StandardError float64            `json:"standard_error"`
	Difference    float64            `json:"difference"` // rounded
	Interval      ConfidenceInterval `json:"interval"`   // rounded
	RawDifference float64            `json:"raw_difference"`
	RawInterval   ConfidenceInterval `json:"raw_interval"`
	ZMultiplier   float64            `json:"z_multiplier"`
}

// SignTestResult is the exact binomial test over daily comparisons.
// INVARIANT: 0 <= Successes <= Trials, PValue in [0,1].
type SignTestResult struct {
	Metric    string  `json:"metric"`
	Successes int     `json:"successes"`
	Trials    int     `json:"trials"`
	Ties      int     `json:"ties"`
	PValue    float64 `json:"p_value"` // rounded
}

// Judgement is the caller-side reading of an effect interval and sign test
type Judgement struct {
	StatisticallySignificant bool `json:"statistically_significant"`
	PracticallySignificant   bool `json:"practically_significant"`
	SignTestSignificant      bool `json:"sign_test_significant"`
}

// MetricResult groups everything computed for one evaluation metric. Effect
// and SignTest are nil when their computation failed; the matching error
// field says why.
type MetricResult struct {
	Metric        Metric          `json:"metric"`
	Effect        *EffectSize     `json:"effect,omitempty"`
	EffectError   string          `json:"effect_error,omitempty"`
	SignTest      *SignTestResult `json:"sign_test,omitempty"`
	SignTestError string          `json:"sign_test_error,omitempty"`
	Judgement     *Judgement      `json:"judgement,omitempty"`
}

// Report is the structured result set of one analysis run
type Report struct {
	ID               string                  `json:"id"`
	Fingerprint      core.Hash               `json:"fingerprint"`
	Parameters       Parameters              `json:"parameters"`
	Control          experiment.ArmAggregate `json:"control"`
	Experiment       experiment.ArmAggregate `json:"experiment"`
	Invariants       []InvariantCheck        `json:"invariants"`
	InvariantsPassed bool                    `json:"invariants_passed"`
	EligibleDays     int                     `json:"eligible_days"`
	Metrics          []MetricResult          `json:"metrics"`
}

// FailedInvariants lists the names of checks that did not pass
func (r *Report) FailedInvariants() []string {
	var failed []string
	for _, inv := range r.Invariants {
		if !inv.Passed {
			failed = append(failed, inv.Name)
		}
	}
	return failed
}

// ============================================================================
// PLANNING OUTPUTS
// ============================================================================

// MetricPlan is the sizing of one metric
type MetricPlan struct {
	Name          string  `json:"name"`
	StandardError float64 `json:"standard_error"` // at the sample pageview count, rounded
	SampleSize    int64   `json:"sample_size"`    // per group
	Computed      bool    `json:"computed"`       // sample size derived here rather than given
	Pageviews     float64 `json:"pageviews"`
}

// DurationPlan is how long a set of metrics needs at one traffic fraction
type DurationPlan struct {
	Metrics         []string `json:"metrics"`
	TrafficFraction float64  `json:"traffic_fraction"`
	Pageviews       float64  `json:"pageviews"`
	Days            float64  `json:"days"`
}

// ExperimentPlan is the output of the power/duration estimator
type ExperimentPlan struct {
	Metrics        []MetricPlan   `json:"metrics"`
	TotalPageviews float64        `json:"total_pageviews"`
	Durations      []DurationPlan `json:"durations"`
}
