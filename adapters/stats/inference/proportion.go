package inference

import (
	"fmt"
	"math"

	"abtest/domain/core"
	"abtest/domain/stats"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Proportion returns successes/trials. A zero denominator has no defined
// proportion and is reported as core.ErrUndefinedProportion, never as 0 or NaN.
func Proportion(successes, trials int64) (float64, error) {
	if successes < 0 || trials < 0 {
		return 0, fmt.Errorf("%w: %d/%d", core.ErrNegativeCount, successes, trials)
	}
	if trials == 0 {
		return 0, core.NewUndefinedProportionError(fmt.Sprintf("%d/0", successes))
	}
	return float64(successes) / float64(trials), nil
}

// Estimate wraps Proportion into a ProportionEstimate
func Estimate(successes, trials int64) (stats.ProportionEstimate, error) {
	p, err := Proportion(successes, trials)
	if err != nil {
		return stats.ProportionEstimate{}, err
	}
	return stats.ProportionEstimate{Numerator: successes, Denominator: trials, Value: p}, nil
}

// StandardError is sqrt(p(1-p)/n) for a single proportion under null p
func StandardError(p float64, n int64) (float64, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("%w: %v", core.ErrProbabilityRange, p)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: n=%d", core.ErrNegativeCount, n)
	}
	if n == 0 {
		return 0, core.NewUndefinedProportionError("standard error with n=0")
	}
	return math.Sqrt(p * (1 - p) / float64(n)), nil
}

// PooledProportion is (x1+x2)/(n1+n2)
func PooledProportion(x1, n1, x2, n2 int64) (float64, error) {
	if x1 < 0 || n1 < 0 || x2 < 0 || n2 < 0 {
		return 0, fmt.Errorf("%w: %d/%d, %d/%d", core.ErrNegativeCount, x1, n1, x2, n2)
	}
	return Proportion(x1+x2, n1+n2)
}

// PooledStandardError is sqrt(p̂(1-p̂)(1/n1+1/n2)) for a difference of two
// independent proportions, p̂ being the pooled proportion.
func PooledStandardError(x1, n1, x2, n2 int64) (float64, error) {
	if n1 == 0 || n2 == 0 {
		return 0, core.NewUndefinedProportionError(fmt.Sprintf("pooled standard error with n1=%d, n2=%d", n1, n2))
	}
	pooled, err := PooledProportion(x1, n1, x2, n2)
	if err != nil {
		return 0, err
	}
	if pooled > 1 {
		return 0, fmt.Errorf("%w: pooled %v", core.ErrProbabilityRange, pooled)
	}
	return math.Sqrt(pooled * (1 - pooled) * (1/float64(n1) + 1/float64(n2))), nil
}

// NewInterval builds center ± z·se
func NewInterval(center, se, z float64) stats.ConfidenceInterval {
	margin := z * se
	return stats.ConfidenceInterval{Lower: center - margin, Upper: center + margin}
}

// RoundInterval rounds both bounds to the reporting precision
func RoundInterval(ci stats.ConfidenceInterval, places int) stats.ConfidenceInterval {
	return stats.ConfidenceInterval{Lower: Round(ci.Lower, places), Upper: Round(ci.Upper, places)}
}

// Round rounds half away from zero to the given number of decimal places
func Round(x float64, places int) float64 {
	r, err := mstats.Round(x, places)
	if err != nil {
		return x
	}
	return r
}

// ZMultiplier returns the two-sided normal critical value for a confidence
// level, e.g. 0.95 -> 1.959964. Configurations that keep the literal 1.96
// never go through here.
func ZMultiplier(confidence float64) (float64, error) {
	if confidence <= 0 || confidence >= 1 {
		return 0, core.NewParameterError("confidence", confidence)
	}
	return distuv.UnitNormal.Quantile(1 - (1-confidence)/2), nil
}
