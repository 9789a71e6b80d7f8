package inference

import (
	"fmt"
	"math"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// SignTest compares the per-day rate of a metric between arms over the
// eligible days. Tied days are dropped from the trial count; a success is a
// day where the experiment rate is strictly higher. The p-value is the exact
// two-sided binomial probability under the null proportion.
func SignTest(metric stats.Metric, eligible []experiment.DayPair, params stats.Parameters) (*stats.SignTestResult, error) {
	pairs := experiment.MetricPairs(eligible, metric.Numerator, metric.Denominator)

	result := &stats.SignTestResult{Metric: metric.Name}
	for _, p := range pairs {
		cx, _ := p.Control.Count(metric.Numerator)
		cn, _ := p.Control.Count(metric.Denominator)
		ex, _ := p.Experiment.Count(metric.Numerator)
		en, _ := p.Experiment.Count(metric.Denominator)

		if _, err := Proportion(cx, cn); err != nil {
			return nil, fmt.Errorf("%s control rate on %s: %w", metric.Name, p.Date, err)
		}
		if _, err := Proportion(ex, en); err != nil {
			return nil, fmt.Errorf("%s experiment rate on %s: %w", metric.Name, p.Date, err)
		}

		// ex/en vs cx/cn compared exactly on the integers
		switch lhs, rhs := ex*cn, cx*en; {
		case lhs == rhs:
			result.Ties++
			continue
		case lhs > rhs:
			result.Successes++
		}
		result.Trials++
	}

	if result.Trials == 0 {
		return nil, core.NewEmptyTrialSetError(metric.Name)
	}

	pValue, err := BinomialTwoSided(result.Successes, result.Trials, params.NullProportion)
	if err != nil {
		return nil, err
	}
	result.PValue = Round(pValue, params.Precision)
	return result, nil
}

// BinomialTwoSided returns the exact two-sided binomial p-value of observing
// successes out of trials under success probability p: the tail on the side
// of the observation, summed term by term, doubled and capped at 1.
func BinomialTwoSided(successes, trials int, p float64) (float64, error) {
	if trials <= 0 {
		return 0, fmt.Errorf("%w: trials=%d", core.ErrEmptyTrialSet, trials)
	}
	if successes < 0 || successes > trials {
		return 0, core.NewParameterError("successes", successes)
	}
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("%w: %v", core.ErrProbabilityRange, p)
	}

	dist := distuv.Binomial{N: float64(trials), P: p}
	expected := float64(trials) * p

	var tail float64
	switch k := float64(successes); {
	case k < expected:
		for i := 0; i <= successes; i++ {
			tail += dist.Prob(float64(i))
		}
	case k > expected:
		for i := successes; i <= trials; i++ {
			tail += dist.Prob(float64(i))
		}
	default:
		return 1, nil
	}
	return math.Min(1, 2*tail), nil
}

// Significant reports whether a sign test rejects the null at alpha
func Significant(result *stats.SignTestResult, alpha float64) bool {
	return result != nil && result.PValue < alpha
}
