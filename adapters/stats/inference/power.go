package inference

import (
	"fmt"
	"math"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// BaselineStandardError is the standard error of a metric when the
// experiment sees samplePageviews page views: the metric's unit count scales
// with the pageview ratio (e.g. 3200 clicks per 40000 pageviews).
func BaselineStandardError(rate, unitsPerDay, samplePageviews, pageviewsPerDay float64) (float64, error) {
	if pageviewsPerDay <= 0 {
		return 0, core.NewParameterError("pageviews_per_day", pageviewsPerDay)
	}
	if rate < 0 || rate > 1 {
		return 0, fmt.Errorf("%w: %v", core.ErrProbabilityRange, rate)
	}
	n := unitsPerDay * samplePageviews / pageviewsPerDay
	if n <= 0 {
		return 0, core.NewUndefinedProportionError("baseline sample has no units")
	}
	return math.Sqrt(rate * (1 - rate) / n), nil
}

// SampleSizePerGroup returns the units per group needed to detect an absolute
// change of mde from baseline with a two-sided test at alpha and the given
// power. It is the closed-form normal approximation with pooled variance under
// the null and unpooled variance under the alternative. It matches the usual
// online calculators for gross conversion (25835) but lands a few units off
// elsewhere: 39087 for retention against 39115, 27414 for net conversion
// against 27413. Plans that carry a SampleSize keep it.
func SampleSizePerGroup(baseline, mde, alpha, power float64) (int64, error) {
	if baseline <= 0 || baseline >= 1 {
		return 0, fmt.Errorf("%w: baseline %v", core.ErrProbabilityRange, baseline)
	}
	if mde <= 0 || baseline+mde >= 1 {
		return 0, core.NewParameterError("mde", mde)
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, core.NewParameterError("alpha", alpha)
	}
	if power <= 0 || power >= 1 {
		return 0, core.NewParameterError("power", power)
	}

	zAlpha := distuv.UnitNormal.Quantile(1 - alpha/2)
	zBeta := distuv.UnitNormal.Quantile(power)
	alt := baseline + mde

	sdNull := math.Sqrt(2 * baseline * (1 - baseline))
	sdAlt := math.Sqrt(baseline*(1-baseline) + alt*(1-alt))
	n := math.Pow(zAlpha*sdNull+zBeta*sdAlt, 2) / (mde * mde)
	return int64(math.Ceil(n)), nil
}

// RequiredPageviews converts a per-group sample size measured in some unit
// into total page views across both groups.
func RequiredPageviews(sampleSize int64, unitsPerDay, pageviewsPerDay float64) (float64, error) {
	if unitsPerDay <= 0 {
		return 0, core.NewParameterError("units_per_day", unitsPerDay)
	}
	if sampleSize < 0 {
		return 0, core.NewParameterError("sample_size", sampleSize)
	}
	return 2 * float64(sampleSize) / unitsPerDay * pageviewsPerDay, nil
}

// DurationDays is the number of whole days needed to collect pageviews when
// a fraction of daily traffic is diverted to the experiment.
func DurationDays(pageviews, pageviewsPerDay, trafficFraction float64) (float64, error) {
	if trafficFraction <= 0 || trafficFraction > 1 {
		return 0, core.NewParameterError("traffic_fraction", trafficFraction)
	}
	if pageviewsPerDay <= 0 {
		return 0, core.NewParameterError("pageviews_per_day", pageviewsPerDay)
	}
	return math.Round(pageviews / (pageviewsPerDay * trafficFraction)), nil
}

// PlanExperiment sizes every metric, then reports durations for all metrics
// together and for the subset that excludes enrollment-based metrics, at
// each traffic fraction.
func PlanExperiment(settings stats.PlanSettings) (*stats.ExperimentPlan, error) {
	if len(settings.Metrics) == 0 {
		return nil, core.NewParameterError("metrics", "none")
	}

	b := settings.Baseline
	plan := &stats.ExperimentPlan{}
	for _, m := range settings.Metrics {
		units := b.UnitsPerDay(m.Unit)
		se, err := BaselineStandardError(m.Rate, units, settings.SamplePageviews, b.PageviewsPerDay)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}

		mp := stats.MetricPlan{
			Name:          m.Name,
			StandardError: Round(se, settings.Precision),
			SampleSize:    m.SampleSize,
		}
		if mp.SampleSize == 0 {
			n, err := SampleSizePerGroup(m.Rate, m.MDE, settings.Alpha, settings.Power)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.Name, err)
			}
			mp.SampleSize = n
			mp.Computed = true
		}

		mp.Pageviews, err = RequiredPageviews(mp.SampleSize, units, b.PageviewsPerDay)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		plan.Metrics = append(plan.Metrics, mp)
	}

	groups := [][]stats.MetricPlan{plan.Metrics}
	if subset := clickMetrics(settings.Metrics, plan.Metrics); len(subset) > 0 && len(subset) < len(plan.Metrics) {
		groups = append(groups, subset)
	}

	for i, group := range groups {
		names := make([]string, len(group))
		var pageviews float64
		for j, mp := range group {
			names[j] = mp.Name
			pageviews = math.Max(pageviews, mp.Pageviews)
		}
		if i == 0 {
			plan.TotalPageviews = math.Round(pageviews)
		}
		for _, fraction := range settings.TrafficFractions {
			days, err := DurationDays(pageviews, b.PageviewsPerDay, fraction)
			if err != nil {
				return nil, err
			}
			plan.Durations = append(plan.Durations, stats.DurationPlan{
				Metrics:         names,
				TrafficFraction: fraction,
				Pageviews:       math.Round(pageviews),
				Days:            days,
			})
		}
	}
	return plan, nil
}

// clickMetrics picks the metrics measured per click or pageview; these need
// far less traffic than per-enrollment metrics.
func clickMetrics(metrics []stats.PlanMetric, plans []stats.MetricPlan) []stats.MetricPlan {
	var out []stats.MetricPlan
	for i, m := range metrics {
		if m.Unit == experiment.FieldClicks || m.Unit == experiment.FieldPageviews {
			out = append(out, plans[i])
		}
	}
	return out
}
