package inference

import (
	"abtest/domain/experiment"
	"abtest/domain/stats"
)

// Names of the default invariant metrics
const (
	InvariantPageviews        = "pageviews"
	InvariantClicks           = "clicks"
	InvariantClickThroughProb = "click_through_probability"
)

// CheckShare tests whether the control arm's share of a combined count is
// consistent with the null proportion: the interval is centered at the null
// value with the single-proportion standard error over the combined total,
// and the check passes when the observed share falls inside it. The decision
// is made on unrounded values; Observed and Interval are rounded for display.
func CheckShare(name string, control, experimentCount int64, params stats.Parameters) stats.InvariantCheck {
	check := stats.InvariantCheck{
		Name:     name,
		Kind:     stats.InvariantShare,
		Expected: params.NullProportion,
	}

	total := control + experimentCount
	observed, err := Proportion(control, total)
	if err != nil {
		return failCheck(check, err)
	}
	se, err := StandardError(params.NullProportion, total)
	if err != nil {
		return failCheck(check, err)
	}

	raw := NewInterval(params.NullProportion, se, params.ZMultiplier)
	check.StandardError = se
	check.Margin = params.ZMultiplier * se
	check.Interval = RoundInterval(raw, params.Precision)
	check.Observed = Round(observed, params.Precision)
	check.Passed = raw.Contains(observed)
	return check
}

// CheckDifference tests whether two arms share the same rate of x per n. The
// interval is centered at zero with the pooled two-sample standard error and
// the observed value is experimentRate - controlRate. Zero lying inside
// observed ± margin is the same condition as observed lying inside 0 ± margin.
func CheckDifference(name string, controlX, controlN, experimentX, experimentN int64, params stats.Parameters) stats.InvariantCheck {
	check := stats.InvariantCheck{
		Name:     name,
		Kind:     stats.InvariantDifference,
		Expected: 0,
	}

	controlRate, err := Proportion(controlX, controlN)
	if err != nil {
		return failCheck(check, err)
	}
	experimentRate, err := Proportion(experimentX, experimentN)
	if err != nil {
		return failCheck(check, err)
	}
	se, err := PooledStandardError(controlX, controlN, experimentX, experimentN)
	if err != nil {
		return failCheck(check, err)
	}

	diff := experimentRate - controlRate
	raw := NewInterval(0, se, params.ZMultiplier)
	check.StandardError = se
	check.Margin = params.ZMultiplier * se
	check.Interval = RoundInterval(raw, params.Precision)
	check.Observed = Round(diff, params.Precision)
	check.Passed = raw.Contains(diff)
	return check
}

// CheckInvariants runs the population, click and click-through-probability
// checks over whole-arm totals. Every check is computed on its own, so one
// undefined check does not hide the others.
func CheckInvariants(control, experimentAgg experiment.ArmAggregate, params stats.Parameters) []stats.InvariantCheck {
	cPage, cClick := control.Total(experiment.FieldPageviews), control.Total(experiment.FieldClicks)
	ePage, eClick := experimentAgg.Total(experiment.FieldPageviews), experimentAgg.Total(experiment.FieldClicks)

	return []stats.InvariantCheck{
		CheckShare(InvariantPageviews, cPage, ePage, params),
		CheckShare(InvariantClicks, cClick, eClick, params),
		CheckDifference(InvariantClickThroughProb, cClick, cPage, eClick, ePage, params),
	}
}

// AllPassed reports whether every check passed
func AllPassed(checks []stats.InvariantCheck) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

func failCheck(check stats.InvariantCheck, err error) stats.InvariantCheck {
	check.Passed = false
	check.Err = err
	check.Error = err.Error()
	return check
}
