package experiment

// DefaultMinRecordedFields keeps a row when at least four of its five fields
// (date plus four counts) are present.
const DefaultMinRecordedFields = 4

// DayPair joins the control and experiment rows of one date
type DayPair struct {
	Date       string           `json:"date"`
	Control    DailyObservation `json:"control"`
	Experiment DailyObservation `json:"experiment"`
}

// EligibleDays is the single filtering step shared by every per-day and
// aggregate evaluation test. A date is eligible when it is present in both
// arms and both rows record at least minRecorded fields. Pairs follow the
// control arm's row order.
func EligibleDays(t Table, minRecorded int) []DayPair {
	experimentByDate := make(map[string]DailyObservation, len(t.Experiment))
	for _, row := range t.Experiment {
		experimentByDate[row.Date] = row
	}

	pairs := make([]DayPair, 0, len(t.Control))
	for _, c := range t.Control {
		e, ok := experimentByDate[c.Date]
		if !ok {
			continue
		}
		if c.RecordedFields() < minRecorded || e.RecordedFields() < minRecorded {
			continue
		}
		pairs = append(pairs, DayPair{Date: c.Date, Control: c, Experiment: e})
	}
	return pairs
}

// MetricPairs narrows eligible days to those where both arms recorded the
// metric's numerator and denominator. The effect-size estimator and the sign
// test both go through here so they always see the same days.
func MetricPairs(pairs []DayPair, numerator, denominator Field) []DayPair {
	out := make([]DayPair, 0, len(pairs))
	for _, p := range pairs {
		if !hasFields(p.Control, numerator, denominator) || !hasFields(p.Experiment, numerator, denominator) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Split returns the two arms of the pairs as separate row slices
func Split(pairs []DayPair) (control, experiment []DailyObservation) {
	control = make([]DailyObservation, len(pairs))
	experiment = make([]DailyObservation, len(pairs))
	for i, p := range pairs {
		control[i] = p.Control
		experiment[i] = p.Experiment
	}
	return control, experiment
}

func hasFields(o DailyObservation, fields ...Field) bool {
	for _, f := range fields {
		if _, ok := o.Count(f); !ok {
			return false
		}
	}
	return true
}
