package experiment

import "strings"

// ArmAggregate holds per-field sums for one arm. It is always recomputed from
// the observations and never stored on its own.
type ArmAggregate struct {
	Arm      Arm             `json:"arm"`
	Days     int             `json:"days"`
	Totals   map[Field]int64 `json:"totals"`
	Recorded map[Field]int   `json:"recorded"` // rows where the field was present
}

// Aggregate sums every field over the given rows. Missing values are skipped
// and accounted for in Recorded.
func Aggregate(arm Arm, rows []DailyObservation) ArmAggregate {
	agg := ArmAggregate{
		Arm:      arm,
		Days:     len(rows),
		Totals:   make(map[Field]int64, len(Fields)),
		Recorded: make(map[Field]int, len(Fields)),
	}
	for _, row := range rows {
		for _, f := range Fields {
			if v, ok := row.Count(f); ok {
				agg.Totals[f] += v
				agg.Recorded[f]++
			}
		}
	}
	return agg
}

// Total returns the sum of a field
func (a ArmAggregate) Total(f Field) int64 {
	return a.Totals[f]
}

// Complete reports whether every row recorded the field
func (a ArmAggregate) Complete(f Field) bool {
	return a.Recorded[f] == a.Days
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
