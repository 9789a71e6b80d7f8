package experiment

import (
	"fmt"
	"strconv"

	"abtest/domain/core"
)

// Arm identifies one side of the experiment
type Arm string

const (
	ArmControl    Arm = "Control"
	ArmExperiment Arm = "Experiment"
)

// ParseArm accepts the arm label case-insensitively ("control", "CONTROL", ...)
func ParseArm(s string) (Arm, error) {
	switch normalize(s) {
	case "control":
		return ArmControl, nil
	case "experiment":
		return ArmExperiment, nil
	}
	return "", core.NewDataShapeError("unknown arm %q", s)
}

// Field names one count column of the daily table
type Field string

const (
	FieldPageviews   Field = "Pageviews"
	FieldClicks      Field = "Clicks"
	FieldEnrollments Field = "Enrollments"
	FieldPayments    Field = "Payments"
)

// Fields lists the count columns in table order
var Fields = []Field{FieldPageviews, FieldClicks, FieldEnrollments, FieldPayments}

// ParseField resolves a column name to a Field
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if normalize(string(f)) == normalize(s) {
			return f, nil
		}
	}
	return "", core.NewDataShapeError("unknown field %q", s)
}

// DailyObservation is one row of the table: counts for one arm on one date.
// Enrollments and Payments are nil when not yet recorded.
type DailyObservation struct {
	Date        string `json:"date" db:"date"`
	Pageviews   int64  `json:"pageviews" db:"pageviews"`
	Clicks      int64  `json:"clicks" db:"clicks"`
	Enrollments *int64 `json:"enrollments,omitempty" db:"enrollments"`
	Payments    *int64 `json:"payments,omitempty" db:"payments"`
}

// Count returns the value of a field and whether it was recorded
func (o DailyObservation) Count(f Field) (int64, bool) {
	switch f {
	case FieldPageviews:
		return o.Pageviews, true
	case FieldClicks:
		return o.Clicks, true
	case FieldEnrollments:
		if o.Enrollments == nil {
			return 0, false
		}
		return *o.Enrollments, true
	case FieldPayments:
		if o.Payments == nil {
			return 0, false
		}
		return *o.Payments, true
	}
	return 0, false
}

// RecordedFields counts the non-missing fields of the row, date included
func (o DailyObservation) RecordedFields() int {
	n := 0
	if o.Date != "" {
		n++
	}
	for _, f := range Fields {
		if _, ok := o.Count(f); ok {
			n++
		}
	}
	return n
}

// Record renders the row as strings, used for fingerprinting
func (o DailyObservation) Record() []string {
	record := []string{o.Date}
	for _, f := range Fields {
		if v, ok := o.Count(f); ok {
			record = append(record, strconv.FormatInt(v, 10))
		} else {
			record = append(record, "NA")
		}
	}
	return record
}

// Count is a convenience for building optional counts in fixtures and loaders
func Count(v int64) *int64 {
	return &v
}

// Table is the two-partition daily dataset. It is treated as immutable once
// loaded.
type Table struct {
	Control    []DailyObservation `json:"control"`
	Experiment []DailyObservation `json:"experiment"`
}

// Rows returns the observations of one arm
func (t Table) Rows(arm Arm) []DailyObservation {
	if arm == ArmExperiment {
		return t.Experiment
	}
	return t.Control
}

// Validate checks the shape assumptions the statistics rely on: both arms
// present, dates non-empty and unique per arm, counts non-negative.
func (t Table) Validate() error {
	for _, arm := range []Arm{ArmControl, ArmExperiment} {
		rows := t.Rows(arm)
		if len(rows) == 0 {
			return fmt.Errorf("%w: no %s rows", core.ErrInsufficientData, arm)
		}
		seen := make(map[string]bool, len(rows))
		for i, row := range rows {
			if row.Date == "" {
				return core.NewDataShapeError("%s row %d has no date", arm, i+1)
			}
			if seen[row.Date] {
				return fmt.Errorf("%w: %s %s", core.ErrDuplicateDate, arm, row.Date)
			}
			seen[row.Date] = true
			for _, f := range Fields {
				if v, ok := row.Count(f); ok && v < 0 {
					return fmt.Errorf("%w: %s %s %s=%d", core.ErrNegativeCount, arm, row.Date, f, v)
				}
			}
		}
	}
	return nil
}

// Fingerprint hashes the table content in arm and row order
func (t Table) Fingerprint() core.Hash {
	records := make([][]string, 0, len(t.Control)+len(t.Experiment)+2)
	for _, arm := range []Arm{ArmControl, ArmExperiment} {
		records = append(records, []string{string(arm)})
		for _, row := range t.Rows(arm) {
			records = append(records, row.Record())
		}
	}
	return core.ComputeRecordHash(records)
}
