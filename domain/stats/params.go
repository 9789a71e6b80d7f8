package stats

import (
	"abtest/domain/core"
	"abtest/domain/experiment"
)

// Statistical constants used when nothing else is configured
const (
	DefaultZMultiplier    = 1.96 // 95% two-sided
	DefaultNullProportion = 0.5
	DefaultPrecision      = 4
	DefaultAlpha          = 0.05
	DefaultPower          = 0.8
)

// Metric is an evaluation metric: a ratio of two daily counts with the
// minimum detectable effect the business cares about.
type Metric struct {
	Name        string           `json:"name" mapstructure:"name"`
	Numerator   experiment.Field `json:"numerator" mapstructure:"numerator"`
	Denominator experiment.Field `json:"denominator" mapstructure:"denominator"`
	MDE         float64          `json:"mde" mapstructure:"mde"`
}

// Evaluation metrics of the free-trial screener experiment
var (
	GrossConversion = Metric{Name: "gross_conversion", Numerator: experiment.FieldEnrollments, Denominator: experiment.FieldClicks, MDE: 0.01}
	NetConversion   = Metric{Name: "net_conversion", Numerator: experiment.FieldPayments, Denominator: experiment.FieldClicks, MDE: 0.0075}
	Retention       = Metric{Name: "retention", Numerator: experiment.FieldPayments, Denominator: experiment.FieldEnrollments, MDE: 0.01}
)

// Parameters carries every tunable the analysis reads. Components receive it
// explicitly; nothing reads globals.
type Parameters struct {
	ZMultiplier       float64  `json:"z_multiplier" mapstructure:"z_multiplier"`
	NullProportion    float64  `json:"null_proportion" mapstructure:"null_proportion"`
	Precision         int      `json:"precision" mapstructure:"precision"`
	Alpha             float64  `json:"alpha" mapstructure:"alpha"`
	MinRecordedFields int      `json:"min_recorded_fields" mapstructure:"min_recorded_fields"`
	Metrics           []Metric `json:"metrics" mapstructure:"metrics"`
}

// DefaultParameters returns the settings of the original analysis
func DefaultParameters() Parameters {
	return Parameters{
		ZMultiplier:       DefaultZMultiplier,
		NullProportion:    DefaultNullProportion,
		Precision:         DefaultPrecision,
		Alpha:             DefaultAlpha,
		MinRecordedFields: experiment.DefaultMinRecordedFields,
		Metrics:           []Metric{GrossConversion, NetConversion},
	}
}

// Validate rejects parameter sets the formulas are undefined for
func (p Parameters) Validate() error {
	if p.ZMultiplier <= 0 {
		return core.NewParameterError("z_multiplier", p.ZMultiplier)
	}
	if p.NullProportion <= 0 || p.NullProportion >= 1 {
		return core.NewParameterError("null_proportion", p.NullProportion)
	}
	if p.Precision < 0 || p.Precision > 15 {
		return core.NewParameterError("precision", p.Precision)
	}
	if p.Alpha <= 0 || p.Alpha >= 1 {
		return core.NewParameterError("alpha", p.Alpha)
	}
	if p.MinRecordedFields < 0 || p.MinRecordedFields > len(experiment.Fields)+1 {
		return core.NewParameterError("min_recorded_fields", p.MinRecordedFields)
	}
	seen := make(map[string]bool, len(p.Metrics))
	for _, m := range p.Metrics {
		if m.Name == "" || seen[m.Name] {
			return core.NewParameterError("metric.name", m.Name)
		}
		seen[m.Name] = true
		if _, err := experiment.ParseField(string(m.Numerator)); err != nil {
			return core.NewParameterError(m.Name+".numerator", m.Numerator)
		}
		if _, err := experiment.ParseField(string(m.Denominator)); err != nil {
			return core.NewParameterError(m.Name+".denominator", m.Denominator)
		}
		if m.MDE < 0 {
			return core.NewParameterError(m.Name+".mde", m.MDE)
		}
	}
	return nil
}

// ============================================================================
// PLANNING INPUTS
// ============================================================================

// Baseline holds the pre-experiment daily traffic figures
type Baseline struct {
	PageviewsPerDay   float64 `json:"pageviews_per_day" mapstructure:"pageviews_per_day"`
	ClicksPerDay      float64 `json:"clicks_per_day" mapstructure:"clicks_per_day"`
	EnrollmentsPerDay float64 `json:"enrollments_per_day" mapstructure:"enrollments_per_day"`
}

// UnitsPerDay returns the daily volume of the unit a metric is measured over
func (b Baseline) UnitsPerDay(f experiment.Field) float64 {
	switch f {
	case experiment.FieldPageviews:
		return b.PageviewsPerDay
	case experiment.FieldClicks:
		return b.ClicksPerDay
	case experiment.FieldEnrollments:
		return b.EnrollmentsPerDay
	}
	return 0
}

// PlanMetric describes one metric for sizing. SampleSize, when set, is used
// as given instead of being computed from Rate and MDE.
type PlanMetric struct {
	Name       string           `json:"name" mapstructure:"name"`
	Rate       float64          `json:"rate" mapstructure:"rate"`
	Unit       experiment.Field `json:"unit" mapstructure:"unit"`
	MDE        float64          `json:"mde" mapstructure:"mde"`
	SampleSize int64            `json:"sample_size,omitempty" mapstructure:"sample_size"`
}

// PlanSettings is the full input of the power/duration estimator
type PlanSettings struct {
	Baseline         Baseline     `json:"baseline" mapstructure:"baseline"`
	Metrics          []PlanMetric `json:"metrics" mapstructure:"metrics"`
	SamplePageviews  float64      `json:"sample_pageviews" mapstructure:"sample_pageviews"`
	TrafficFractions []float64    `json:"traffic_fractions" mapstructure:"traffic_fractions"`
	Alpha            float64      `json:"alpha" mapstructure:"alpha"`
	Power            float64      `json:"power" mapstructure:"power"`
	Precision        int          `json:"precision" mapstructure:"precision"`
}

// DefaultPlanSettings reproduces the baseline of the free-trial screener
// experiment, including the sample sizes taken from an online calculator.
func DefaultPlanSettings() PlanSettings {
	return PlanSettings{
		Baseline: Baseline{
			PageviewsPerDay:   40000,
			ClicksPerDay:      3200,
			EnrollmentsPerDay: 660,
		},
		Metrics: []PlanMetric{
			{Name: GrossConversion.Name, Rate: 0.20625, Unit: experiment.FieldClicks, MDE: 0.01, SampleSize: 25835},
			{Name: Retention.Name, Rate: 0.53, Unit: experiment.FieldEnrollments, MDE: 0.01, SampleSize: 39115},
			{Name: NetConversion.Name, Rate: 0.1093125, Unit: experiment.FieldClicks, MDE: 0.0075, SampleSize: 27413},
		},
		SamplePageviews:  5000,
		TrafficFractions: []float64{1.0, 0.6, 0.4},
		Alpha:            DefaultAlpha,
		Power:            DefaultPower,
		Precision:        DefaultPrecision,
	}
}
