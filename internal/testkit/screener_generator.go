package testkit

import (
	"math"
	"math/rand"
	"time"

	"abtest/domain/experiment"
)

// ArmRates are the per-arm funnel probabilities the generator samples from
type ArmRates struct {
	ClickThrough float64 `json:"click_through"` // clicks per pageview
	Enrollment   float64 `json:"enrollment"`    // enrollments per click
	Payment      float64 `json:"payment"`       // payments per enrollment
}

// ScreenerGeneratorConfig configures the free-trial screener data generator
type ScreenerGeneratorConfig struct {
	Days            int       `json:"days"`
	StartDate       time.Time `json:"start_date"`
	PageviewsPerDay float64   `json:"pageviews_per_day"` // per arm
	PageviewsStdDev float64   `json:"pageviews_std_dev"`
	Control         ArmRates  `json:"control"`
	Experiment      ArmRates  `json:"experiment"`
	MissingTailDays int       `json:"missing_tail_days"` // trailing days without enrollments/payments
	Seed            int64     `json:"seed"`
}

// DefaultScreenerConfig mirrors the shape of the course results workbook:
// 37 days, the last 14 without enrollment and payment data
func DefaultScreenerConfig() ScreenerGeneratorConfig {
	return ScreenerGeneratorConfig{
		Days:            37,
		StartDate:       time.Date(2014, 10, 11, 0, 0, 0, 0, time.UTC),
		PageviewsPerDay: 9300,
		PageviewsStdDev: 750,
		Control:         ArmRates{ClickThrough: 0.0821, Enrollment: 0.2189, Payment: 0.5368},
		Experiment:      ArmRates{ClickThrough: 0.0822, Enrollment: 0.1983, Payment: 0.5681},
		MissingTailDays: 14,
		Seed:            42,
	}
}

// ScreenerDataGenerator generates daily two-arm tables
type ScreenerDataGenerator struct {
	config ScreenerGeneratorConfig
	rng    *rand.Rand
}

// NewScreenerDataGenerator creates a new generator; equal seeds give equal tables
func NewScreenerDataGenerator(config ScreenerGeneratorConfig) *ScreenerDataGenerator {
	return &ScreenerDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate produces the table. Both arms share the date sequence; dates are
// rendered like "Sat, Oct 11".
func (g *ScreenerDataGenerator) Generate() experiment.Table {
	var table experiment.Table
	for day := 0; day < g.config.Days; day++ {
		date := g.config.StartDate.AddDate(0, 0, day).Format("Mon, Jan 2")
		recorded := day < g.config.Days-g.config.MissingTailDays

		table.Control = append(table.Control, g.observe(date, g.config.Control, recorded))
		table.Experiment = append(table.Experiment, g.observe(date, g.config.Experiment, recorded))
	}
	return table
}

func (g *ScreenerDataGenerator) observe(date string, rates ArmRates, recorded bool) experiment.DailyObservation {
	pageviews := int64(math.Round(g.config.PageviewsPerDay + g.rng.NormFloat64()*g.config.PageviewsStdDev))
	if pageviews < 0 {
		pageviews = 0
	}
	clicks := g.binomial(pageviews, rates.ClickThrough)
	enrollments := g.binomial(clicks, rates.Enrollment)
	payments := g.binomial(enrollments, rates.Payment)

	obs := experiment.DailyObservation{Date: date, Pageviews: pageviews, Clicks: clicks}
	if recorded {
		obs.Enrollments = experiment.Count(enrollments)
		obs.Payments = experiment.Count(payments)
	}
	return obs
}

// binomial draws n Bernoulli(p) trials
func (g *ScreenerDataGenerator) binomial(n int64, p float64) int64 {
	var k int64
	for i := int64(0); i < n; i++ {
		if g.rng.Float64() < p {
			k++
		}
	}
	return k
}
