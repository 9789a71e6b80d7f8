package inference

import (
	"testing"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselineStandardError_FiveThousandPageviews(t *testing.T) {
	b := stats.DefaultPlanSettings().Baseline

	gross, err := BaselineStandardError(0.20625, b.ClicksPerDay, 5000, b.PageviewsPerDay)
	require.NoError(t, err)
	assert.Equal(t, 0.0202, Round(gross, 4))

	retention, err := BaselineStandardError(0.53, b.EnrollmentsPerDay, 5000, b.PageviewsPerDay)
	require.NoError(t, err)
	assert.Equal(t, 0.0549, Round(retention, 4))

	net, err := BaselineStandardError(0.1093125, b.ClicksPerDay, 5000, b.PageviewsPerDay)
	require.NoError(t, err)
	assert.Equal(t, 0.0156, Round(net, 4))
}

func TestBaselineStandardError_NoTraffic(t *testing.T) {
	_, err := BaselineStandardError(0.2, 3200, 5000, 0)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = BaselineStandardError(0.2, 0, 5000, 40000)
	assert.ErrorIs(t, err, core.ErrUndefinedProportion)
}

func TestSampleSizePerGroup_GrossConversion(t *testing.T) {
	n, err := SampleSizePerGroup(0.20625, 0.01, 0.05, 0.8)
	require.NoError(t, err)
	assert.Equal(t, int64(25835), n)

	// a smaller detectable effect needs more units
	larger, err := SampleSizePerGroup(0.20625, 0.005, 0.05, 0.8)
	require.NoError(t, err)
	assert.Greater(t, larger, n)
}

func TestSampleSizePerGroup_ClosedFormApproximation(t *testing.T) {
	retention, err := SampleSizePerGroup(0.53, 0.01, 0.05, 0.8)
	require.NoError(t, err)
	assert.Equal(t, int64(39087), retention)

	net, err := SampleSizePerGroup(0.1093125, 0.0075, 0.05, 0.8)
	require.NoError(t, err)
	assert.Equal(t, int64(27414), net)
}

func TestSampleSizePerGroup_InvalidInput(t *testing.T) {
	_, err := SampleSizePerGroup(0, 0.01, 0.05, 0.8)
	assert.ErrorIs(t, err, core.ErrProbabilityRange)

	_, err = SampleSizePerGroup(0.2, 0, 0.05, 0.8)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = SampleSizePerGroup(0.2, 0.01, 0.05, 1)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestRequiredPageviews(t *testing.T) {
	pv, err := RequiredPageviews(25835, 3200, 40000)
	require.NoError(t, err)
	assert.Equal(t, 645875.0, pv)

	pv, err = RequiredPageviews(27413, 3200, 40000)
	require.NoError(t, err)
	assert.Equal(t, 685325.0, pv)

	_, err = RequiredPageviews(100, 0, 40000)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestDurationDays(t *testing.T) {
	days, err := DurationDays(685325, 40000, 1)
	require.NoError(t, err)
	assert.Equal(t, 17.0, days)

	days, err = DurationDays(685325, 40000, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 29.0, days)

	_, err = DurationDays(685325, 40000, 0)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	_, err = DurationDays(685325, 40000, 1.5)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestPlanExperiment_DefaultSettings(t *testing.T) {
	plan, err := PlanExperiment(stats.DefaultPlanSettings())
	require.NoError(t, err)

	require.Len(t, plan.Metrics, 3)
	assert.Equal(t, 0.0202, plan.Metrics[0].StandardError)
	assert.Equal(t, 0.0549, plan.Metrics[1].StandardError)
	assert.Equal(t, 0.0156, plan.Metrics[2].StandardError)
	for _, mp := range plan.Metrics {
		assert.False(t, mp.Computed, mp.Name)
	}
	assert.Equal(t, 4741212.0, plan.TotalPageviews)

	// three fractions for all metrics, three for gross+net
	require.Len(t, plan.Durations, 6)
	want := []struct {
		metrics  int
		fraction float64
		days     float64
	}{
		{3, 1.0, 119}, {3, 0.6, 198}, {3, 0.4, 296},
		{2, 1.0, 17}, {2, 0.6, 29}, {2, 0.4, 43},
	}
	for i, w := range want {
		d := plan.Durations[i]
		assert.Len(t, d.Metrics, w.metrics)
		assert.Equal(t, w.fraction, d.TrafficFraction)
		assert.Equal(t, w.days, d.Days, "duration %d", i)
	}
	assert.Equal(t, []string{"gross_conversion", "net_conversion"}, plan.Durations[3].Metrics)
}

func TestPlanExperiment_ComputesMissingSampleSize(t *testing.T) {
	settings := stats.DefaultPlanSettings()
	settings.Metrics = []stats.PlanMetric{
		{Name: "gross_conversion", Rate: 0.20625, Unit: experiment.FieldClicks, MDE: 0.01},
	}
	settings.TrafficFractions = []float64{1}

	plan, err := PlanExperiment(settings)
	require.NoError(t, err)
	require.Len(t, plan.Metrics, 1)
	assert.True(t, plan.Metrics[0].Computed)
	assert.Equal(t, int64(25835), plan.Metrics[0].SampleSize)
	assert.Equal(t, 645875.0, plan.TotalPageviews)
	require.Len(t, plan.Durations, 1)
	assert.Equal(t, 16.0, plan.Durations[0].Days)
}

func TestPlanExperiment_NoMetrics(t *testing.T) {
	settings := stats.DefaultPlanSettings()
	settings.Metrics = nil

	_, err := PlanExperiment(settings)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}
