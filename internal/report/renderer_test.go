package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(passed bool) *stats.Report {
	control := experiment.Aggregate(experiment.ArmControl, []experiment.DailyObservation{
		{Date: "d1", Pageviews: 212000, Clicks: 17293, Enrollments: experiment.Count(3785), Payments: experiment.Count(2033)},
	})
	exp := experiment.Aggregate(experiment.ArmExperiment, []experiment.DailyObservation{
		{Date: "d1", Pageviews: 211000, Clicks: 17260, Enrollments: experiment.Count(3423), Payments: experiment.Count(1945)},
	})

	pageviews := stats.InvariantCheck{
		Name: "pageviews", Kind: stats.InvariantShare, Expected: 0.5, Observed: 0.5012,
		Interval: stats.ConfidenceInterval{Lower: 0.4985, Upper: 0.5015}, Passed: passed,
	}
	if !passed {
		pageviews.Observed = 0.5104
	}

	return &stats.Report{
		ID:          "5f0c6a9e-3c2b-5d5e-9b7a-1a2b3c4d5e6f",
		Fingerprint: core.NewHash([]byte("fixture")),
		Parameters:  stats.DefaultParameters(),
		Control:     control,
		Experiment:  exp,
		Invariants: []stats.InvariantCheck{
			pageviews,
			{Name: "clicks", Kind: stats.InvariantShare, Expected: 0.5, Observed: 0.5005, Interval: stats.ConfidenceInterval{Lower: 0.4959, Upper: 0.5041}, Passed: true},
		},
		InvariantsPassed: passed,
		EligibleDays:     23,
		Metrics: []stats.MetricResult{
			{
				Metric: stats.GrossConversion,
				Effect: &stats.EffectSize{
					Metric: "gross_conversion", Days: 23, Difference: -0.0206,
					Interval: stats.ConfidenceInterval{Lower: -0.0291, Upper: -0.012}, ZMultiplier: 1.96,
				},
				SignTest:  &stats.SignTestResult{Metric: "gross_conversion", Successes: 4, Trials: 23, PValue: 0.0026},
				Judgement: &stats.Judgement{StatisticallySignificant: true, PracticallySignificant: true, SignTestSignificant: true},
			},
			{
				Metric:        stats.NetConversion,
				EffectError:   "undefined proportion: zero denominator",
				SignTestError: "empty trial set: every day tied for net_conversion",
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "md": FormatMarkdown, "html": FormatHTML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRenderer_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, FormatText).Report(sampleReport(true)))

	out := buf.String()
	assert.Contains(t, out, "A/B test analysis 5f0c6a9e")
	assert.Contains(t, out, "Confidence: 95%")
	assert.Contains(t, out, "[PASS] pageviews")
	assert.Contains(t, out, "gross_conversion: difference -0.0206, 95% CI [-0.0291, -0.0120]; statistically significant, practically significant")
	assert.Contains(t, out, "experiment higher on 4 of 23 days")
	assert.Contains(t, out, "net_conversion: no estimate (undefined proportion: zero denominator)")
	assert.NotContains(t, out, "WARNING")
}

func TestRenderer_TextFlagsFailedInvariants(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, FormatText).Report(sampleReport(false)))

	out := buf.String()
	assert.Contains(t, out, "WARNING: invariant checks failed (pageviews)")
	assert.Contains(t, out, "[FAIL] pageviews")
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(&buf, FormatJSON).Report(sampleReport(true)))

	var decoded stats.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 23, decoded.EligibleDays)
	assert.Equal(t, -0.0206, decoded.Metrics[0].Effect.Difference)
	assert.Nil(t, decoded.Metrics[1].Effect)
}

func TestRenderer_MarkdownAndHTML(t *testing.T) {
	var md bytes.Buffer
	require.NoError(t, NewRenderer(&md, FormatMarkdown).Report(sampleReport(false)))
	assert.Contains(t, md.String(), "# A/B test analysis 5f0c6a9e")
	assert.Contains(t, md.String(), "> **Invariant checks failed: pageviews.**")
	assert.Contains(t, md.String(), "| gross_conversion | -0.0206 | [-0.0291, -0.0120] | yes | yes | 0.0026 |")
	assert.Contains(t, md.String(), "| net_conversion | n/a |")

	var page bytes.Buffer
	require.NoError(t, NewRenderer(&page, FormatHTML).Report(sampleReport(true)))
	out := page.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<title>")
	assert.Contains(t, out, "5f0c6a9e")
}

func TestRenderer_Plan(t *testing.T) {
	plan := &stats.ExperimentPlan{
		Metrics: []stats.MetricPlan{
			{Name: "gross_conversion", StandardError: 0.0202, SampleSize: 25835, Pageviews: 645875},
			{Name: "retention", StandardError: 0.0549, SampleSize: 39115, Pageviews: 4741212.12},
		},
		TotalPageviews: 4741212,
		Durations: []stats.DurationPlan{
			{Metrics: []string{"gross_conversion", "retention"}, TrafficFraction: 1, Pageviews: 4741212, Days: 119},
		},
	}

	var text bytes.Buffer
	require.NoError(t, NewRenderer(&text, FormatText).Plan(plan))
	assert.Contains(t, text.String(), "Pageviews needed: 4741212")
	assert.Contains(t, text.String(), "119 days")

	var md bytes.Buffer
	require.NoError(t, NewRenderer(&md, FormatMarkdown).Plan(plan))
	assert.Contains(t, md.String(), "| gross_conversion | 0.0202 | 25835 | 645875 |")
	assert.Contains(t, md.String(), "| gross_conversion, retention | 100% | 4741212 | 119 |")
}

func TestRenderer_SignTest(t *testing.T) {
	result := &stats.SignTestResult{Metric: "net_conversion", Successes: 10, Trials: 23, PValue: 0.6776}

	var text bytes.Buffer
	require.NoError(t, NewRenderer(&text, FormatText).SignTest(result, 0.05))
	assert.Contains(t, text.String(), "p = 0.6776, not significant at alpha 0.05")

	var js bytes.Buffer
	require.NoError(t, NewRenderer(&js, FormatJSON).SignTest(result, 0.05))
	assert.Contains(t, js.String(), `"significant": false`)
	assert.Contains(t, js.String(), `"p_value": 0.6776`)
}
