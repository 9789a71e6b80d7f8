package report

const textReportTemplate = `A/B test analysis {{short .ID}}
Input fingerprint: {{.Fingerprint.Short}}
Confidence: {{confidence .Parameters.ZMultiplier}}   alpha: {{printf "%.2f" .Parameters.Alpha}}
{{if not .InvariantsPassed}}
WARNING: invariant checks failed ({{join .FailedInvariants ", "}}); metric results below are not trustworthy
{{end}}
{{printf "%-12s %12s %12s" "Totals" "Control" "Experiment"}}
{{range fields}}{{printf "%-12s %12d %12d" . (total $.Control .) (total $.Experiment .)}}
{{end}}{{printf "%-12s %12d %12d" "Days" .Control.Days .Experiment.Days}}

Invariant checks
{{range .Invariants}}  [{{passFail .Passed}}] {{printf "%-26s" .Name}} observed {{f4 .Observed}}  interval {{interval .Interval}}{{if .Error}}  error: {{.Error}}{{end}}
{{end}}
Evaluation metrics ({{.EligibleDays}} eligible days)
{{range .Metrics}}  {{narrative .}}
  {{if .SignTest}}{{signTest .SignTest $.Parameters.Alpha}}{{else}}sign test {{.Metric.Name}}: {{.SignTestError}}{{end}}
{{end}}`

const markdownReportTemplate = `# A/B test analysis {{short .ID}}

- Report id: ` + "`{{.ID}}`" + `
- Input fingerprint: ` + "`{{.Fingerprint.Short}}`" + `
- Confidence: {{confidence .Parameters.ZMultiplier}}, alpha {{printf "%.2f" .Parameters.Alpha}}
{{if not .InvariantsPassed}}
> **Invariant checks failed: {{join .FailedInvariants ", "}}.** The metric results below are not trustworthy.
{{end}}
## Totals

| Field | Control | Experiment |
|---|---:|---:|
{{range fields}}| {{.}} | {{total $.Control .}} | {{total $.Experiment .}} |
{{end}}| Days | {{.Control.Days}} | {{.Experiment.Days}} |

## Invariant checks

| Check | Kind | Observed | Interval | Result |
|---|---|---:|---|---|
{{range .Invariants}}| {{.Name}} | {{.Kind}} | {{f4 .Observed}} | {{interval .Interval}} | {{passFail .Passed}}{{if .Error}} ({{.Error}}){{end}} |
{{end}}
## Evaluation metrics

{{.EligibleDays}} days eligible.

| Metric | Difference | Interval | Statistical | Practical | Sign test p |
|---|---:|---|---|---|---:|
{{range .Metrics}}| {{.Metric.Name}} | {{if .Effect}}{{f4 .Effect.Difference}} | {{interval .Effect.Interval}}{{else}}n/a | {{.EffectError}}{{end}} | {{if .Effect}}{{yesNo .Judgement.StatisticallySignificant}} | {{yesNo .Judgement.PracticallySignificant}}{{else}}n/a | n/a{{end}} | {{if .SignTest}}{{f4 .SignTest.PValue}}{{else}}{{.SignTestError}}{{end}} |
{{end}}
{{range .Metrics}}- {{narrative .}}
{{if .SignTest}}- {{signTest .SignTest $.Parameters.Alpha}}
{{end}}{{end}}`

const textPlanTemplate = `Experiment sizing
{{printf "%-20s %8s %14s %14s" "Metric" "SE" "Sample/group" "Pageviews"}}
{{range .Metrics}}{{printf "%-20s %8.4f %14d %14.0f" .Name .StandardError .SampleSize .Pageviews}}{{if .Computed}}  (computed){{end}}
{{end}}
Pageviews needed: {{printf "%.0f" .TotalPageviews}}

Duration
{{range .Durations}}{{printf "%-50s %5s %14.0f %6.0f days" (join .Metrics ", ") (pct .TrafficFraction) .Pageviews .Days}}
{{end}}`

const markdownPlanTemplate = `# Experiment sizing

| Metric | SE | Sample per group | Pageviews |
|---|---:|---:|---:|
{{range .Metrics}}| {{.Name}} | {{f4 .StandardError}} | {{.SampleSize}}{{if .Computed}} (computed){{end}} | {{printf "%.0f" .Pageviews}} |
{{end}}
Pageviews needed: **{{printf "%.0f" .TotalPageviews}}**

## Duration

| Metrics | Traffic | Pageviews | Days |
|---|---:|---:|---:|
{{range .Durations}}| {{join .Metrics ", "}} | {{pct .TrafficFraction}} | {{printf "%.0f" .Pageviews}} | {{printf "%.0f" .Days}} |
{{end}}`
