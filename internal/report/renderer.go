package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"abtest/domain/experiment"
	"abtest/domain/stats"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gonum.org/v1/gonum/stat/distuv"
)

// Format selects the output encoding
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts text, json, markdown (or md) and html
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, markdown or html)", s)
}

// Renderer writes reports and plans in one of the supported formats
type Renderer struct {
	writer io.Writer
	format Format
}

// NewRenderer creates a renderer; a nil writer means stdout
func NewRenderer(writer io.Writer, format Format) *Renderer {
	if writer == nil {
		writer = os.Stdout
	}
	if format == "" {
		format = FormatText
	}
	return &Renderer{writer: writer, format: format}
}

// Report renders an analysis report
func (r *Renderer) Report(report *stats.Report) error {
	switch r.format {
	case FormatJSON:
		return r.json(report)
	case FormatText:
		return r.template("report.txt", textReportTemplate, report)
	}
	md, err := execute("report.md", markdownReportTemplate, report)
	if err != nil {
		return err
	}
	return r.markdownOrHTML(md, "A/B test analysis "+shortID(report.ID))
}

// Plan renders a power/duration plan
func (r *Renderer) Plan(plan *stats.ExperimentPlan) error {
	switch r.format {
	case FormatJSON:
		return r.json(plan)
	case FormatText:
		return r.template("plan.txt", textPlanTemplate, plan)
	}
	md, err := execute("plan.md", markdownPlanTemplate, plan)
	if err != nil {
		return err
	}
	return r.markdownOrHTML(md, "Experiment sizing")
}

// SignTest renders a single sign test result
func (r *Renderer) SignTest(result *stats.SignTestResult, alpha float64) error {
	if r.format == FormatJSON {
		return r.json(struct {
			*stats.SignTestResult
			Alpha       float64 `json:"alpha"`
			Significant bool    `json:"significant"`
		}{result, alpha, result.PValue < alpha})
	}
	_, err := fmt.Fprintf(r.writer, "%s\n", signTestSentence(result, alpha))
	return err
}

func (r *Renderer) json(v interface{}) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) template(name, text string, data interface{}) error {
	out, err := execute(name, text, data)
	if err != nil {
		return err
	}
	_, err = r.writer.Write(out)
	return err
}

func (r *Renderer) markdownOrHTML(md []byte, title string) error {
	if r.format == FormatMarkdown {
		_, err := r.writer.Write(md)
		return err
	}
	_, err := r.writer.Write(ToHTML(md, title))
	return err
}

// ToHTML converts a markdown document into a complete HTML page
func ToHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: title,
	})
	return markdown.ToHTML(md, p, renderer)
}

func execute(name, text string, data interface{}) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(funcMap).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

var funcMap = template.FuncMap{
	"f4":         func(x float64) string { return fmt.Sprintf("%.4f", x) },
	"pct":        func(x float64) string { return fmt.Sprintf("%.0f%%", x*100) },
	"interval":   formatInterval,
	"confidence": confidenceLabel,
	"passFail": func(ok bool) string {
		if ok {
			return "PASS"
		}
		return "FAIL"
	},
	"yesNo": func(ok bool) string {
		if ok {
			return "yes"
		}
		return "no"
	},
	"join":      strings.Join,
	"narrative": narrative,
	"signTest":  signTestSentence,
	"short":     shortID,
	"fields":    func() []experiment.Field { return experiment.Fields },
	"total":     func(agg experiment.ArmAggregate, f experiment.Field) int64 { return agg.Total(f) },
}

func formatInterval(ci stats.ConfidenceInterval) string {
	return fmt.Sprintf("[%.4f, %.4f]", ci.Lower, ci.Upper)
}

// confidenceLabel turns a z multiplier into its two-sided confidence level
func confidenceLabel(z float64) string {
	return fmt.Sprintf("%.0f%%", (2*distuv.UnitNormal.CDF(z)-1)*100)
}

// narrative states what an effect interval means for the metric
func narrative(m stats.MetricResult) string {
	if m.Effect == nil {
		return fmt.Sprintf("%s: no estimate (%s)", m.Metric.Name, m.EffectError)
	}
	e := m.Effect
	j := m.Judgement

	statistical := "not statistically significant (interval includes 0)"
	if j != nil && j.StatisticallySignificant {
		statistical = "statistically significant"
	}
	practical := fmt.Sprintf("not practically significant (MDE %.4f)", m.Metric.MDE)
	if j != nil && j.PracticallySignificant {
		practical = fmt.Sprintf("practically significant (beyond MDE %.4f)", m.Metric.MDE)
	}
	return fmt.Sprintf("%s: difference %.4f, %s CI %s; %s, %s",
		m.Metric.Name, e.Difference, confidenceLabel(e.ZMultiplier), formatInterval(e.Interval), statistical, practical)
}

func signTestSentence(s *stats.SignTestResult, alpha float64) string {
	verdict := "not significant"
	if s.PValue < alpha {
		verdict = "significant"
	}
	return fmt.Sprintf("sign test %s: experiment higher on %d of %d days (%d ties), p = %.4f, %s at alpha %.2f",
		s.Metric, s.Successes, s.Trials, s.Ties, s.PValue, verdict, alpha)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
