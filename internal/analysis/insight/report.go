package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/domain/rules"
	"taskquest/internal/analysis/aggregate"
)

// SectionReport is one section of a report; Error is set when the section failed
type SectionReport struct {
	Section Section          `json:"section"`
	Insight *metrics.Insight `json:"insight,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Report is a periodic summary across every section
type Report struct {
	UserID      core.UserID               `json:"user_id"`
	Range       core.DateRange            `json:"range"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Daily       []metrics.AggregateWindow `json:"daily"`
	Sections    []SectionReport           `json:"sections"`
}

// WeeklyReport builds every section plus the daily completion table for data.Range
func (e *Engine) WeeklyReport(user core.UserID, data Data) Report {
	if data.Now.IsZero() {
		data.Now = time.Now()
	}
	set := e.rules.Get()
	r := Report{
		UserID:      user,
		Range:       data.Range,
		GeneratedAt: data.Now,
		Daily:       e.Windows(set, data, metrics.Daily),
	}

	results := e.BuildAll(AllSections, data)
	for _, s := range AllSections {
		res := results[s]
		sr := SectionReport{Section: s, Insight: res.Insight}
		if res.Err != nil {
			sr.Error = res.Err.Error()
		}
		r.Sections = append(r.Sections, sr)
	}
	return r
}

// Windows buckets completed-task XP over data.Range at the given granularity
func (e *Engine) Windows(set *rules.RuleSet, data Data, granularity metrics.Granularity) []metrics.AggregateWindow {
	return e.aggregator.Aggregate(aggregate.FromTasks(data.Tasks, set.XPByComplexity), granularity, data.Range.From, data.Range.To)
}

// Markdown renders the report as a Markdown document
func (r Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Weekly report\n\n")
	fmt.Fprintf(&b, "%s to %s\n\n", r.Range.From.Format("Jan 2, 2006"), r.Range.To.Add(-time.Nanosecond).Format("Jan 2, 2006"))

	if len(r.Daily) > 0 {
		b.WriteString("## Daily activity\n\n")
		b.WriteString("| Day | Tasks | XP |\n|---|---:|---:|\n")
		for _, w := range r.Daily {
			fmt.Fprintf(&b, "| %s | %d | %.0f |\n", w.Start.Format("Mon Jan 2"), w.Count, w.Sum)
		}
		count, sum := aggregate.Totals(r.Daily)
		fmt.Fprintf(&b, "| **Total** | **%d** | **%.0f** |\n\n", count, sum)
	}

	for _, s := range r.Sections {
		if s.Insight == nil {
			fmt.Fprintf(&b, "## %s\n\n_Unavailable: %s_\n\n", cases.Title(language.English).String(string(s.Section)), s.Error)
			continue
		}
		in := s.Insight
		fmt.Fprintf(&b, "## %s\n\n", in.Title)
		fmt.Fprintf(&b, "**%s** (confidence %.0f%%)", strings.ReplaceAll(in.Category, "_", " "), in.Confidence*100)
		if in.Trend != nil && in.Trend.Direction != metrics.Stable {
			fmt.Fprintf(&b, ", %s %.1f%%", in.Trend.Direction, in.Trend.Magnitude)
		}
		fmt.Fprintf(&b, "\n\n%s\n\n", in.Description)
		for _, rec := range in.Recommendations {
			fmt.Fprintf(&b, "- [%s] %s\n", rec.Priority, rec.Text)
		}
		if len(in.Recommendations) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderHTML converts Markdown to an HTML fragment
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(md), p, renderer)
}

// HTML renders the report as an HTML fragment
func (r Report) HTML() []byte {
	return RenderHTML(r.Markdown())
}
