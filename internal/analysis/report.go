package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/mathmatrix/internal/parser"
)

// BuildOptions controls dashboard assembly.
type BuildOptions struct {
	// RecentFeedback is how many feedback cards to show; 0 means 3.
	RecentFeedback int
}

// Dashboard is everything the dashboard renderer needs. Sections for an
// empty source table are left nil.
type Dashboard struct {
	KPIs           *KPIs            `json:"kpis,omitempty"`
	Rows           []PerformanceRow `json:"rows,omitempty"`
	ProblemTypes   []LabelCount     `json:"problem_types,omitempty"`
	RecentFeedback []FeedbackEntry  `json:"recent_feedback,omitempty"`
	Ratings        *Histogram       `json:"ratings,omitempty"`
	MetricsRows    int              `json:"metrics_rows"`
	FeedbackRows   int              `json:"feedback_rows"`
}

// BuildDashboard aggregates both tables. No aggregation runs for an empty table.
func BuildDashboard(metrics, feedback parser.Table, opt BuildOptions) *Dashboard {
	n := opt.RecentFeedback
	if n <= 0 {
		n = defaultRecentCnt
	}
	d := &Dashboard{MetricsRows: metrics.Len(), FeedbackRows: feedback.Len()}
	if !metrics.Empty() {
		k, err := ComputeKPIs(metrics.Records)
		if err == nil {
			d.KPIs = &k
		}
		d.Rows = PerformanceTable(metrics.Records)
		d.ProblemTypes = GroupByProblemType(metrics.Records)
	}
	if !feedback.Empty() {
		h := RatingHistogram(feedback.Records)
		d.Ratings = &h
		d.RecentFeedback = RecentFeedback(feedback.Records, n)
		if d.RecentFeedback == nil {
			d.RecentFeedback = []FeedbackEntry{}
		}
	}
	return d
}

// Markdown renders a compact text version of the dashboard for terminals.
func (d *Dashboard) Markdown() string {
	var b strings.Builder
	b.WriteString("[DASHBOARD]\n")
	b.WriteString(fmt.Sprintf("Metrics rows: %d\n", d.MetricsRows))
	b.WriteString(fmt.Sprintf("Feedback rows: %d\n", d.FeedbackRows))

	if d.KPIs != nil {
		b.WriteString("\n[KPIS]\n")
		b.WriteString(fmt.Sprintf("- Total requests: %d\n", d.KPIs.TotalRequests))
		b.WriteString(fmt.Sprintf("- Accuracy: %s%%\n", d.KPIs.AccuracyPct))
		b.WriteString(fmt.Sprintf("- Avg response time: %ss\n", d.KPIs.AvgResponseTimeSeconds))
		b.WriteString(fmt.Sprintf("- Failed responses: %d\n", d.KPIs.FailedCount))
	}
	if len(d.ProblemTypes) > 0 {
		b.WriteString("\n[PROBLEM TYPES]\n")
		for _, lc := range d.ProblemTypes {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(lc.Label), lc.Count))
		}
	}
	if d.Ratings != nil {
		b.WriteString("\n[RATINGS]\n")
		for _, lc := range d.Ratings.Series() {
			b.WriteString(fmt.Sprintf("- %s: %d\n", lc.Label, lc.Count))
		}
	}
	if d.RecentFeedback != nil {
		b.WriteString("\n[RECENT FEEDBACK]\n")
		if len(d.RecentFeedback) == 0 {
			b.WriteString("No recent feedback comments.\n")
		}
		for _, fe := range d.RecentFeedback {
			b.WriteString(fmt.Sprintf("- Rating: %s \"%s\"\n", fe.RatingStars, safeVal(fe.Comment)))
		}
	}
	if len(d.Rows) > 0 {
		b.WriteString("\n[PERFORMANCE]\n")
		b.WriteString("| # | Timestamp | Response | Success | Problem type |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, r := range d.Rows {
			b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				r.Index, safeVal(r.Timestamp), r.ResponseTime, r.SuccessIcon, safeVal(r.ProblemType)))
		}
	}
	return b.String()
}

// safeVal keeps a value on one line and out of table cell syntax.
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
