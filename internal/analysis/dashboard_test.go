package analysis

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/mathmatrix/internal/parser"
)

func metricsFixture() []parser.Record {
	return []parser.Record{
		{"timestamp": "2025-01-01 09:00", "response_time": "2.0", "success": "true", "accuracy": "90", "problem_type": "**Algebra**"},
		{"timestamp": "2025-01-01 09:05", "response_time": "4.5", "success": "FALSE", "accuracy": "88.5", "problem_type": "Calculus"},
		{"timestamp": "", "response_time": "", "success": "", "accuracy": "91.256", "problem_type": "  "},
		{"timestamp": "2025-01-01 09:15", "response_time": "abc", "success": "True", "accuracy": "92.5", "problem_type": "Algebra"},
	}
}

func TestComputeKPIs(t *testing.T) {
	k, err := ComputeKPIs(metricsFixture())
	if err != nil {
		t.Fatalf("ComputeKPIs: %v", err)
	}
	want := KPIs{TotalRequests: 4, AccuracyPct: "92.50", AvgResponseTimeSeconds: "1.63", FailedCount: 1}
	if k != want {
		t.Fatalf("got %+v, want %+v", k, want)
	}
}

func TestComputeKPIsEmpty(t *testing.T) {
	k, err := ComputeKPIs(nil)
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}
	if k.TotalRequests != 0 || k.AvgResponseTimeSeconds != "0.00" || k.AccuracyPct != "0.00" {
		t.Fatalf("unexpected zero KPIs: %+v", k)
	}
}

func TestComputeKPIsUnparseableAccuracy(t *testing.T) {
	k, err := ComputeKPIs([]parser.Record{{"accuracy": "n/a", "response_time": "1"}})
	if err != nil {
		t.Fatalf("ComputeKPIs: %v", err)
	}
	if k.AccuracyPct != "0.00" {
		t.Fatalf("accuracy = %q, want 0.00", k.AccuracyPct)
	}
	if k.FailedCount != 0 {
		t.Fatalf("missing success must not count as failed")
	}
}

func TestGroupByProblemType(t *testing.T) {
	got := GroupByProblemType(metricsFixture())
	want := []LabelCount{{"Algebra", 2}, {"Calculus", 1}, {"Other", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	// case-sensitive labels are not merged
	got = GroupByProblemType([]parser.Record{{"problem_type": "geometry"}, {"problem_type": "Geometry"}, {"problem_type": "**geometry**"}})
	want = []LabelCount{{"geometry", 2}, {"Geometry", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRecentFeedback(t *testing.T) {
	rows := []parser.Record{
		{"rating": "5", "feedback": "Great"},
		{"rating": "", "feedback": ""},
		{"rating": "3", "feedback": "Ok"},
	}
	got := RecentFeedback(rows, 3)
	want := []FeedbackEntry{
		{Rating: 3, RatingStars: "⭐⭐⭐", Comment: "Ok"},
		{Rating: 5, RatingStars: "⭐⭐⭐⭐⭐", Comment: "Great"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRecentFeedbackTakesLastN(t *testing.T) {
	rows := []parser.Record{
		{"rating": "1", "feedback": "a"},
		{"rating": "2", "feedback": "b"},
		{"rating": "x", "feedback": "c"},
		{"rating": "4.7", "feedback": "d"},
		{"rating": "-2", "feedback": "e"},
	}
	got := RecentFeedback(rows, 3)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Comment != "e" || got[1].Comment != "d" || got[2].Comment != "c" {
		t.Fatalf("order = %+v", got)
	}
	if got[0].RatingStars != "" || got[1].RatingStars != "⭐⭐⭐⭐" || got[2].RatingStars != "" {
		t.Fatalf("stars = %q %q %q", got[0].RatingStars, got[1].RatingStars, got[2].RatingStars)
	}
	if RecentFeedback(rows, 0) != nil {
		t.Fatalf("n=0 should return nil")
	}
}

func TestRatingHistogram(t *testing.T) {
	rows := []parser.Record{{"rating": "1"}, {"rating": "1"}, {"rating": "6"}, {"rating": "3"}, {"rating": " 2"}, {}}
	h := RatingHistogram(rows)
	want := Histogram{2, 0, 1, 0, 0}
	if h != want {
		t.Fatalf("got %v, want %v", h, want)
	}
	if h.Count("1") != 2 || h.Count("6") != 0 {
		t.Fatalf("Count mismatch: %v", h)
	}
	b, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"1":2,"2":0,"3":1,"4":0,"5":0}` {
		t.Fatalf("json = %s", b)
	}
}

func TestPerformanceTable(t *testing.T) {
	rows := PerformanceTable(metricsFixture())
	if len(rows) != 4 {
		t.Fatalf("len = %d", len(rows))
	}
	first := rows[0]
	if first.Index != 4 || first.ResponseTime != "0.00s" || !first.Success || first.SuccessIcon != "✅" || first.ProblemType != "Algebra" {
		t.Fatalf("newest row = %+v", first)
	}
	blank := rows[1]
	if blank.Timestamp != "N/A" || blank.ProblemType != "N/A" || blank.Success || blank.SuccessIcon != "❌" {
		t.Fatalf("blank row = %+v", blank)
	}
	if rows[3].Index != 1 || rows[3].ResponseTime != "2.00s" {
		t.Fatalf("oldest row = %+v", rows[3])
	}
}

func TestBuildDashboardSkipsEmptyTables(t *testing.T) {
	metrics := parser.Table{Headers: []string{"timestamp"}, Records: metricsFixture()}
	d := BuildDashboard(metrics, parser.Table{}, BuildOptions{})
	if d.KPIs == nil || d.KPIs.TotalRequests != 4 {
		t.Fatalf("expected KPIs, got %+v", d.KPIs)
	}
	if d.Ratings != nil || d.RecentFeedback != nil {
		t.Fatalf("feedback sections should be nil for empty feedback")
	}

	d = BuildDashboard(parser.Table{}, parser.Table{}, BuildOptions{})
	if d.KPIs != nil || d.Rows != nil || d.ProblemTypes != nil {
		t.Fatalf("metrics sections should be nil for empty metrics: %+v", d)
	}
	md := d.Markdown()
	if strings.Contains(md, "[KPIS]") || !strings.Contains(md, "Metrics rows: 0") {
		t.Fatalf("unexpected markdown: %s", md)
	}
}

func TestDashboardMarkdown(t *testing.T) {
	metrics := parser.Table{Records: metricsFixture()}
	feedback := parser.Table{Records: []parser.Record{{"rating": "4", "feedback": ""}}}
	md := BuildDashboard(metrics, feedback, BuildOptions{RecentFeedback: 2}).Markdown()
	for _, want := range []string{
		"- Total requests: 4",
		"- Accuracy: 92.50%",
		"- Avg response time: 1.63s",
		"- Algebra: 2",
		"- 4: 1",
		"No recent feedback comments.",
		"| 4 | 2025-01-01 09:15 | 0.00s | ✅ | Algebra |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestLeadingFloat(t *testing.T) {
	cases := map[string]float64{"2.5": 2.5, " 3.1s": 3.1, ".5": 0.5, "1e2": 100, "-4": -4}
	for in, want := range cases {
		got, ok := leadingFloat(in)
		if !ok || got != want {
			t.Errorf("leadingFloat(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "abc", "."} {
		if _, ok := leadingFloat(in); ok {
			t.Errorf("leadingFloat(%q) should fail", in)
		}
	}
}

func TestToFixed2(t *testing.T) {
	cases := map[float64]string{
		0:      "0.00",
		1.625:  "1.63",
		0.125:  "0.13",
		1.005:  "1.00",
		92.5:   "92.50",
		-1.625: "-1.63",
		1234.5: "1234.50",
	}
	for in, want := range cases {
		if got := toFixed2(in); got != want {
			t.Errorf("toFixed2(%v) = %q, want %q", in, got, want)
		}
	}
}
