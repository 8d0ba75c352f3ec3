package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/KaramelBytes/mathmatrix/internal/parser"
)

// ErrNoRecords is returned by ComputeKPIs for an empty metrics table.
var ErrNoRecords = errors.New("no metrics records")

// Field names used by the dashboard sources.
const (
	FieldTimestamp    = "timestamp"
	FieldResponseTime = "response_time"
	FieldSuccess      = "success"
	FieldAccuracy     = "accuracy"
	FieldProblemType  = "problem_type"
	FieldRating       = "rating"
	FieldFeedback     = "feedback"
)

const (
	starGlyph        = "⭐"
	otherLabel       = "Other"
	notAvailable     = "N/A"
	successIcon      = "✅"
	failureIcon      = "❌"
	defaultRecentCnt = 3
	maxStars         = 1000
)

// KPIs are the headline numbers of the dashboard.
type KPIs struct {
	TotalRequests          int    `json:"total_requests"`
	AccuracyPct            string `json:"accuracy_pct"`
	AvgResponseTimeSeconds string `json:"avg_response_time_seconds"`
	FailedCount            int    `json:"failed_count"`
}

// LabelCount is one slice of a grouped count series.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FeedbackEntry is a recent feedback card.
type FeedbackEntry struct {
	Rating      int    `json:"rating"`
	RatingStars string `json:"rating_stars"`
	Comment     string `json:"comment"`
}

// PerformanceRow is one row of the performance table, newest first.
type PerformanceRow struct {
	Index        int    `json:"index"`
	Timestamp    string `json:"timestamp"`
	ResponseTime string `json:"response_time"`
	Success      bool   `json:"success"`
	SuccessIcon  string `json:"success_icon"`
	ProblemType  string `json:"problem_type"`
}

// ComputeKPIs summarizes the metrics records. An empty input returns
// ErrNoRecords together with zero-valued, fully formatted KPIs.
func ComputeKPIs(metrics []parser.Record) (KPIs, error) {
	if len(metrics) == 0 {
		return KPIs{AccuracyPct: toFixed2(0), AvgResponseTimeSeconds: toFixed2(0)}, ErrNoRecords
	}
	latest := metrics[len(metrics)-1]
	acc, ok := leadingFloat(latest[FieldAccuracy])
	if !ok {
		acc = 0
	}
	var total float64
	failed := 0
	for _, row := range metrics {
		if v, ok := leadingFloat(row[FieldResponseTime]); ok {
			total += v
		}
		if strings.ToLower(row[FieldSuccess]) == "false" {
			failed++
		}
	}
	return KPIs{
		TotalRequests:          len(metrics),
		AccuracyPct:            toFixed2(acc),
		AvgResponseTimeSeconds: toFixed2(total / float64(len(metrics))),
		FailedCount:            failed,
	}, nil
}

// GroupByProblemType counts records per cleaned problem type in first-seen order.
func GroupByProblemType(metrics []parser.Record) []LabelCount {
	var out []LabelCount
	index := map[string]int{}
	for _, row := range metrics {
		label := cleanProblemType(row[FieldProblemType])
		if label == "" {
			label = otherLabel
		}
		if i, ok := index[label]; ok {
			out[i].Count++
			continue
		}
		index[label] = len(out)
		out = append(out, LabelCount{Label: label, Count: 1})
	}
	return out
}

// RecentFeedback returns up to n entries with a non-blank comment, newest first.
func RecentFeedback(feedback []parser.Record, n int) []FeedbackEntry {
	if n <= 0 {
		return nil
	}
	var withText []parser.Record
	for _, row := range feedback {
		if strings.TrimSpace(row[FieldFeedback]) != "" {
			withText = append(withText, row)
		}
	}
	if len(withText) > n {
		withText = withText[len(withText)-n:]
	}
	out := make([]FeedbackEntry, 0, len(withText))
	for i := len(withText) - 1; i >= 0; i-- {
		rating := leadingInt(withText[i][FieldRating])
		out = append(out, FeedbackEntry{
			Rating:      rating,
			RatingStars: strings.Repeat(starGlyph, rating),
			Comment:     withText[i][FieldFeedback],
		})
	}
	return out
}

// RatingBins are the fixed histogram labels.
var RatingBins = []string{"1", "2", "3", "4", "5"}

// Histogram counts ratings into the fixed bins "1".."5".
type Histogram [5]int

// RatingHistogram counts exact bin matches; any other value is ignored.
func RatingHistogram(feedback []parser.Record) Histogram {
	var h Histogram
	for _, row := range feedback {
		for i, bin := range RatingBins {
			if row[FieldRating] == bin {
				h[i]++
				break
			}
		}
	}
	return h
}

// Count returns the count for a bin label, 0 for unknown labels.
func (h Histogram) Count(label string) int {
	for i, bin := range RatingBins {
		if bin == label {
			return h[i]
		}
	}
	return 0
}

// Series returns the bins as an ordered label/count series for charting.
func (h Histogram) Series() []LabelCount {
	out := make([]LabelCount, len(RatingBins))
	for i, bin := range RatingBins {
		out[i] = LabelCount{Label: bin, Count: h[i]}
	}
	return out
}

// MarshalJSON encodes the histogram as an object keyed by rating bin.
func (h Histogram) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, len(RatingBins))
	for i, bin := range RatingBins {
		m[bin] = h[i]
	}
	return json.Marshal(m)
}

// PerformanceTable renders the metrics as table rows, newest first. Index
// counts down from the number of records.
func PerformanceTable(metrics []parser.Record) []PerformanceRow {
	out := make([]PerformanceRow, 0, len(metrics))
	for i := len(metrics) - 1; i >= 0; i-- {
		row := metrics[i]
		ok := strings.ToLower(row[FieldSuccess]) == "true"
		pr := PerformanceRow{
			Index:        i + 1,
			Timestamp:    row[FieldTimestamp],
			ResponseTime: toFixed2(floatOrZero(row[FieldResponseTime])) + "s",
			Success:      ok,
			SuccessIcon:  failureIcon,
			ProblemType:  cleanProblemType(row[FieldProblemType]),
		}
		if ok {
			pr.SuccessIcon = successIcon
		}
		if pr.Timestamp == "" {
			pr.Timestamp = notAvailable
		}
		if pr.ProblemType == "" {
			pr.ProblemType = notAvailable
		}
		out = append(out, pr)
	}
	return out
}

func cleanProblemType(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

var floatPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// leadingFloat parses the longest decimal prefix of s after leading spaces.
func leadingFloat(s string) (float64, bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// exponent overflow still has a usable mantissa
		if ne, ok := err.(*strconv.NumError); ok && errors.Is(ne.Err, strconv.ErrRange) {
			return v, true
		}
		return 0, false
	}
	return v, true
}

func floatOrZero(s string) float64 {
	v, _ := leadingFloat(s)
	return v
}

// leadingInt parses an optional sign and leading digits; negatives and
// unparseable input give 0. Results are capped at maxStars.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n < maxStars {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	if digits == 0 || neg {
		return 0
	}
	if n > maxStars {
		n = maxStars
	}
	return n
}

// toFixed2 formats v with two fraction digits, rounding the exact binary
// value half away from zero. strconv rounds ties to even, which disagrees
// with what dashboards usually show for values like 1.625.
func toFixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	neg := v < 0
	if neg {
		v = -v
	}
	exact := new(big.Float).SetFloat64(v).Text('f', 1100)
	dot := strings.IndexByte(exact, '.')
	n, _ := new(big.Int).SetString(exact[:dot]+exact[dot+1:dot+3], 10)
	if exact[dot+3] >= '5' {
		n.Add(n, big.NewInt(1))
	}
	s := n.String()
	for len(s) < 3 {
		s = "0" + s
	}
	out := s[:len(s)-2] + "." + s[len(s)-2:]
	if neg {
		out = "-" + out
	}
	return out
}
