package parser_test

import (
	"reflect"
	"testing"

	"github.com/KaramelBytes/mathmatrix/internal/parser"
)

func TestParseHeadersAndRecords(t *testing.T) {
	text := "timestamp, response_time ,success,accuracy,problem_type\n" +
		"2025-01-01 10:00,2.5,true,92.5,**Algebra**\n" +
		"2025-01-01 10:05,3.1,false,90.0,\"Calculus, limits\"\n"
	tbl := parser.Parse(text)

	wantHeaders := []string{"timestamp", "response_time", "success", "accuracy", "problem_type"}
	if !reflect.DeepEqual(tbl.Headers, wantHeaders) {
		t.Fatalf("headers = %q, want %q", tbl.Headers, wantHeaders)
	}
	if tbl.Len() != 2 {
		t.Fatalf("records = %d, want 2", tbl.Len())
	}
	if got := tbl.Records[0]["response_time"]; got != "2.5" {
		t.Errorf("response_time = %q", got)
	}
	if got := tbl.Records[0]["problem_type"]; got != "**Algebra**" {
		t.Errorf("problem_type = %q", got)
	}
	if got := tbl.Records[1]["problem_type"]; got != "Calculus, limits" {
		t.Errorf("quoted field = %q, want literal text with comma", got)
	}
}

func TestParseColumnCountMismatch(t *testing.T) {
	cases := []struct {
		name string
		line string
		want parser.Record
	}{
		{"short row pads", "1", parser.Record{"a": "1", "b": "", "c": ""}},
		{"long row drops extras", "1,2,3,4,5", parser.Record{"a": "1", "b": "2", "c": "3"}},
		{"empty cell shifts left", "1,,3", parser.Record{"a": "1", "b": "3", "c": ""}},
		{"whitespace cell", "1, ,3", parser.Record{"a": "1", "b": "", "c": "3"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tbl := parser.Parse("a,b,c\n" + c.line)
			if tbl.Len() != 1 {
				t.Fatalf("records = %d", tbl.Len())
			}
			if !reflect.DeepEqual(tbl.Records[0], c.want) {
				t.Fatalf("got %v, want %v", tbl.Records[0], c.want)
			}
		})
	}
}

func TestParseQuotedSpans(t *testing.T) {
	tbl := parser.Parse("rating,feedback\n5,\"Great, very clear\"\n4, \"ok\" \n")
	if got := tbl.Records[0]["feedback"]; got != "Great, very clear" {
		t.Errorf("feedback[0] = %q", got)
	}
	if got := tbl.Records[1]["feedback"]; got != "ok" {
		t.Errorf("feedback[1] = %q", got)
	}
}

func TestParseQuotedSpanStopsAtLineTerminators(t *testing.T) {
	for name, sep := range map[string]string{"cr": "\r", "line separator": "\u2028", "paragraph separator": "\u2029"} {
		tbl := parser.Parse("a,b\n1.5 x\"y" + sep + "\"q, r\"")
		if got := tbl.Records[0]["a"]; got != "q, r" {
			t.Errorf("%s: a = %q, want %q", name, got, "q, r")
		}
		if got := tbl.Records[0]["b"]; got != "" {
			t.Errorf("%s: b = %q, want empty", name, got)
		}
	}
}

func TestParseCRLF(t *testing.T) {
	tbl := parser.Parse("a,b\r\n1,2\r\n3,4\r\n")
	if tbl.Len() != 2 {
		t.Fatalf("records = %d", tbl.Len())
	}
	if tbl.Records[1]["b"] != "4" {
		t.Fatalf("b = %q", tbl.Records[1]["b"])
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "   \n\n "} {
		tbl := parser.Parse(in)
		if !tbl.Empty() || len(tbl.Headers) != 0 {
			t.Fatalf("Parse(%q) = %+v, want empty", in, tbl)
		}
	}
	tbl := parser.Parse("a,b\n")
	if !tbl.Empty() || len(tbl.Headers) != 2 {
		t.Fatalf("header-only = %+v", tbl)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	text := "timestamp,rating,feedback\n" +
		"2025-01-01,5,\"Great, thanks\"\n" +
		"2025-01-02,3,  Ok  \n" +
		"2025-01-03,1,Too slow\n"
	first := parser.Parse(text)
	second := parser.Parse(parser.Format(first))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("round trip mismatch:\n first=%+v\nsecond=%+v", first, second)
	}
	if second.Records[1]["feedback"] != "Ok" {
		t.Fatalf("trimmed value = %q", second.Records[1]["feedback"])
	}
}

func TestFormatKeepsBlankCellsInPlace(t *testing.T) {
	tbl := parser.Table{
		Headers: []string{"timestamp", "response_time", "success"},
		Records: []parser.Record{
			{"timestamp": "", "response_time": "1.5", "success": "true"},
			{"timestamp": "2025-01-01", "response_time": "", "success": "false"},
			{"timestamp": "2025-01-02", "response_time": "2", "success": ""},
			{"timestamp": "", "response_time": "", "success": ""},
		},
	}
	got := parser.Parse(parser.Format(tbl))
	if !reflect.DeepEqual(got, tbl) {
		t.Fatalf("round trip mismatch:\n want=%+v\n  got=%+v", tbl, got)
	}
}

func TestFormatCleansCells(t *testing.T) {
	tbl := parser.Table{
		Headers: []string{"rating", "feedback"},
		Records: []parser.Record{
			{"rating": "5", "feedback": `say "hi", ok`},
			{"rating": "4", "feedback": "two\nlines"},
			{"rating": "3", "feedback": `"quoted"`},
		},
	}
	got := parser.Parse(parser.Format(tbl))
	if got.Len() != 3 {
		t.Fatalf("records = %d, want 3", got.Len())
	}
	for i, want := range []string{"say hi, ok", "two lines", "quoted"} {
		if v := got.Records[i]["feedback"]; v != want {
			t.Errorf("feedback[%d] = %q, want %q", i, v, want)
		}
		if v := got.Records[i]["rating"]; v != tbl.Records[i]["rating"] {
			t.Errorf("rating[%d] = %q", i, v)
		}
	}
}
