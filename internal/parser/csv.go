package parser

import (
	"strings"
	"unicode"
)

// Record is one parsed data row keyed by header name.
type Record map[string]string

// Table is a parsed delimited-text resource. Headers keep the header-row order.
type Table struct {
	Headers []string
	Records []Record
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Records) }

// Empty reports whether the table carries no data rows.
func (t Table) Empty() bool { return len(t.Records) == 0 }

// Parse splits text into a header row and records.
//
// Each data line is tokenized so that a double-quoted span is one token and
// anything else splits on commas. Tokens are zipped against the headers by
// position: short rows are padded with "" and extra tokens are dropped.
func Parse(text string) Table {
	text = strings.TrimSpace(text)
	if text == "" {
		return Table{}
	}
	lines := strings.Split(text, "\n")
	headerCells := strings.Split(strings.TrimSuffix(lines[0], "\r"), ",")
	headers := make([]string, len(headerCells))
	for i, h := range headerCells {
		headers[i] = strings.TrimSpace(h)
	}

	t := Table{Headers: headers, Records: make([]Record, 0, len(lines)-1)}
	for _, line := range lines[1:] {
		values := tokenize(strings.TrimSuffix(line, "\r"))
		rec := make(Record, len(headers))
		for i, h := range headers {
			v := ""
			if i < len(values) {
				v = values[i]
			}
			rec[h] = strings.ReplaceAll(strings.TrimSpace(v), `"`, "")
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

// tokenize returns the raw cell tokens of one line. A token is either a
// quoted span (shortest closing quote that is followed by a separator) or a
// run of characters that are neither '"' nor ','. Either kind only counts
// when followed by optional whitespace and then ',' or the end of the line.
// Empty cells yield no token, so later cells shift left.
func tokenize(line string) []string {
	var out []string
	rs := []rune(line)
	i := 0
	for i < len(rs) {
		if end, ok := matchToken(rs, i); ok {
			out = append(out, string(rs[i:end]))
			i = end
			continue
		}
		i++
	}
	return out
}

func matchToken(rs []rune, i int) (int, bool) {
	if rs[i] == '"' {
		for k := i + 1; k < len(rs); k++ {
			if lineTerminator(rs[k]) {
				return 0, false
			}
			if rs[k] == '"' && atSeparator(rs, k+1) {
				return k + 1, true
			}
		}
		return 0, false
	}
	if rs[i] == ',' {
		return 0, false
	}
	end := i
	for end < len(rs) && rs[end] != '"' && rs[end] != ',' {
		end++
	}
	for ; end > i; end-- {
		if atSeparator(rs, end) {
			return end, true
		}
	}
	return 0, false
}

// lineTerminator reports the runes a quoted span cannot cross.
func lineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

func atSeparator(rs []rune, p int) bool {
	for p < len(rs) && unicode.IsSpace(rs[p]) {
		p++
	}
	return p == len(rs) || rs[p] == ','
}

// Format renders the table back to comma-separated text that Parse reads
// into the same table. Blank cells are written as "" so later cells keep
// their column, cells containing a comma are wrapped in double quotes, and
// characters Parse would drop or split on are removed first.
func Format(t Table) string {
	if len(t.Headers) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(t.Headers, ","))
	for _, rec := range t.Records {
		b.WriteString("\n")
		for i, h := range t.Headers {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(formatCell(rec[h]))
		}
	}
	b.WriteString("\n")
	return b.String()
}

var cellCleaner = strings.NewReplacer(`"`, "", "\r\n", " ", "\n", " ", "\r", " ", "\u2028", " ", "\u2029", " ")

func formatCell(v string) string {
	v = strings.TrimSpace(cellCleaner.Replace(v))
	switch {
	case v == "":
		return `""`
	case strings.Contains(v, ","):
		return `"` + v + `"`
	}
	return v
}
