package markup

import (
	"regexp"
	"strings"
)

const (
	sectionHeaderOpen = `<div class="section-header">`
	finalAnswerOpen   = `<div class="final-answer">`
)

type sectionRule struct {
	re    *regexp.Regexp
	title string
}

// lineStart matches where a browser regexp in multiline mode sees the start
// of a line: the start of text or just after \n, \r, U+2028 or U+2029. The
// terminator is captured so replacements can put it back.
const lineStart = `(^|[\n\r\x{2028}\x{2029}])`

// Headers are only recognised at the start of a line and must end in a colon
// or a word boundary. The colon only swallows whitespace when present.
var sectionRules = []sectionRule{
	{sectionPattern(`1\. Problem Analysis`), "1. Problem Analysis"},
	{sectionPattern(`2\. Key Concepts\s*(?:&|and)?\s*Formulas`), "2. Key Concepts & Formulas"},
	{sectionPattern(`3\. Step-by-Step Solution`), "3. Step-by-Step Solution"},
	{sectionPattern(`4\. Final Answer`), "4. Final Answer"},
	{sectionPattern(`5\. Verification\s*(?:&|and)?\s*Quality Check`), "5. Verification & Quality Check"},
	{sectionPattern(`6\. Common Mistakes\s*(?:&|and)?\s*Tips`), "6. Common Mistakes & Tips"},
}

func sectionPattern(title string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + lineStart + title + `(?:\s*:|\b)`)
}

func sectionHeaders(s string) string {
	for _, r := range sectionRules {
		s = r.re.ReplaceAllString(s, "${1}"+sectionHeaderOpen+r.title+"</div>")
	}
	return s
}

// boxed content may hold one level of nested braces, e.g. \boxed{\frac{1}{2}}.
var boxedRe = regexp.MustCompile(`(?i)\\boxed\{([^{}]*(?:\{[^{}]*\}[^{}]*)*)\}`)

func boxedAnswers(s string) string {
	return boxedRe.ReplaceAllString(s, finalAnswerOpen+`\[${1}\]</div>`)
}

var (
	alignRe    = regexp.MustCompile(`(?i)\\begin\{align\*?\}([\s\S]*?)\\end\{align\*?\}`)
	eqnarrayRe = regexp.MustCompile(`(?i)\\begin\{eqnarray\*?\}([\s\S]*?)\\end\{eqnarray\*?\}`)
)

const alignedTemplate = `<div class="equation-align">\[\begin{aligned}${1}\end{aligned}\]</div>`

func alignBlocks(s string) string { return alignRe.ReplaceAllString(s, alignedTemplate) }

func eqnarrayBlocks(s string) string { return eqnarrayRe.ReplaceAllString(s, alignedTemplate) }

var displayMathRe = regexp.MustCompile(`\$\$([^$]+)\$\$`)

func displayMath(s string) string {
	return displayMathRe.ReplaceAllString(s, `\[${1}\]`)
}

// inlineMath rewrites $x$ to \(x\). The opening '$' must not follow another
// '$', the closing one must not precede another, and the span holds at least
// one character and no newline. Adjacency is judged on the input text.
func inlineMath(s string) string {
	var b strings.Builder
	last := 0
	i := 0
	for i < len(s) {
		if s[i] != '$' || (i > 0 && s[i-1] == '$') {
			i++
			continue
		}
		j := i + 1
		for j < len(s) && s[j] != '$' && s[j] != '\n' {
			j++
		}
		if j == i+1 || j >= len(s) || s[j] != '$' || (j+1 < len(s) && s[j+1] == '$') {
			i++
			continue
		}
		b.WriteString(s[last:i])
		b.WriteString(`\(`)
		b.WriteString(s[i+1 : j])
		b.WriteString(`\)`)
		last = j + 1
		i = j + 1
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

var (
	stepWordRe   = regexp.MustCompile(lineStart + `Step` + anySpace + `+(\d+):` + anySpace + `*([^\n<]+)`)
	stepNumberRe = regexp.MustCompile(lineStart + `(\d+)\.` + anySpace + `*([^\n<]+)`)
)

const stepTemplate = `${1}<div class="step-number">${2}</div><div class="step-content">${3}</div>`

// stepMarkers handles "Step N: text" and "N. text" lines. Once a line is
// rewritten it starts with '<', so the second pattern cannot fire on it.
func stepMarkers(s string) string {
	s = stepWordRe.ReplaceAllString(s, stepTemplate)
	return stepNumberRe.ReplaceAllString(s, stepTemplate)
}

// The bold span does not cross a line terminator.
var boldRe = regexp.MustCompile(`\*\*([^\n\r\x{2028}\x{2029}]*?)\*\*`)

func bold(s string) string { return boldRe.ReplaceAllString(s, `<strong>${1}</strong>`) }

func lineBreaks(s string) string {
	s = strings.ReplaceAll(s, "\n\n", "</p><p>")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// paragraphWrap treats a section header or final answer block as evidence
// that the text is already block-structured.
func paragraphWrap(s string) string {
	if strings.Contains(s, sectionHeaderOpen) || strings.Contains(s, finalAnswerOpen) {
		return s
	}
	return "<p>" + s + "</p>"
}

// anySpace matches the whitespace set browsers use for \s, which is wider
// than RE2's ASCII-only class.
const anySpace = `[\s\x0B\x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}]`

var (
	spaceRunRe  = regexp.MustCompile(anySpace + `+`)
	interTagRe  = regexp.MustCompile(`>` + anySpace + `+<`)
	htmlEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")
)

func normalizeWhitespace(s string) string {
	s = spaceRunRe.ReplaceAllString(s, " ")
	return interTagRe.ReplaceAllString(s, "><")
}

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
