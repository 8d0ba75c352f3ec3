package markup

import (
	"regexp"
	"strings"
)

var (
	fallbackDisplayRe = regexp.MustCompile(`\\\[([^\]]+)\\\]`)
	fallbackInlineRe  = regexp.MustCompile(`\\\(([^)]+)\\\)`)
	fallbackBoxedRe   = regexp.MustCompile(`\\boxed\{([^}]+)\}`)
)

// FallbackRender replaces math delimiters with bracketed plain text. It is
// applied to a fragment when the typesetting renderer fails on it.
func FallbackRender(fragment string) string {
	fragment = fallbackDisplayRe.ReplaceAllString(fragment, `<div class="math-fallback">[${1}]</div>`)
	fragment = fallbackInlineRe.ReplaceAllString(fragment, `<span class="math-fallback-inline">(${1})</span>`)
	return fallbackBoxedRe.ReplaceAllString(fragment, `<div class="final-answer-fallback">Answer: ${1}</div>`)
}

var plainPreviewEscaper = strings.NewReplacer(" ", "&nbsp;", "\n", "<br>")

// Preview renders the live preview pane for the text being typed. LaTeX-like
// input (anything with a backslash or '$') is wrapped as display math for the
// typesetter; plain text keeps its spacing. Blank input yields "".
func Preview(input string) string {
	text := strings.TrimSpace(input)
	if text == "" {
		return ""
	}
	if LooksLikeLaTeX(text) {
		return `\[` + text + `\]`
	}
	return `<div class="text-preview">` + plainPreviewEscaper.Replace(text) + `</div>`
}

// LooksLikeLaTeX reports whether text carries a backslash command or '$'.
func LooksLikeLaTeX(text string) bool {
	return strings.ContainsAny(text, `\$`)
}
