package markup

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText renders a fragment produced by the pipeline as terminal text.
// Section headers, steps and the final answer get their own lines; math
// delimiters are left as-is.
func PlainText(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	var b strings.Builder
	writeText(&b, doc.Find("body"))
	return tidyLines(b.String()), nil
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
		case "br":
			b.WriteString("\n")
		case "p":
			b.WriteString("\n")
			writeText(b, c)
			b.WriteString("\n")
		case "div":
			switch {
			case c.HasClass("section-header"):
				fmt.Fprintf(b, "\n\n== %s ==\n", strings.TrimSpace(c.Text()))
			case c.HasClass("step-number"):
				fmt.Fprintf(b, "\nStep %s: ", strings.TrimSpace(c.Text()))
			case c.HasClass("step-content"):
				writeText(b, c)
				b.WriteString("\n")
			case c.HasClass("final-answer"):
				fmt.Fprintf(b, "\nAnswer: %s\n", strings.TrimSpace(c.Text()))
			default:
				b.WriteString("\n")
				writeText(b, c)
				b.WriteString("\n")
			}
		default:
			writeText(b, c)
		}
	})
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
