package markdown

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// blockSelector lists the elements whose text forms the excerpt, in
// document order.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, blockquote"

// PlainText renders md, drops code and images, and returns at most max
// characters of whitespace-collapsed text. Longer text is cut and marked
// with "...". A max of zero or less means no limit.
func PlainText(md string, max int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(HTML(md)))
	if err != nil {
		return ""
	}
	doc.Find("pre, code, img").Remove()

	var parts []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")

	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "..."
}
