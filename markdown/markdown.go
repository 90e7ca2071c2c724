// Package markdown renders the Markdown subset used by posts: headings,
// paragraphs, fenced code, lists, blockquotes, rules and inline bold,
// italic, code, links and images. All text is HTML-escaped.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var (
	reHeading    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reBullet     = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	reOrdered    = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	reQuote      = regexp.MustCompile(`^>\s?(.*)$`)
	reRule       = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)
	reImage      = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]*)\)`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]*)\)`)
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reStrong     = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	reEmphasis   = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
)

// Markdown returns a templ.Component that renders content as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, content)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// HTML renders content and returns the markup as a string.
func HTML(content string) string {
	var buf bytes.Buffer
	Render(&buf, content)
	return buf.String()
}

// renderer tracks the single open block element. Blocks never nest.
type renderer struct {
	buf    *bytes.Buffer
	open   string
	inCode bool
}

func (r *renderer) closeBlock() {
	if r.open != "" {
		r.buf.WriteString("</" + r.open + ">")
		r.open = ""
	}
}

// enter opens tag unless it is already open and reports whether it did.
func (r *renderer) enter(tag string) bool {
	if r.open == tag {
		return false
	}
	r.closeBlock()
	r.buf.WriteString("<" + tag + ">")
	r.open = tag
	return true
}

// Render writes the HTML representation of md to buf.
func Render(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf}
	md = strings.ReplaceAll(md, "\r\n", "\n")

	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if r.inCode {
				buf.WriteString("</code></pre>")
				r.inCode = false
				continue
			}
			r.closeBlock()
			lang := strings.TrimSpace(strings.TrimSpace(line)[3:])
			if lang != "" {
				buf.WriteString(`<pre><code class="language-` + html.EscapeString(lang) + `">`)
			} else {
				buf.WriteString("<pre><code>")
			}
			r.inCode = true
			continue
		}
		if r.inCode {
			buf.WriteString(html.EscapeString(line))
			buf.WriteByte('\n')
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			r.closeBlock()
			continue
		}

		if reRule.MatchString(trimmed) {
			r.closeBlock()
			buf.WriteString("<hr/>")
			continue
		}
		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			r.closeBlock()
			tag := "h" + strconv.Itoa(len(m[1]))
			buf.WriteString("<" + tag + ">" + Inline(m[2]) + "</" + tag + ">")
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			r.enter("ul")
			buf.WriteString("<li>" + Inline(m[1]) + "</li>")
			continue
		}
		if m := reOrdered.FindStringSubmatch(trimmed); m != nil {
			r.enter("ol")
			buf.WriteString("<li>" + Inline(m[1]) + "</li>")
			continue
		}
		if m := reQuote.FindStringSubmatch(trimmed); m != nil {
			if !r.enter("blockquote") {
				buf.WriteString("<br/>")
			}
			buf.WriteString(Inline(m[1]))
			continue
		}

		if !r.enter("p") {
			buf.WriteByte('\n')
		}
		buf.WriteString(Inline(trimmed))
	}

	if r.inCode {
		buf.WriteString("</code></pre>")
	}
	r.closeBlock()
}

// Inline escapes s and applies inline formatting. Code spans are taken out
// first so that their content is never formatted.
func Inline(s string) string {
	var spans []string
	s = reInlineCode.ReplaceAllStringFunc(s, func(m string) string {
		spans = append(spans, "<code>"+html.EscapeString(m[1:len(m)-1])+"</code>")
		return "\x00" + strconv.Itoa(len(spans)-1) + "\x00"
	})

	s = html.EscapeString(s)
	s = reImage.ReplaceAllStringFunc(s, func(m string) string {
		sub := reImage.FindStringSubmatch(m)
		src := SafeURL(sub[2])
		if src == "" {
			return sub[1]
		}
		return `<img src="` + src + `" alt="` + sub[1] + `" loading="lazy"/>`
	})
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		sub := reLink.FindStringSubmatch(m)
		href := SafeURL(sub[2])
		if href == "" {
			return sub[1]
		}
		return `<a href="` + href + `" rel="noopener noreferrer">` + sub[1] + `</a>`
	})
	s = outsideTags(s, func(seg string) string {
		seg = reStrong.ReplaceAllString(seg, "<strong>$1$2</strong>")
		return reEmphasis.ReplaceAllString(seg, "<em>$1$2</em>")
	})

	for i, span := range spans {
		s = strings.Replace(s, "\x00"+strconv.Itoa(i)+"\x00", span, 1)
	}
	return s
}

// outsideTags applies fn to the text between HTML tags only, so attribute
// values such as URLs are left alone.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for s != "" {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL returns raw escaped for an HTML attribute when it is a local path,
// a fragment, or an http, https or mailto URL. Anything else yields "".
func SafeURL(raw string) string {
	v := strings.TrimSpace(html.UnescapeString(raw))
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "//") {
		return ""
	}
	if strings.HasPrefix(v, "/") || strings.HasPrefix(v, "#") {
		return html.EscapeString(v)
	}
	u, err := url.Parse(v)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(v)
	}
	return ""
}
