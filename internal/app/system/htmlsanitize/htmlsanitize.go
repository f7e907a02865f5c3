// Package htmlsanitize cleans user-supplied text before it is stored or
// rendered. Ticket descriptions, comments and supplier notes pass through here.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
	strict     *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("p", "br", "strong", "b", "em", "i", "u", "ul", "ol", "li", "blockquote", "code", "pre")
		p.AllowStandardURLs()
		p.AllowAttrs("href").OnElements("a")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		policy = p
		strict = bluemonday.StrictPolicy()
	})
	return policy, strict
}

// Sanitize keeps basic formatting and links and drops everything else.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	p, _ := policies()
	return strings.TrimSpace(p.Sanitize(s))
}

// StripTags removes all markup, leaving text only.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	_, p := policies()
	return html.UnescapeString(strings.TrimSpace(p.Sanitize(s)))
}

// IsPlainText reports whether s looks like it has no markup.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}

// PlainTextToHTML escapes s and turns newlines into <br>.
func PlainTextToHTML(s string) template.HTML {
	if s == "" {
		return ""
	}
	esc := template.HTMLEscapeString(s)
	esc = strings.ReplaceAll(esc, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(esc, "\n", "<br>"))
}

// PrepareForDisplay renders stored text as HTML: plain text keeps its line
// breaks, markup goes through Sanitize again.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return template.HTML(Sanitize(s))
}
