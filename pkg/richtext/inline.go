package richtext

import (
	"strings"

	"golang.org/x/net/html"
)

// fragment renders the children of n as a single inline line.
func (s *state) fragment(n *html.Node, depth int) string {
	sub := &state{w: s.w, inline: true}
	sub.children(n, depth)
	return strings.TrimSpace(sub.buf.String())
}

// emitInline renders n as an inline fragment and writes wrap(fragment),
// keeping the whitespace that surrounded the element in the source.
func (s *state) emitInline(n *html.Node, depth int, wrap func(string) string) {
	source := textContent(n)
	out := wrap(s.fragment(n, depth))
	if out == "" {
		if source != "" && strings.TrimSpace(source) == "" {
			s.text(" ")
		}
		return
	}
	if startsWithSpace(source) {
		s.text(" ")
	}
	s.raw(out)
	if endsWithSpace(source) {
		s.text(" ")
	}
}

func wrapWith(marker string) func(string) string {
	return func(body string) string {
		if body == "" {
			return ""
		}
		return marker + body + marker
	}
}

func linkTo(href string) func(string) string {
	href = strings.TrimSpace(href)
	return func(body string) string {
		switch {
		case href == "":
			return body
		case body == "":
			return "[" + href + "](" + href + ")"
		default:
			return "[" + body + "](" + href + ")"
		}
	}
}

// inlineCode writes text as a code span whose backtick run is longer than
// any run inside it.
func (s *state) inlineCode(text string) {
	text = strings.ReplaceAll(text, "\n", " ")
	if strings.TrimSpace(text) == "" {
		return
	}
	fence := strings.Repeat("`", longestRun(text, '`')+1)
	pad := ""
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
		pad = " "
	}
	s.raw(fence + pad + text + pad + fence)
}
