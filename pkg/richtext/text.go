package richtext

import (
	"strings"
	"unicode"

	"github.com/alecthomas/chroma/v2/lexers"
	"golang.org/x/net/html"
)

// textContent concatenates the text of n and its descendants, skipping
// elements that never carry reply text.
func textContent(n *html.Node) string {
	var b strings.Builder
	collectText(&b, n, nil)
	return b.String()
}

// codeText is textContent that also honours <br> and leaves out the
// language label subtree.
func codeText(n, exclude *html.Node) string {
	var b strings.Builder
	collectText(&b, n, exclude)
	return b.String()
}

func collectText(b *strings.Builder, n, exclude *html.Node) {
	if n == nil || n == exclude {
		return
	}
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skipElement(tag) {
			return
		}
		if tag == "br" {
			b.WriteByte('\n')
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, exclude)
	}
}

// collapseSpace folds every run of HTML whitespace into a single space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRightFunc(s, unicode.IsSpace) != s
}

func longestRun(s string, ch rune) int {
	best, cur := 0, 0
	for _, r := range s {
		if r == ch {
			cur++
			if cur > best {
				best = cur
			}
			continue
		}
		cur = 0
	}
	return best
}

func attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// languageFromLabel picks the language token out of a decoration label
// such as "Python  Copy code". The first word chroma knows wins; otherwise
// the first word is used as-is.
func languageFromLabel(label string) string {
	fields := strings.Fields(strings.ToLower(label))
	for _, f := range fields {
		if lexers.Get(f) != nil {
			return f
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func languageFromClass(class string) string {
	for _, c := range strings.Fields(class) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang, ok := strings.CutPrefix(c, prefix); ok && lang != "" {
				return strings.ToLower(lang)
			}
		}
	}
	return ""
}
