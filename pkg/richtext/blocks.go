package richtext

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/odvcencio/pagechat/pkg/markdown"
)

func (s *state) heading(n *html.Node, depth, level int) {
	if s.inline {
		s.children(n, depth)
		return
	}
	body := s.fragment(n, depth)
	if body == "" {
		return
	}
	s.boundary(1)
	s.raw(strings.Repeat("#", level) + " " + body)
	s.boundary(1)
}

func (s *state) rule() {
	if s.inline {
		return
	}
	s.boundary(1)
	s.raw("---")
	s.boundary(1)
}

func (s *state) list(n *html.Node, depth int, ordered bool) {
	if s.inline {
		s.children(n, depth)
		return
	}
	start := 1
	if ordered {
		if v, err := strconv.Atoi(strings.TrimSpace(attr(n, "start"))); err == nil {
			start = v
		}
	}

	nested := len(s.lists) > 0
	if !nested {
		s.ensureBlankLines(1)
	}
	s.lists = append(s.lists, listContext{ordered: ordered, next: start})
	s.children(n, depth)
	s.lists = s.lists[:len(s.lists)-1]

	if nested {
		s.fresh = false
		s.ensureNewline()
		return
	}
	s.ensureBlankLines(1)
}

func (s *state) listItem(n *html.Node, depth int) {
	if s.inline {
		s.children(n, depth)
		s.pending = s.buf.Len() > 0
		return
	}
	if len(s.lists) == 0 {
		s.lists = append(s.lists, listContext{next: 1})
		defer func() { s.lists = s.lists[:len(s.lists)-1] }()
	}

	top := len(s.lists) - 1
	marker := "-"
	if s.lists[top].ordered {
		marker = strconv.Itoa(s.lists[top].next) + "."
		s.lists[top].next++
	}
	indent := strings.Repeat("  ", top)

	s.ensureNewline()
	s.buf.WriteString(indent + marker + " ")

	prevIndent := s.indent
	s.indent = indent + strings.Repeat(" ", len(marker)+1)
	s.fresh = true
	s.children(n, depth)
	s.indent = prevIndent
	s.fresh = false
}

func (s *state) quote(n *html.Node, depth int) {
	if s.inline {
		s.children(n, depth)
		return
	}
	sub := &state{w: s.w}
	sub.children(n, depth)
	body := strings.TrimSpace(sub.buf.String())
	if body == "" {
		return
	}

	s.boundary(1)
	for i, line := range strings.Split(body, "\n") {
		if i > 0 {
			s.newline()
		}
		if strings.TrimSpace(line) == "" {
			s.raw(">")
			continue
		}
		s.raw("> " + line)
	}
	s.boundary(1)
}

func (s *state) codeBlock(n *html.Node) {
	code, lang := s.w.extractCode(n)
	if s.inline {
		s.inlineCode(code)
		return
	}

	run := longestRun(code, '`') + 1
	if run < 3 {
		run = 3
	}
	fence := strings.Repeat("`", run)

	s.boundary(1)
	s.raw(fence + lang)
	if code != "" {
		for _, line := range strings.Split(code, "\n") {
			s.newline()
			s.raw(line)
		}
	}
	s.newline()
	s.raw(fence)
	s.boundary(1)
}

// extractCode returns the verbatim text of the innermost code-bearing
// element of a code container and the language token, if any.
func (w *Walker) extractCode(n *html.Node) (string, string) {
	sel := goquery.NewDocumentFromNode(n).Selection

	var label *html.Node
	if w.opts.CodeLabelSelector != "" {
		if found := sel.Find(w.opts.CodeLabelSelector).First(); found.Length() > 0 {
			label = found.Get(0)
		}
	}

	body := n
	if code := sel.Find("code").First(); code.Length() > 0 {
		body = code.Get(0)
	} else if pre := sel.Find("pre").First(); pre.Length() > 0 {
		body = pre.Get(0)
	}

	code := strings.TrimSuffix(codeText(body, label), "\n")

	lang := ""
	if label != nil {
		lang = languageFromLabel(textContent(label))
	}
	if lang == "" {
		lang = languageFromClass(attr(body, "class"))
	}
	if lang == "" {
		lang = languageFromClass(attr(n, "class"))
	}
	if lang == "" {
		lang = languageFromLabel(attr(n, "data-language"))
	}
	return code, lang
}

func (s *state) table(n *html.Node, depth int) {
	if s.inline {
		s.children(n, depth)
		return
	}

	rows := goquery.NewDocumentFromNode(n).Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").Get(0) == n
	})
	if rows.Length() == 0 {
		return
	}

	var header []string
	var body [][]string
	headerTaken := false
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := s.rowCells(row, depth)
		if !headerTaken && row.Parent().Is("thead") {
			header = cells
			headerTaken = true
			return
		}
		body = append(body, cells)
	})
	if !headerTaken {
		header, body = body[0], body[1:]
	}

	width := len(header)
	for _, cells := range body {
		if len(cells) > width {
			width = len(cells)
		}
	}
	if width == 0 {
		return
	}

	separator := make([]string, width)
	for i := range separator {
		separator[i] = "---"
	}

	s.boundary(1)
	s.raw(markdown.FormatRow(padCells(header, width)))
	s.newline()
	s.raw(markdown.FormatRow(separator))
	for _, cells := range body {
		s.newline()
		s.raw(markdown.FormatRow(padCells(cells, width)))
	}
	s.boundary(1)
}

func (s *state) rowCells(row *goquery.Selection, depth int) []string {
	var cells []string
	row.Children().Filter("th, td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, markdown.EscapeCell(s.fragment(cell.Get(0), depth)))
	})
	return cells
}

func padCells(cells []string, width int) []string {
	out := make([]string, width)
	copy(out, cells)
	return out
}
