// Package markdown repairs and inspects Markdown captured from a rendered
// chat reply: it reflows hard-wrapped paragraphs, rebuilds pipe tables, and
// leaves fenced code untouched.
package markdown

import (
	"regexp"
	"strings"
)

var (
	headingRe   = regexp.MustCompile(`^\s{0,3}#{1,6}(\s|$)`)
	quoteRe     = regexp.MustCompile(`^\s*>`)
	bulletRe    = regexp.MustCompile(`^\s*[-*+](\s|$)`)
	numberedRe  = regexp.MustCompile(`^\s*\d{1,9}[.)](\s|$)`)
	ruleRe      = regexp.MustCompile(`^\s{0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	glyphRe     = regexp.MustCompile(`^\s*[•◦▪‣·]\s`)
	separatorRe = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
)

// Normalize reflows soft-wrapped paragraph lines, merges wrapped table
// rows and pads tables to a rectangular shape. Lines inside fenced code
// pass through byte-for-byte. Normalize is idempotent: a join can leave a
// pipe row directly above a separator, so passes repeat until the text
// stops changing.
func Normalize(text string) string {
	out := normalizePass(text)
	for limit := 2 * (strings.Count(out, "\n") + 1); limit > 0; limit-- {
		next := normalizePass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizePass(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	n := &normalizer{out: make([]string, 0, len(lines))}
	for i, line := range lines {
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		n.feed(line, next)
	}
	n.flushTable()
	return strings.Trim(strings.Join(n.out, "\n"), "\n")
}

type normalizer struct {
	out      []string
	joinable bool
	fence    int
	table    *tableBlock
}

func (n *normalizer) feed(line, next string) {
	if n.fence > 0 {
		n.out = append(n.out, line)
		if closesFence(line, n.fence) {
			n.fence = 0
		}
		return
	}

	if n.table != nil {
		if n.table.accept(line) {
			return
		}
		n.flushTable()
	}

	if run := fenceRun(line); run > 0 {
		n.out = append(n.out, line)
		n.fence = run
		n.joinable = false
		return
	}

	if isBlank(line) {
		n.out = append(n.out, "")
		n.joinable = false
		return
	}

	if startsTable(line, next) {
		n.table = &tableBlock{pipes: countPipes(line), rows: []string{line}}
		n.joinable = false
		return
	}

	if IsTableSeparator(line) {
		n.separator(line)
		return
	}

	if IsBlockStart(line) {
		n.out = append(n.out, line)
		n.joinable = false
		return
	}

	if n.joinable && len(n.out) > 0 {
		last := len(n.out) - 1
		n.out[last] = strings.TrimRight(n.out[last], " \t") + " " + strings.TrimLeft(line, " \t")
		n.joinable = !hasHardBreak(n.out[last])
		return
	}

	n.out = append(n.out, line)
	n.joinable = !hasHardBreak(line)
}

// separator handles a delimiter row outside a table. When the previous
// output line can head a table it becomes one; otherwise the row stands
// alone and is never joined.
func (n *normalizer) separator(line string) {
	n.joinable = false
	if last := len(n.out) - 1; last >= 0 {
		head := n.out[last]
		if countPipes(head) >= 2 && !IsTableSeparator(head) {
			n.out = n.out[:last]
			n.table = &tableBlock{pipes: countPipes(head), rows: []string{head, line}}
			return
		}
	}
	n.out = append(n.out, line)
}

func (n *normalizer) flushTable() {
	if n.table == nil {
		return
	}
	n.out = append(n.out, n.table.render()...)
	n.table = nil
	n.joinable = false
}

// IsBlockStart reports whether line opens a Markdown block (heading, quote,
// bullet, numbered item, rule or bullet glyph) and must never be joined
// onto the line above it.
func IsBlockStart(line string) bool {
	return headingRe.MatchString(line) ||
		quoteRe.MatchString(line) ||
		ruleRe.MatchString(line) ||
		bulletRe.MatchString(line) ||
		numberedRe.MatchString(line) ||
		glyphRe.MatchString(line)
}

// IsTableSeparator reports whether line is a pipe-table delimiter row.
func IsTableSeparator(line string) bool {
	return strings.Contains(line, "|") && strings.Contains(line, "-") && separatorRe.MatchString(line)
}

func startsTable(line, next string) bool {
	return countPipes(line) >= 2 && !IsTableSeparator(line) && IsTableSeparator(next)
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func hasHardBreak(line string) bool {
	return strings.HasSuffix(line, "  ")
}

// fenceRun returns the length of the backtick run opening a fence on line,
// or zero when line does not open one.
func fenceRun(line string) int {
	trimmed := strings.TrimLeft(line, " \t")
	run := leadingRun(trimmed, '`')
	if run < 3 {
		return 0
	}
	return run
}

func closesFence(line string, open int) bool {
	trimmed := strings.TrimSpace(line)
	run := leadingRun(trimmed, '`')
	return run >= open && run == len(trimmed)
}

func leadingRun(s string, ch byte) int {
	i := 0
	for i < len(s) && s[i] == ch {
		i++
	}
	return i
}

// countPipes counts pipe characters not escaped by a backslash.
func countPipes(line string) int {
	count := 0
	escaped := false
	for i := 0; i < len(line); i++ {
		switch {
		case escaped:
			escaped = false
		case line[i] == '\\':
			escaped = true
		case line[i] == '|':
			count++
		}
	}
	return count
}
