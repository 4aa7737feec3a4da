package richtext

import "strings"

func (s *state) atLineStart() bool {
	n := s.buf.Len()
	return n == 0 || s.buf.String()[n-1] == '\n'
}

func (s *state) endsWithSpace() bool {
	out := s.buf.String()
	return len(out) > 0 && out[len(out)-1] == ' '
}

// raw writes t verbatim, first emitting the list continuation indent at a
// line start or a deferred inter-word space mid-line.
func (s *state) raw(t string) {
	if t == "" {
		return
	}
	if s.atLineStart() {
		s.buf.WriteString(s.indent)
	} else if s.pending && !s.endsWithSpace() {
		s.buf.WriteByte(' ')
	}
	s.pending = false
	s.fresh = false
	s.buf.WriteString(t)
}

// text writes collapsed HTML text. Whitespace at either edge becomes a
// deferred space so that it never lands at a line start or end.
func (s *state) text(t string) {
	collapsed := collapseSpace(t)
	if collapsed == "" {
		return
	}
	core := strings.TrimSpace(collapsed)
	if collapsed[0] == ' ' && !s.atLineStart() {
		s.pending = true
	}
	if core != "" {
		s.raw(core)
	}
	if collapsed[len(collapsed)-1] == ' ' && !s.atLineStart() {
		s.pending = true
	}
}

func (s *state) newline() {
	s.pending = false
	s.buf.WriteByte('\n')
}

func (s *state) ensureNewline() {
	s.pending = false
	if !s.atLineStart() {
		s.buf.WriteByte('\n')
	}
}

// ensureBlankLines makes the buffer end with exactly n blank lines unless
// it already ends with more. An empty buffer is left alone.
func (s *state) ensureBlankLines(n int) {
	s.pending = false
	out := s.buf.String()
	if out == "" {
		return
	}
	have := len(out) - len(strings.TrimRight(out, "\n"))
	for ; have < n+1; have++ {
		s.buf.WriteByte('\n')
	}
}

// boundary separates block-level constructs. Inside list items blocks are
// only split by a newline; in inline fragments they collapse to a space.
func (s *state) boundary(n int) {
	switch {
	case s.inline:
		if s.buf.Len() > 0 {
			s.pending = true
		}
	case len(s.lists) > 0:
		if !s.fresh {
			s.ensureNewline()
		}
	default:
		s.ensureBlankLines(n)
	}
}

func (s *state) lineBreak() {
	if s.inline {
		s.pending = s.buf.Len() > 0
		return
	}
	if s.atLineStart() {
		return
	}
	s.pending = false
	s.buf.WriteString("  \n")
}
