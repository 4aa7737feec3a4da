package markdown

import "strings"

// tableBlock accumulates the raw lines of one pipe table. pipes is the
// unescaped pipe count of the header row; body rows with fewer pipes are
// treated as soft-wrapped and merged with the following line.
type tableBlock struct {
	pipes int
	rows  []string
}

func (t *tableBlock) accept(line string) bool {
	if isBlank(line) || fenceRun(line) > 0 {
		return false
	}
	if IsTableSeparator(line) {
		t.rows = append(t.rows, line)
		return true
	}

	last := len(t.rows) - 1
	lastIsData := last >= 1 && !IsTableSeparator(t.rows[last])

	switch {
	case countPipes(line) >= t.pipes:
		t.rows = append(t.rows, line)
	case lastIsData && countPipes(t.rows[last]) < t.pipes:
		t.join(line)
	case strings.HasPrefix(strings.TrimSpace(line), "|"):
		t.rows = append(t.rows, line)
	case lastIsData:
		t.join(line)
	default:
		t.rows = append(t.rows, line)
	}
	return true
}

func (t *tableBlock) join(line string) {
	last := len(t.rows) - 1
	t.rows[last] = strings.TrimRight(t.rows[last], " \t") + " " + strings.TrimSpace(line)
}

// render pads every row to the widest column count and rebuilds the rows
// with a uniform "| a | b |" layout.
func (t *tableBlock) render() []string {
	cells := make([][]string, len(t.rows))
	width := 0
	for i, row := range t.rows {
		cells[i] = SplitCells(row)
		if len(cells[i]) > width {
			width = len(cells[i])
		}
	}

	out := make([]string, 0, len(t.rows))
	for i, row := range cells {
		sep := IsTableSeparator(t.rows[i])
		for len(row) < width {
			if sep {
				row = append(row, "---")
			} else {
				row = append(row, "")
			}
		}
		if sep {
			for j := range row {
				if row[j] == "" {
					row[j] = "---"
				}
			}
		}
		out = append(out, FormatRow(row))
	}
	return out
}

// FormatRow renders cells as a single pipe-table row.
func FormatRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

// SplitCells splits a pipe-table row on unescaped pipes, dropping the
// optional border pipes and trimming each cell.
func SplitCells(row string) []string {
	row = strings.TrimSpace(row)
	var (
		cells   []string
		current strings.Builder
		escaped bool
		endPipe bool
	)
	for i := 0; i < len(row); i++ {
		c := row[i]
		endPipe = false
		switch {
		case escaped:
			escaped = false
			current.WriteByte(c)
		case c == '\\':
			escaped = true
			current.WriteByte(c)
		case c == '|':
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
			endPipe = true
		default:
			current.WriteByte(c)
		}
	}
	if !endPipe {
		cells = append(cells, strings.TrimSpace(current.String()))
	}
	if strings.HasPrefix(row, "|") && len(cells) > 0 {
		cells = cells[1:]
	}
	return cells
}

// EscapeCell collapses whitespace and escapes pipes so text can sit in a
// single table cell.
func EscapeCell(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	var b strings.Builder
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '|' && !escaped {
			b.WriteString(`\|`)
			continue
		}
		escaped = c == '\\' && !escaped
		b.WriteByte(c)
	}
	return b.String()
}
