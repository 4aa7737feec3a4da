package terminal

import (
	"bytes"
	"strings"
	"testing"
)

func newTestWriter(buf *bytes.Buffer, tty bool) *Writer {
	return NewWithOutput(buf, Options{Style: "notty", WordWrap: 80, TTY: &tty})
}

func TestWriterPrintln(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, false)

	w.Println("Hello %s", "World")
	if got := buf.String(); got != "Hello World\n" {
		t.Errorf("Println = %q, want 'Hello World\\n'", got)
	}
}

func TestWriterError(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, false)

	w.Error("something went wrong")
	got := buf.String()
	if !strings.Contains(got, "error: something went wrong") {
		t.Errorf("Error output = %q", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("non-terminal output should carry no escape codes, got %q", got)
	}
}

func TestWriterWarn(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, false)

	w.Warn("be careful")
	if got := buf.String(); !strings.Contains(got, "warning: be careful") {
		t.Errorf("Warn output = %q", got)
	}
}

func TestWriterMarkdown(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, false)

	if err := w.Markdown("# Title\n\n- one\n- two"); err != nil {
		t.Fatalf("Markdown returned error: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"Title", "one", "two"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered markdown missing %q: %q", want, got)
		}
	}
}

func TestWriterStream(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, false)

	w.Stream("Hel")
	w.Stream("lo")
	w.StreamEnd()
	if got := buf.String(); got != "Hello\n" {
		t.Errorf("stream = %q, want 'Hello\\n'", got)
	}
}

func TestWriterEraseOnlyOnTerminal(t *testing.T) {
	var buf bytes.Buffer
	w := newTestWriter(&buf, false)
	w.Erase("line one\nline two")
	if buf.Len() != 0 {
		t.Errorf("Erase on a pipe wrote %q", buf.String())
	}

	buf.Reset()
	w = newTestWriter(&buf, true)
	w.Erase("line one\nline two\nline three")
	if got := buf.String(); got != "\r\x1b[2A\x1b[J" {
		t.Errorf("Erase = %q", got)
	}

	buf.Reset()
	w.Erase("single")
	if got := buf.String(); got != "\r\x1b[J" {
		t.Errorf("Erase single row = %q", got)
	}
}

func TestDisplayRows(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  int
	}{
		{"", 80, 1},
		{"short", 80, 1},
		{"a\nb\n", 80, 3},
		{strings.Repeat("x", 81), 80, 2},
		{strings.Repeat("x", 160), 80, 2},
		{strings.Repeat("世", 41), 80, 2},
		{"abc", 0, 1},
	}
	for _, tt := range tests {
		if got := DisplayRows(tt.text, tt.width); got != tt.want {
			t.Errorf("DisplayRows(%q, %d) = %d, want %d", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestWriterWidthDefaultsForBuffers(t *testing.T) {
	var buf bytes.Buffer
	if got := newTestWriter(&buf, true).Width(); got != 80 {
		t.Errorf("Width = %d, want 80", got)
	}
}
