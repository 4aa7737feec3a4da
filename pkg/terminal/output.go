// Package terminal prints captured replies: the raw stream as it arrives,
// then the final Markdown rendered with glamour. No TUI framework, just
// print, stream and erase.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const defaultWidth = 80

// Options configures a Writer.
type Options struct {
	// Style is auto, dark, light or notty.
	Style string
	// WordWrap is the Markdown wrap column; zero disables wrapping.
	WordWrap int
	// TTY forces terminal behavior on or off. Nil detects it from Out.
	TTY *bool
}

// Writer provides styled terminal output with markdown rendering.
type Writer struct {
	out      io.Writer
	renderer *glamour.TermRenderer
	tty      bool
	mu       sync.Mutex

	errorStyle  lipgloss.Style
	warnStyle   lipgloss.Style
	infoStyle   lipgloss.Style
	dimStyle    lipgloss.Style
	promptStyle lipgloss.Style
}

// New creates a new terminal Writer on stdout.
func New(opts Options) *Writer {
	return NewWithOutput(os.Stdout, opts)
}

// NewWithOutput creates a terminal Writer with a custom output destination.
func NewWithOutput(out io.Writer, opts Options) *Writer {
	tty := isTerminal(out)
	if opts.TTY != nil {
		tty = *opts.TTY
	}

	style := opts.Style
	if !tty || style == "" {
		if tty {
			style = "auto"
		} else {
			style = "notty"
		}
	}
	renderOpts := []glamour.TermRendererOption{glamour.WithWordWrap(opts.WordWrap)}
	if style == "auto" {
		renderOpts = append(renderOpts, glamour.WithAutoStyle())
	} else {
		renderOpts = append(renderOpts, glamour.WithStandardStyle(style))
	}
	renderer, _ := glamour.NewTermRenderer(renderOpts...)

	lr := lipgloss.NewRenderer(out)
	if !tty {
		lr.SetColorProfile(termenv.Ascii)
	}

	return &Writer{
		out:      out,
		renderer: renderer,
		tty:      tty,

		errorStyle: lr.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
			Bold(true),
		warnStyle: lr.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFAA00"}),
		infoStyle: lr.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}),
		dimStyle: lr.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		promptStyle: lr.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}).
			Bold(true),
	}
}

// TTY reports whether the writer targets an interactive terminal.
func (w *Writer) TTY() bool {
	return w.tty
}

// Width returns the terminal width, defaulting to 80.
func (w *Writer) Width() int {
	f, ok := w.out.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Println writes text with a newline.
func (w *Writer) Println(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Markdown renders markdown to the terminal with syntax highlighting.
func (w *Writer) Markdown(md string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.renderer == nil {
		fmt.Fprintln(w.out, md)
		return nil
	}

	rendered, err := w.renderer.Render(md)
	if err != nil {
		fmt.Fprintln(w.out, md)
		return err
	}

	fmt.Fprint(w.out, rendered)
	return nil
}

// Error prints an error message in red.
func (w *Writer) Error(format string, args ...any) {
	w.styled(w.errorStyle, "error: "+format, args...)
}

// Warn prints a warning message in yellow.
func (w *Writer) Warn(format string, args ...any) {
	w.styled(w.warnStyle, "warning: "+format, args...)
}

// Info prints an info message in blue.
func (w *Writer) Info(format string, args ...any) {
	w.styled(w.infoStyle, format, args...)
}

// Dim prints dimmed/secondary text.
func (w *Writer) Dim(format string, args ...any) {
	w.styled(w.dimStyle, format, args...)
}

func (w *Writer) styled(style lipgloss.Style, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, style.Render(fmt.Sprintf(format, args...)))
}

// Prompt prints the input prompt without a newline.
func (w *Writer) Prompt(label string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprint(w.out, w.promptStyle.Render(label)+" ")
}

// Divider prints a horizontal divider.
func (w *Writer) Divider() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, w.dimStyle.Render(strings.Repeat("─", min(w.Width(), 60))))
}

// Stream writes a chunk of a streaming reply.
func (w *Writer) Stream(chunk string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprint(w.out, chunk)
}

// StreamEnd finalizes streaming output with a newline.
func (w *Writer) StreamEnd() {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out)
}

// Erase moves the cursor to the start of the rows occupied by text, which
// must have been written from column zero, and clears to the end of the
// screen. It does nothing when the writer is not a terminal.
func (w *Writer) Erase(text string) {
	if !w.tty || text == "" {
		return
	}
	rows := DisplayRows(text, w.Width())
	w.mu.Lock()
	defer w.mu.Unlock()
	if rows > 1 {
		fmt.Fprintf(w.out, "\r\x1b[%dA\x1b[J", rows-1)
		return
	}
	fmt.Fprint(w.out, "\r\x1b[J")
}

// DisplayRows counts the terminal rows text occupies at width columns,
// accounting for wide characters and soft wrapping.
func DisplayRows(text string, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		cols := runewidth.StringWidth(line)
		if cols == 0 {
			rows++
			continue
		}
		rows += (cols + width - 1) / width
	}
	return rows
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
