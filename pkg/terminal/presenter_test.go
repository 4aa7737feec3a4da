package terminal

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/pagechat/pkg/capture"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
)

func TestPresenterStreamsThenRendersFinal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(newTestWriter(&buf, false), PresenterOptions{ReplaceStream: true, Spinner: true})

	p.BeginTurn()
	p.OnChunk("Hello")
	p.OnChunk(" world")
	p.OnFinal(capture.ExtractionResult{Text: "**Hello** world", Source: capture.SourceDomWalk})
	p.OnTurnComplete(capture.TurnResult{})

	got := buf.String()
	if !strings.HasPrefix(got, "Hello world\n") {
		t.Errorf("stream should be printed verbatim first, got %q", got)
	}
	if !strings.Contains(got, "─") {
		t.Errorf("a pipe gets a divider instead of an erase, got %q", got)
	}
	if strings.Contains(got, "\x1b[J") {
		t.Errorf("erase codes written to a pipe: %q", got)
	}
	if strings.Count(got, "Hello") != 2 {
		t.Errorf("final markdown should follow the stream, got %q", got)
	}
}

func TestPresenterErasesStreamOnTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(newTestWriter(&buf, true), PresenterOptions{ReplaceStream: true})

	p.BeginTurn()
	p.OnChunk("line one\nline two")
	p.OnFinal(capture.ExtractionResult{Text: "line one line two"})

	if got := buf.String(); !strings.Contains(got, "\r\x1b[1A\x1b[J") {
		t.Errorf("expected the two streamed rows to be erased, got %q", got)
	}
}

func TestPresenterVerboseShowsSource(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(newTestWriter(&buf, false), PresenterOptions{Verbose: true})

	p.OnFinal(capture.ExtractionResult{Text: "# hi", Source: capture.SourceCopyAction, LooksLikeMarkdown: true})
	if got := buf.String(); !strings.Contains(got, "[copy_action, markdown=true]") {
		t.Errorf("verbose output = %q", got)
	}
}

func TestPresenterReportsTurnProblems(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(newTestWriter(&buf, false), PresenterOptions{})

	p.OnTurnComplete(capture.TurnResult{
		Err: pcerrors.New(pcerrors.ErrCodeNoCandidate, "baseline never exceeded").
			WithUserMessage("No reply appeared."),
	})
	p.OnTurnComplete(capture.TurnResult{CeilingReached: true, Elapsed: 10 * time.Minute})

	got := buf.String()
	if !strings.Contains(got, "warning: No reply appeared.") {
		t.Errorf("missing friendly warning: %q", got)
	}
	if !strings.Contains(got, "stopped waiting after 10m0s") {
		t.Errorf("missing ceiling note: %q", got)
	}
}

func TestPresenterAborted(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(newTestWriter(&buf, false), PresenterOptions{})

	p.OnChunk("partial")
	p.Aborted()
	if got := buf.String(); got != "partial\n(interrupted)\n" {
		t.Errorf("aborted output = %q", got)
	}
}

func TestFriendly(t *testing.T) {
	if got := Friendly(errors.New("plain")); got != "plain" {
		t.Errorf("Friendly(plain) = %q", got)
	}
	coded := pcerrors.New(pcerrors.ErrCodeExtractEmpty, "empty").WithUserMessage("Nothing to show.")
	if got := Friendly(coded); got != "Nothing to show." {
		t.Errorf("Friendly(coded) = %q", got)
	}
}
