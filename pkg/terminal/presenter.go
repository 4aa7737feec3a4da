package terminal

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/odvcencio/pagechat/pkg/capture"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
)

// PresenterOptions configures how a turn is shown.
type PresenterOptions struct {
	// ReplaceStream erases the streamed text before printing the final
	// Markdown. Only honoured on a terminal.
	ReplaceStream bool
	// Spinner animates while waiting for the first chunk.
	Spinner bool
	// Verbose prints which extraction strategy won.
	Verbose bool
}

// Presenter is the capture sink that draws a turn in the terminal.
type Presenter struct {
	w    *Writer
	opts PresenterOptions

	mu       sync.Mutex
	streamed strings.Builder
	spinner  *Spinner
}

var _ capture.Sink = (*Presenter)(nil)

// NewPresenter creates a presenter drawing to w.
func NewPresenter(w *Writer, opts PresenterOptions) *Presenter {
	return &Presenter{w: w, opts: opts}
}

// BeginTurn resets per-turn state and starts the waiting spinner.
func (p *Presenter) BeginTurn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streamed.Reset()
	if p.opts.Spinner && p.w.TTY() {
		p.spinner = NewSpinnerWithOutput(p.w.out, "waiting for reply")
		p.spinner.Start()
	}
}

func (p *Presenter) stopSpinner() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}

// OnChunk streams raw text as it arrives.
func (p *Presenter) OnChunk(chunk string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinner()
	p.streamed.WriteString(chunk)
	p.w.Stream(chunk)
}

// OnFinal replaces the streamed approximation with rendered Markdown.
func (p *Presenter) OnFinal(result capture.ExtractionResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinner()

	if streamed := p.streamed.String(); streamed != "" {
		if p.opts.ReplaceStream && p.w.TTY() {
			p.w.Erase(streamed)
		} else {
			p.w.StreamEnd()
			p.w.Divider()
		}
	}
	if result.Text != "" {
		if err := p.w.Markdown(result.Text); err != nil {
			p.w.Dim("(markdown rendering failed: %v)", err)
		}
	}
	if p.opts.Verbose {
		p.w.Dim("[%s, markdown=%t]", result.Source, result.LooksLikeMarkdown)
	}
}

// OnTurnComplete reports anything noteworthy about the finished turn.
func (p *Presenter) OnTurnComplete(result capture.TurnResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinner()

	if result.Err != nil {
		p.w.Warn("%s", Friendly(result.Err))
	}
	if result.CeilingReached {
		p.w.Dim("(stopped waiting after %s)", result.Elapsed.Round(time.Second))
	}
	p.streamed.Reset()
}

// Aborted closes out a turn that was interrupted.
func (p *Presenter) Aborted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSpinner()
	if p.streamed.Len() > 0 {
		p.w.StreamEnd()
	}
	p.w.Dim("(interrupted)")
	p.streamed.Reset()
}

// Friendly returns the user-facing message of a coded error.
func Friendly(err error) string {
	var coded *pcerrors.Error
	if errors.As(err, &coded) {
		return coded.Friendly()
	}
	return err.Error()
}
