package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/odvcencio/pagechat/pkg/capture"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
	"github.com/odvcencio/pagechat/pkg/terminal"
)

const maxPromptLine = 1 << 20

// session runs prompts against one conversation and renders the replies.
type session struct {
	conv       asker
	writer     *terminal.Writer
	presenter  *terminal.Presenter
	interrupts *interruptHandler
}

func newSession(conv asker, writer *terminal.Writer, opts terminal.PresenterOptions, quit func()) *session {
	return &session{
		conv:       conv,
		writer:     writer,
		presenter:  terminal.NewPresenter(writer, opts),
		interrupts: newInterruptHandler(conv.Busy, conv.Abort, quit),
	}
}

func (s *session) ask(ctx context.Context, prompt string) (capture.TurnResult, error) {
	defer s.interrupts.reset()

	s.presenter.BeginTurn()
	res, err := s.conv.Ask(ctx, prompt, s.presenter)
	switch {
	case pcerrors.IsCode(err, pcerrors.ErrCodeTurnAborted):
		s.presenter.Aborted()
	case err != nil:
		s.presenter.OnTurnComplete(capture.TurnResult{Err: err})
	}
	return res, err
}

// askOnce answers a single prompt. Problems were already shown to the
// user, so the returned error only carries the exit code.
func (s *session) askOnce(ctx context.Context, prompt string) error {
	res, err := s.ask(ctx, prompt)
	if err != nil {
		return exitError{code: exitCodeForError(err)}
	}
	if res.Err != nil {
		return exitError{code: exitCodeForError(res.Err)}
	}
	return nil
}

func (s *session) repl(ctx context.Context, in io.Reader) error {
	prompts := readPrompts(in)
	for {
		s.writer.Prompt("you>")
		select {
		case <-ctx.Done():
			s.writer.StreamEnd()
			return exitError{code: exitInterrupted}
		case prompt, ok := <-prompts:
			if !ok {
				s.writer.StreamEnd()
				return nil
			}
			switch strings.TrimSpace(prompt) {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/help":
				s.writer.Info("End a line with \\ to continue it. Ctrl-C stops waiting on a reply.")
				continue
			}
			if _, err := s.ask(ctx, prompt); err != nil && ctx.Err() != nil {
				return exitError{code: exitInterrupted}
			}
		}
	}
}

// readPrompts emits one prompt per input line. A line ending in a backslash
// continues onto the next line. The channel closes at end of input.
func readPrompts(in io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxPromptLine)

		var pending []string
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if strings.HasSuffix(line, `\`) {
				pending = append(pending, strings.TrimSuffix(line, `\`))
				continue
			}
			pending = append(pending, line)
			out <- strings.Join(pending, "\n")
			pending = pending[:0]
		}
		if len(pending) > 0 {
			out <- strings.Join(pending, "\n")
		}
	}()
	return out
}

// interruptHandler maps Ctrl-C onto the session: the first one during a
// turn abandons the wait, anything else quits.
type interruptHandler struct {
	busy  func() bool
	abort func()
	quit  func()

	mu      sync.Mutex
	aborted bool
}

func newInterruptHandler(busy func() bool, abort, quit func()) *interruptHandler {
	return &interruptHandler{busy: busy, abort: abort, quit: quit}
}

func (h *interruptHandler) interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy() && !h.aborted {
		h.aborted = true
		h.abort()
		return
	}
	h.quit()
}

func (h *interruptHandler) reset() {
	h.mu.Lock()
	h.aborted = false
	h.mu.Unlock()
}

func watchSignals(h *interruptHandler) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigs:
				if sig == syscall.SIGTERM {
					h.quit()
					continue
				}
				h.interrupt()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
