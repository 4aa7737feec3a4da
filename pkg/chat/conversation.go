// Package chat runs one conversation turn against a chat page: it submits
// the prompt and captures the reply that follows it.
package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/pagechat/pkg/browser"
	"github.com/odvcencio/pagechat/pkg/capture"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
	"github.com/odvcencio/pagechat/pkg/logging"
	"github.com/odvcencio/pagechat/pkg/telemetry"
)

const defaultPromptTimeout = 15 * time.Second

// setPromptScript writes text into a textarea or a contenteditable editor
// so the page's own input handlers observe the change.
const setPromptScript = `(el, text) => {
	el.focus();
	if (el.isContentEditable) {
		document.execCommand('selectAll', false, null);
		document.execCommand('insertText', false, text);
		return el.innerText.trim().length > 0;
	}
	const proto = Object.getPrototypeOf(el);
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) {
		desc.set.call(el, text);
	} else {
		el.value = text;
	}
	el.dispatchEvent(new Event('input', { bubbles: true }));
	return el.value.length > 0;
}`

// submitByEnterScript submits the prompt the way a user pressing Enter would.
const submitByEnterScript = `(el) => {
	const opts = { key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true };
	el.dispatchEvent(new KeyboardEvent('keydown', opts));
	el.dispatchEvent(new KeyboardEvent('keyup', opts));
	return true;
}`

// Options locates the prompt controls.
type Options struct {
	ReplyContainer string
	PromptInput    string
	// SendButton is clicked to submit; empty submits with Enter.
	SendButton    string
	PromptTimeout time.Duration
}

// Conversation sends prompts to one page and captures each reply. Only one
// turn may be outstanding at a time.
type Conversation struct {
	page   browser.Page
	poller *capture.Poller
	opts   Options
	hub    *telemetry.Hub
	log    *logging.Logger

	mu      sync.Mutex
	busy    bool
	aborted bool
	cancel  context.CancelFunc
}

// Option customizes a Conversation.
type Option func(*Conversation)

// WithHub publishes prompt events to hub.
func WithHub(hub *telemetry.Hub) Option {
	return func(c *Conversation) { c.hub = hub }
}

// WithLogger sets the conversation logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Conversation) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a conversation on page that captures replies with poller.
func New(page browser.Page, poller *capture.Poller, opts Options, options ...Option) *Conversation {
	if opts.PromptTimeout <= 0 {
		opts.PromptTimeout = defaultPromptTimeout
	}
	c := &Conversation{
		page:   page,
		poller: poller,
		opts:   opts,
		log:    logging.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Ask submits prompt and captures the reply into sink. It fails with
// TURN_IN_PROGRESS while another turn is outstanding, and with
// INVALID_INPUT or PAGE_UNAVAILABLE when the prompt could not be sent.
// Once the prompt is sent, errors follow capture.Poller.Run.
func (c *Conversation) Ask(ctx context.Context, prompt string, sink capture.Sink) (capture.TurnResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return capture.TurnResult{}, pcerrors.New(pcerrors.ErrCodeInvalidInput, "prompt is empty")
	}
	ctx, ok := c.acquire(ctx)
	if !ok {
		return capture.TurnResult{}, pcerrors.New(pcerrors.ErrCodeTurnInProgress, "a prompt is already awaiting its reply").
			WithUserMessage("Still waiting on the previous reply.")
	}
	defer c.release()

	ctx, span := telemetry.StartSpan(ctx, "chat.ask", trace.WithAttributes(
		telemetry.AttrPromptLength.Int(len(prompt)),
	))
	defer span.End()

	baseline, err := c.Baseline(ctx)
	if err != nil {
		err = c.abortedOr(err)
		telemetry.RecordError(ctx, err)
		return capture.TurnResult{}, err
	}
	span.SetAttributes(telemetry.AttrBaseline.Int(baseline))

	if err := c.submit(ctx, prompt); err != nil {
		err = c.abortedOr(err)
		telemetry.RecordError(ctx, err)
		return capture.TurnResult{}, err
	}
	c.hub.Publish(telemetry.Event{
		Type: telemetry.EventPromptSent,
		Data: map[string]any{"baseline": baseline, "length": len(prompt)},
	})
	c.log.Debug().Int("baseline", baseline).Int("length", len(prompt)).Msg("prompt sent")

	// An abort that lands before capture starts never reaches the poller.
	if err := c.abortedOr(nil); err != nil {
		telemetry.RecordError(ctx, err)
		c.log.Info().Msg("turn aborted before capture")
		return capture.TurnResult{}, err
	}
	return c.poller.Run(ctx, baseline, sink)
}

// Abort interrupts the turn in progress, if any. An abort issued while the
// prompt is still being sent cancels the send and Ask fails with
// TURN_ABORTED; it has no effect on a later turn.
func (c *Conversation) Abort() {
	c.mu.Lock()
	if c.busy {
		c.aborted = true
		c.cancel()
	}
	c.mu.Unlock()
	c.poller.Abort()
}

// Busy reports whether a turn is outstanding.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Baseline counts the replies already on the page.
func (c *Conversation) Baseline(ctx context.Context) (int, error) {
	els, err := c.page.Elements(ctx, c.opts.ReplyContainer)
	if err != nil {
		return 0, pcerrors.Wrap(err, pcerrors.ErrCodePageUnavailable, "counting replies").
			WithContext("selector", c.opts.ReplyContainer).
			WithUserMessage("Could not read the chat page.")
	}
	return len(els), nil
}

func (c *Conversation) submit(ctx context.Context, prompt string) error {
	input, err := c.page.WaitForSelector(ctx, c.opts.PromptInput, c.opts.PromptTimeout)
	if err != nil {
		return pcerrors.Wrap(err, pcerrors.ErrCodePageUnavailable, "waiting for prompt input").
			WithContext("selector", c.opts.PromptInput).
			WithUserMessage("The prompt box never appeared. Are you signed in?")
	}

	raw, err := c.page.Eval(ctx, setPromptScript, input, prompt)
	if err != nil {
		return pcerrors.Wrap(err, pcerrors.ErrCodePageUnavailable, "writing prompt")
	}
	var written bool
	if err := json.Unmarshal(raw, &written); err != nil || !written {
		return pcerrors.New(pcerrors.ErrCodePageUnavailable, "prompt input rejected the text").
			WithContext("selector", c.opts.PromptInput)
	}

	if c.opts.SendButton != "" {
		err := c.clickSend(ctx)
		if err == nil {
			return nil
		}
		c.log.Debug().Err(err).Msg("send button unavailable; pressing enter")
	}
	if _, err := c.page.Eval(ctx, submitByEnterScript, input); err != nil {
		return pcerrors.Wrap(err, pcerrors.ErrCodePageUnavailable, "submitting prompt")
	}
	return nil
}

func (c *Conversation) clickSend(ctx context.Context) error {
	button, err := c.page.WaitForSelector(ctx, c.opts.SendButton, c.opts.PromptTimeout)
	if err != nil {
		return err
	}
	return button.Click(ctx)
}

// acquire claims the conversation for one turn and returns the context
// Abort cancels.
func (c *Conversation) acquire(ctx context.Context) (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ctx, false
	}
	c.busy = true
	c.aborted = false
	ctx, c.cancel = context.WithCancel(ctx)
	return ctx, true
}

func (c *Conversation) release() {
	c.mu.Lock()
	c.cancel()
	c.cancel = nil
	c.busy = false
	c.aborted = false
	c.mu.Unlock()
}

// abortedOr returns TURN_ABORTED wrapping cause when Abort was called
// during this turn, and cause otherwise.
func (c *Conversation) abortedOr(cause error) error {
	c.mu.Lock()
	aborted := c.aborted
	c.mu.Unlock()
	switch {
	case !aborted:
		return cause
	case cause == nil:
		return pcerrors.New(pcerrors.ErrCodeTurnAborted, "turn aborted")
	default:
		return pcerrors.Wrap(cause, pcerrors.ErrCodeTurnAborted, "turn aborted")
	}
}
