package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/odvcencio/pagechat/pkg/browser"
)

// Page adapts a rod page to browser.Page.
type Page struct {
	page *rod.Page
	cfg  Config
}

var _ browser.Page = (*Page)(nil)

func (p *Page) scoped(ctx context.Context) (*rod.Page, context.CancelFunc) {
	ctx, cancel := withOperationTimeout(ctx, p.cfg.OperationTimeout)
	return p.page.Context(ctx), cancel
}

// Elements returns every element matching selector.
func (p *Page) Elements(ctx context.Context, selector string) ([]browser.Element, error) {
	pg, cancel := p.scoped(ctx)
	defer cancel()
	els, err := pg.Elements(selector)
	if err != nil {
		return nil, browser.WrapPageError("elements", selector, translate(err))
	}
	return p.wrap(els), nil
}

// WaitForSelector waits up to timeout for selector to match.
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	ctx, cancel := withOperationTimeout(ctx, timeout)
	defer cancel()
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, browser.WrapPageError("wait_for_selector", selector, translate(err))
	}
	return &Element{el: el, cfg: p.cfg}, nil
}

// Eval runs script, a JavaScript function expression, with args. Element
// arguments are passed by remote object reference.
func (p *Page) Eval(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	pg, cancel := p.scoped(ctx)
	defer cancel()
	res, err := pg.Eval(script, remoteArgs(args)...)
	if err != nil {
		return nil, browser.WrapPageError("eval", "", translate(err))
	}
	return json.RawMessage(res.Value.JSON("", "")), nil
}

// InterceptCopy installs the clipboard shim, clicks trigger and waits for
// the page to write to the clipboard.
func (p *Page) InterceptCopy(ctx context.Context, trigger browser.Element, wait time.Duration) (string, error) {
	el, ok := trigger.(*Element)
	if !ok || el == nil {
		return "", browser.WrapPageError("intercept_copy", "", errors.New("trigger is not a cdp element"))
	}

	pg, cancel := p.scoped(ctx)
	defer cancel()
	if _, err := pg.Eval(clipboardShim); err != nil {
		return "", browser.WrapPageError("install_clipboard_shim", "", translate(err))
	}
	if err := el.Click(ctx); err != nil {
		return "", err
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(clipboardPollInterval)
	defer ticker.Stop()
	for {
		res, err := pg.Eval(clipboardRead)
		if err == nil {
			if text := res.Value.Str(); text != "" {
				return text, nil
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", browser.ErrNoClipboard
		case <-ticker.C:
		}
	}
}

func (p *Page) wrap(els rod.Elements) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &Element{el: el, cfg: p.cfg}
	}
	return out
}

// Element adapts a rod element to browser.Element.
type Element struct {
	el  *rod.Element
	cfg Config
}

var _ browser.Element = (*Element)(nil)

func (e *Element) scoped(ctx context.Context) (*rod.Element, context.CancelFunc) {
	ctx, cancel := withOperationTimeout(ctx, e.cfg.OperationTimeout)
	return e.el.Context(ctx), cancel
}

func (e *Element) Elements(ctx context.Context, selector string) ([]browser.Element, error) {
	el, cancel := e.scoped(ctx)
	defer cancel()
	els, err := el.Elements(selector)
	if err != nil {
		return nil, browser.WrapPageError("element_query", selector, translate(err))
	}
	out := make([]browser.Element, len(els))
	for i, child := range els {
		out[i] = &Element{el: child, cfg: e.cfg}
	}
	return out, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	el, cancel := e.scoped(ctx)
	defer cancel()
	text, err := el.Text()
	if err != nil {
		return "", browser.WrapPageError("text", "", translate(err))
	}
	return text, nil
}

func (e *Element) HTML(ctx context.Context) (string, error) {
	el, cancel := e.scoped(ctx)
	defer cancel()
	html, err := el.HTML()
	if err != nil {
		return "", browser.WrapPageError("html", "", translate(err))
	}
	return html, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	el, cancel := e.scoped(ctx)
	defer cancel()
	val, err := el.Attribute(name)
	if err != nil {
		return "", false, browser.WrapPageError("attribute", name, translate(err))
	}
	if val == nil {
		return "", false, nil
	}
	return *val, true, nil
}

// Click performs a real mouse click, falling back to a synthetic DOM click
// for controls that are hidden until hover.
func (e *Element) Click(ctx context.Context) error {
	clickCtx, cancel := withOperationTimeout(ctx, e.cfg.ClickTimeout)
	err := e.el.Context(clickCtx).Click(proto.InputMouseButtonLeft, 1)
	cancel()
	if err == nil {
		return nil
	}

	el, cancel := e.scoped(ctx)
	defer cancel()
	if _, evalErr := el.Eval(`() => this.click()`); evalErr != nil {
		return browser.WrapPageError("click", "", translate(evalErr))
	}
	return nil
}

func remoteArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		if el, ok := arg.(*Element); ok && el != nil {
			out[i] = el.el.Object
			continue
		}
		out[i] = arg
	}
	return out
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(browser.ErrOperationTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case isTargetClosed(err):
		return errors.Join(browser.ErrPageClosed, err)
	default:
		return err
	}
}

func withOperationTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func isTargetClosed(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "target closed") || strings.Contains(msg, "no target with given id")
}
