package capture

import (
	"context"
	"encoding/json"
	"html"
	"sync"
	"time"

	"github.com/odvcencio/pagechat/pkg/browser"
)

const (
	replySel  = "div.reply"
	bodySel   = "div.body"
	markerSel = "button.regenerate"
	copySel   = "button.copy"
)

// frame is what the page shows during one poll tick.
type frame struct {
	replies  []string
	html     string
	complete bool
}

// fakePage replays frames, one per tick, and clamps at the last frame.
type fakePage struct {
	mu     sync.Mutex
	frames []frame
	idx    int

	copyButton bool
	copyText   string
	copyErr    error
	copied     int

	bodyText string
	queryErr error
	textErr  error
	htmlErr  error
}

func newFakePage(frames ...frame) *fakePage {
	if len(frames) == 0 {
		frames = []frame{{}}
	}
	return &fakePage{frames: frames, idx: -1}
}

func (p *fakePage) advance() {
	p.mu.Lock()
	p.idx++
	p.mu.Unlock()
}

// ticks reports how many frames have been shown.
func (p *fakePage) ticks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx + 1
}

func (p *fakePage) current() frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.idx
	if i < 0 {
		i = 0
	}
	if i >= len(p.frames) {
		i = len(p.frames) - 1
	}
	return p.frames[i]
}

func (p *fakePage) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if selector != replySel {
		return nil, nil
	}
	f := p.current()
	els := make([]browser.Element, len(f.replies))
	for i := range f.replies {
		els[i] = &fakeElement{page: p, index: i}
	}
	return els, nil
}

func (p *fakePage) WaitForSelector(context.Context, string, time.Duration) (browser.Element, error) {
	return nil, browser.ErrOperationTimeout
}

func (p *fakePage) Eval(context.Context, string, ...any) (json.RawMessage, error) {
	return json.RawMessage("null"), nil
}

func (p *fakePage) InterceptCopy(context.Context, browser.Element, time.Duration) (string, error) {
	p.mu.Lock()
	p.copied++
	p.mu.Unlock()
	if p.copyErr != nil {
		return "", p.copyErr
	}
	if p.copyText == "" {
		return "", browser.ErrNoClipboard
	}
	return p.copyText, nil
}

type fakeElement struct {
	page  *fakePage
	index int
	kind  string
}

func (e *fakeElement) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	if e.kind != "" {
		return nil, nil
	}
	switch selector {
	case markerSel:
		if e.page.current().complete {
			return []browser.Element{&fakeElement{page: e.page, kind: "marker"}}, nil
		}
	case copySel:
		if e.page.copyButton {
			return []browser.Element{&fakeElement{page: e.page, kind: "button"}}, nil
		}
	case bodySel:
		if e.page.bodyText != "" {
			return []browser.Element{&fakeElement{page: e.page, kind: "body"}}, nil
		}
	}
	return nil, nil
}

func (e *fakeElement) Text(context.Context) (string, error) {
	if e.page.textErr != nil {
		return "", e.page.textErr
	}
	switch e.kind {
	case "":
		f := e.page.current()
		if e.index < len(f.replies) {
			return f.replies[e.index], nil
		}
		return "", nil
	case "body":
		return e.page.bodyText, nil
	default:
		return "", nil
	}
}

func (e *fakeElement) HTML(ctx context.Context) (string, error) {
	if e.page.htmlErr != nil {
		return "", e.page.htmlErr
	}
	if e.kind == "" {
		if f := e.page.current(); f.html != "" {
			return f.html, nil
		}
	}
	text, err := e.Text(ctx)
	if err != nil {
		return "", err
	}
	return `<div class="reply"><p>` + html.EscapeString(text) + `</p></div>`, nil
}

func (e *fakeElement) Attribute(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (e *fakeElement) Click(context.Context) error {
	return nil
}

// fakeClock advances a fixed step per poll tick.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
