package browser

import (
	"context"
	"encoding/json"
	"time"
)

// Page is the live document handle the capture engine inspects. All calls
// execute inside the remote browser; implementations must honour ctx.
type Page interface {
	// Elements returns every element matching selector in document order.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// WaitForSelector blocks until selector matches or timeout elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// Eval runs a JavaScript function in the page, awaiting a returned
	// Promise, and returns its JSON-encoded result.
	Eval(ctx context.Context, script string, args ...any) (json.RawMessage, error)
	// InterceptCopy clicks trigger and returns the text the page tried to
	// place on the clipboard within wait. ErrNoClipboard means nothing was
	// written.
	InterceptCopy(ctx context.Context, trigger Element, wait time.Duration) (string, error)
}

// Element is a handle to one element of the live document.
type Element interface {
	// Elements returns descendants matching selector in document order.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// Text returns the rendered text (innerText).
	Text(ctx context.Context) (string, error)
	// HTML returns the element's outerHTML snapshot.
	HTML(ctx context.Context) (string, error)
	// Attribute returns the named attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
}
