package browser

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPageOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pagechat",
		Subsystem: "page",
		Name:      "operations_total",
		Help:      "Page operations issued to the browser, by operation and outcome.",
	}, []string{"op", "outcome"})
	metricPageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pagechat",
		Subsystem: "page",
		Name:      "operation_seconds",
		Help:      "Round-trip latency of page operations.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})
)

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case IsTimeout(err):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	metricPageOps.WithLabelValues(op, outcome).Inc()
	metricPageLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Instrument wraps page so every operation, including those on the
// elements it returns, is counted and timed.
func Instrument(page Page) Page {
	if page == nil {
		return nil
	}
	if _, ok := page.(*instrumentedPage); ok {
		return page
	}
	return &instrumentedPage{inner: page}
}

type instrumentedPage struct {
	inner Page
}

func (p *instrumentedPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	start := time.Now()
	els, err := p.inner.Elements(ctx, selector)
	observe("elements", start, err)
	return wrapElements(els), err
}

func (p *instrumentedPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	start := time.Now()
	el, err := p.inner.WaitForSelector(ctx, selector, timeout)
	observe("wait_for_selector", start, err)
	if el == nil {
		return nil, err
	}
	return &instrumentedElement{inner: el}, err
}

func (p *instrumentedPage) Eval(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	unwrapped := make([]any, len(args))
	for i, arg := range args {
		if el, ok := arg.(Element); ok {
			arg = unwrap(el)
		}
		unwrapped[i] = arg
	}
	start := time.Now()
	out, err := p.inner.Eval(ctx, script, unwrapped...)
	observe("eval", start, err)
	return out, err
}

func (p *instrumentedPage) InterceptCopy(ctx context.Context, trigger Element, wait time.Duration) (string, error) {
	start := time.Now()
	text, err := p.inner.InterceptCopy(ctx, unwrap(trigger), wait)
	observe("intercept_copy", start, err)
	return text, err
}

type instrumentedElement struct {
	inner Element
}

// unwrap returns the adapter's own element so it can recognise handles
// passed back into page calls.
func unwrap(el Element) Element {
	if wrapped, ok := el.(*instrumentedElement); ok {
		return wrapped.inner
	}
	return el
}

func wrapElements(els []Element) []Element {
	if els == nil {
		return nil
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &instrumentedElement{inner: el}
	}
	return out
}

func (e *instrumentedElement) Elements(ctx context.Context, selector string) ([]Element, error) {
	start := time.Now()
	els, err := e.inner.Elements(ctx, selector)
	observe("element_query", start, err)
	return wrapElements(els), err
}

func (e *instrumentedElement) Text(ctx context.Context) (string, error) {
	start := time.Now()
	text, err := e.inner.Text(ctx)
	observe("text", start, err)
	return text, err
}

func (e *instrumentedElement) HTML(ctx context.Context) (string, error) {
	start := time.Now()
	html, err := e.inner.HTML(ctx)
	observe("html", start, err)
	return html, err
}

func (e *instrumentedElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	start := time.Now()
	val, ok, err := e.inner.Attribute(ctx, name)
	observe("attribute", start, err)
	return val, ok, err
}

func (e *instrumentedElement) Click(ctx context.Context) error {
	start := time.Now()
	err := e.inner.Click(ctx)
	observe("click", start, err)
	return err
}
