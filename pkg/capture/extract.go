package capture

import (
	"context"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/pagechat/pkg/browser"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
	"github.com/odvcencio/pagechat/pkg/logging"
	"github.com/odvcencio/pagechat/pkg/markdown"
	"github.com/odvcencio/pagechat/pkg/richtext"
	"github.com/odvcencio/pagechat/pkg/telemetry"
)

// Source records which strategy produced the final text.
type Source int

const (
	SourceCopyAction Source = iota
	SourceDomWalk
	SourcePlainText
)

func (s Source) String() string {
	switch s {
	case SourceCopyAction:
		return "copy_action"
	case SourceDomWalk:
		return "dom_walk"
	case SourcePlainText:
		return "plain_text_fallback"
	default:
		return "unknown"
	}
}

// ExtractionResult is the normalized final text of a reply.
type ExtractionResult struct {
	Text              string
	Source            Source
	LooksLikeMarkdown bool
}

// ExtractOptions configures the extraction strategies.
type ExtractOptions struct {
	// CopyButton is evaluated inside the reply container. Empty disables
	// the copy action.
	CopyButton string
	CopyWait   time.Duration
	// ReplyText narrows the container to the rendered reply body.
	ReplyText string
	// PreferWalkerForPlainCopy rejects a copy payload that does not look
	// like Markdown when the walker is available.
	PreferWalkerForPlainCopy bool
	// Walker renders the reply snapshot. Nil disables the DOM walk.
	Walker *richtext.Walker
}

// Extractor picks the authoritative final text of a reply: the page's own
// copy action, then a walk of the reply's rich text, then its plain text.
type Extractor struct {
	page browser.Page
	opts ExtractOptions
	log  *logging.Logger
}

// NewExtractor builds an extractor for page. A nil logger discards logs.
func NewExtractor(page browser.Page, opts ExtractOptions, log *logging.Logger) *Extractor {
	if log == nil {
		log = logging.Nop()
	}
	return &Extractor{page: page, opts: opts, log: log}
}

// Extract runs the strategies against container. The returned text is
// always normalized. An EXTRACTION_EMPTY error accompanies an empty result
// and is meant to be reported, not treated as fatal.
func (x *Extractor) Extract(ctx context.Context, container browser.Element) (ExtractionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "capture.extract")
	defer span.End()

	res, err := x.extract(ctx, container)
	res.Text = markdown.Normalize(res.Text)
	res.LooksLikeMarkdown = markdown.LooksLikeMarkdown(res.Text)
	if err == nil && res.Text == "" {
		err = pcerrors.New(pcerrors.ErrCodeExtractEmpty, "every extraction strategy came back empty").
			WithUserMessage("The reply had no readable text.")
	}

	extractionsTotal.WithLabelValues(res.Source.String()).Inc()
	span.SetAttributes(
		telemetry.AttrSource.String(res.Source.String()),
		telemetry.AttrLooksLikeMD.Bool(res.LooksLikeMarkdown),
		telemetry.AttrTextLength.Int(len(res.Text)),
	)
	telemetry.RecordError(ctx, err)
	x.log.ExtractionSelected(res.Source.String(), res.LooksLikeMarkdown, len(res.Text))
	return res, err
}

func (x *Extractor) extract(ctx context.Context, container browser.Element) (ExtractionResult, error) {
	if container == nil {
		return ExtractionResult{Source: SourcePlainText}, nil
	}

	copied := x.copyAction(ctx, container)
	if strings.TrimSpace(copied) != "" {
		if !x.opts.PreferWalkerForPlainCopy || x.opts.Walker == nil || markdown.LooksLikeMarkdown(copied) {
			return ExtractionResult{Text: copied, Source: SourceCopyAction}, nil
		}
		x.log.Debug().Int("length", len(copied)).Msg("copy payload does not look like markdown; walking the reply")
	}
	if err := ctx.Err(); err != nil {
		return ExtractionResult{Source: SourcePlainText}, err
	}

	body := replyBody(ctx, container, x.opts.ReplyText)
	snap := x.snapshot(ctx, body)

	if x.opts.Walker != nil && snap.html != "" {
		walked, err := x.opts.Walker.WalkHTML(snap.html)
		if err != nil {
			x.log.Debug().Err(err).Msg("walking reply snapshot failed")
		} else if strings.TrimSpace(walked) != "" {
			return ExtractionResult{Text: walked, Source: SourceDomWalk}, nil
		}
	}

	plain := snap.text
	if strings.TrimSpace(plain) == "" && snap.html != "" {
		if converted, err := html2text.FromString(snap.html); err == nil {
			plain = converted
		} else {
			x.log.Debug().Err(err).Msg("converting reply snapshot to text failed")
		}
	}
	if strings.TrimSpace(plain) == "" && strings.TrimSpace(copied) != "" {
		return ExtractionResult{Text: copied, Source: SourceCopyAction}, nil
	}
	return ExtractionResult{Text: plain, Source: SourcePlainText}, nil
}

// copyAction clicks the reply's copy button and returns the intercepted
// clipboard payload. Every failure is swallowed.
func (x *Extractor) copyAction(ctx context.Context, container browser.Element) string {
	if x.opts.CopyButton == "" {
		return ""
	}
	buttons, err := container.Elements(ctx, x.opts.CopyButton)
	if err != nil || len(buttons) == 0 {
		if err == nil {
			err = pcerrors.New(pcerrors.ErrCodeCopyIntercept, "copy button not found").
				WithContext("selector", x.opts.CopyButton)
		}
		x.copyFailed(ctx, err)
		return ""
	}
	text, err := x.page.InterceptCopy(ctx, buttons[len(buttons)-1], x.opts.CopyWait)
	if err != nil {
		x.copyFailed(ctx, pcerrors.Wrap(err, pcerrors.ErrCodeCopyIntercept, "intercepting copy"))
		return ""
	}
	return text
}

func (x *Extractor) copyFailed(ctx context.Context, err error) {
	copyInterceptFailures.Inc()
	telemetry.AddEvent(ctx, "copy_intercept_failed", attribute.String("error", err.Error()))
	x.log.CopyInterceptFailed(err)
}

type snapshot struct {
	html string
	text string
}

// snapshot reads the reply's outerHTML and innerText concurrently. Either
// may come back empty; read failures are logged and tolerated.
func (x *Extractor) snapshot(ctx context.Context, body browser.Element) snapshot {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		html, err := body.HTML(gctx)
		if err != nil {
			x.log.Debug().Err(err).Msg("reading reply html failed")
			return nil
		}
		snap.html = html
		return nil
	})
	g.Go(func() error {
		text, err := body.Text(gctx)
		if err != nil {
			x.log.Debug().Err(err).Msg("reading reply text failed")
			return nil
		}
		snap.text = text
		return nil
	})
	_ = g.Wait()
	return snap
}

// replyBody narrows container to the last element matching selector, or
// returns container itself.
func replyBody(ctx context.Context, container browser.Element, selector string) browser.Element {
	if selector == "" {
		return container
	}
	els, err := container.Elements(ctx, selector)
	if err != nil || len(els) == 0 {
		return container
	}
	return els[len(els)-1]
}
