package capture

import (
	"context"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/odvcencio/pagechat/pkg/browser"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
	"github.com/odvcencio/pagechat/pkg/logging"
	"github.com/odvcencio/pagechat/pkg/markdown"
	"github.com/odvcencio/pagechat/pkg/telemetry"
)

const (
	DefaultPollInterval   = 250 * time.Millisecond
	DefaultStableTicks    = 6
	DefaultInitialTimeout = 60 * time.Second
	DefaultHardCeiling    = 10 * time.Minute
)

// Options configures the completion detector.
type Options struct {
	// ReplyContainer matches every reply in the page, in document order.
	ReplyContainer string
	// ReplyText narrows a container to the streamed reply body.
	ReplyText string
	// CompleteMarkers are evaluated inside the reply container; any match
	// on a tick without growth completes the reply.
	CompleteMarkers []string

	PollInterval time.Duration
	// StableTicks is the number of consecutive unchanged ticks that
	// completes a reply.
	StableTicks int
	// InitialTimeout bounds the wait for a new reply to appear.
	InitialTimeout time.Duration
	// HardCeiling bounds the whole turn.
	HardCeiling time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.StableTicks <= 0 {
		o.StableTicks = DefaultStableTicks
	}
	if o.InitialTimeout <= 0 {
		o.InitialTimeout = DefaultInitialTimeout
	}
	if o.HardCeiling <= 0 {
		o.HardCeiling = DefaultHardCeiling
	}
	return o
}

// Poller watches a page for the next reply and captures it. One turn runs
// at a time per Poller.
type Poller struct {
	page      browser.Page
	opts      Options
	extractor *Extractor
	hub       *telemetry.Hub
	log       *logging.Logger

	current atomic.Pointer[turn]

	now        func() time.Time
	beforeTick func()
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithHub publishes turn events to hub.
func WithHub(hub *telemetry.Hub) PollerOption {
	return func(p *Poller) { p.hub = hub }
}

// WithLogger sets the poller's logger.
func WithLogger(log *logging.Logger) PollerOption {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPoller creates a poller over page. A nil extractor falls back to
// plain-text extraction only.
func NewPoller(page browser.Page, extractor *Extractor, opts Options, options ...PollerOption) *Poller {
	p := &Poller{
		page:      page,
		opts:      opts.withDefaults(),
		extractor: extractor,
		log:       logging.Nop(),
		now:       time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.extractor == nil {
		p.extractor = NewExtractor(page, ExtractOptions{ReplyText: p.opts.ReplyText}, p.log)
	}
	return p
}

// Abort stops the running turn at its next tick. Text already streamed
// stays emitted; no final or turn-complete callback follows. Abort has no
// effect when no turn is running.
func (p *Poller) Abort() {
	if t := p.current.Load(); t != nil {
		t.aborted.Store(true)
	}
}

// Running reports whether a turn is in progress.
func (p *Poller) Running() bool {
	return p.current.Load() != nil
}

// Run captures the first reply beyond baseline existing replies and
// delivers it to sink. Reported failures (no reply, empty extraction,
// page loss) come back on the result; the returned error is reserved for
// TURN_ABORTED and TURN_IN_PROGRESS.
func (p *Poller) Run(ctx context.Context, baseline int, sink Sink) (TurnResult, error) {
	if sink == nil {
		sink = SinkFuncs{}
	}
	id := ulid.Make().String()
	t := &turn{
		p:        p,
		id:       id,
		baseline: baseline,
		sink:     sink,
		log:      p.log.WithTurn(id),
	}
	if !p.current.CompareAndSwap(nil, t) {
		return TurnResult{}, pcerrors.New(pcerrors.ErrCodeTurnInProgress, "a turn is already being captured").
			WithUserMessage("Still waiting on the previous reply.")
	}
	defer p.current.Store(nil)

	t.start = p.now()
	return t.run(ctx)
}

// turn is the per-run state of the detector.
type turn struct {
	p        *Poller
	id       string
	baseline int
	sink     Sink
	log      *logging.Logger

	phase     Phase
	state     StreamState
	differ    Differ
	candidate browser.Element
	streamed  strings.Builder
	start     time.Time
	ceiling   bool
	err       error
	aborted   atomic.Bool
}

func (t *turn) run(ctx context.Context) (TurnResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "capture.turn", trace.WithAttributes(
		telemetry.AttrTurnID.String(t.id),
		telemetry.AttrBaseline.Int(t.baseline),
	))
	defer span.End()

	t.publish(telemetry.EventTurnStarted, map[string]any{"baseline": t.baseline})
	t.log.Debug().Int("baseline", t.baseline).Msg("turn started")

	limiter := rate.NewLimiter(rate.Every(t.p.opts.PollInterval), 1)
	for !t.phase.Terminal() {
		if err := limiter.Wait(ctx); err != nil {
			return t.abort(ctx, err)
		}
		if t.p.beforeTick != nil {
			t.p.beforeTick()
		}
		if t.aborted.Load() {
			return t.abort(ctx, nil)
		}
		pollTicks.Inc()
		if err := t.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return t.abort(ctx, ctx.Err())
			}
			t.pageLost(err)
		}
	}
	return t.finish(ctx)
}

func (t *turn) tick(ctx context.Context) error {
	opts := t.p.opts
	elapsed := t.p.now().Sub(t.start)

	if t.candidate == nil {
		cand, err := t.findCandidate(ctx)
		if err != nil {
			if !browser.IsRetryableError(err) {
				return err
			}
			t.log.Debug().Err(err).Msg("querying replies failed")
		}
		if cand == nil {
			if elapsed >= opts.InitialTimeout || elapsed >= opts.HardCeiling {
				t.noCandidate(elapsed)
			}
			return nil
		}
		t.candidate = cand
		t.state.StartedAt = t.p.now()
		t.transition(PhaseGrowing)
	}

	if elapsed >= opts.HardCeiling {
		t.ceiling = true
		err := pcerrors.New(pcerrors.ErrCodeTimeout, "hard ceiling reached").
			WithContext("elapsed", elapsed.String())
		trace.SpanFromContext(ctx).RecordError(err)
		t.log.TimeoutExceeded(err, elapsed, t.state.LastObservedLength)
		t.publish(telemetry.EventTurnTimeout, map[string]any{
			"elapsed_ms": elapsed.Milliseconds(),
			"length":     t.state.LastObservedLength,
		})
		t.complete()
		return nil
	}

	text, err := replyBody(ctx, t.candidate, opts.ReplyText).Text(ctx)
	if err != nil {
		if !browser.IsRetryableError(err) {
			return err
		}
		// Streaming re-renders can detach the handle; look the reply up again.
		t.log.Debug().Err(err).Msg("reading reply failed; refreshing candidate")
		if cand, ferr := t.findCandidate(ctx); ferr == nil && cand != nil {
			t.candidate = cand
		}
		return nil
	}

	length := utf8.RuneCountInString(text)
	if length == 0 && t.p.now().Sub(t.state.StartedAt) < opts.InitialTimeout {
		return nil
	}
	chunk := t.differ.Next(text)
	if t.state.Observe(length) {
		t.emit(chunk)
		t.transition(PhaseGrowing)
		return nil
	}
	if length > 0 && t.hasCompleteMarker(ctx) {
		t.log.Debug().Int("stable_ticks", t.state.StableTicks).Msg("completion marker present")
		t.complete()
		return nil
	}
	t.transition(PhaseStabilizing)
	if t.state.StableTicks >= opts.StableTicks {
		t.complete()
	}
	return nil
}

// findCandidate returns the last reply container once more than baseline
// exist, or nil.
func (t *turn) findCandidate(ctx context.Context) (browser.Element, error) {
	els, err := t.p.page.Elements(ctx, t.p.opts.ReplyContainer)
	if err != nil {
		return nil, err
	}
	if len(els) <= t.baseline {
		return nil, nil
	}
	return els[len(els)-1], nil
}

func (t *turn) hasCompleteMarker(ctx context.Context) bool {
	for _, sel := range t.p.opts.CompleteMarkers {
		els, err := t.candidate.Elements(ctx, sel)
		if err == nil && len(els) > 0 {
			return true
		}
	}
	return false
}

func (t *turn) emit(chunk string) {
	if chunk == "" {
		return
	}
	t.streamed.WriteString(chunk)
	chunksEmitted.Inc()
	t.log.ChunkEmitted(len(chunk), t.state.LastObservedLength)
	t.sink.OnChunk(chunk)
}

func (t *turn) transition(to Phase) {
	if t.phase == to {
		return
	}
	from := t.phase
	t.phase = to
	t.log.PhaseChanged(from.String(), to.String(), t.state.LastObservedLength)
	t.publish(telemetry.EventTurnPhase, map[string]any{
		"from":   from.String(),
		"to":     to.String(),
		"length": t.state.LastObservedLength,
	})
}

func (t *turn) complete() {
	t.state.Complete()
	t.transition(PhaseComplete)
}

func (t *turn) noCandidate(waited time.Duration) {
	t.log.NoCandidate(t.baseline, waited)
	t.err = pcerrors.New(pcerrors.ErrCodeNoCandidate, "no new reply appeared").
		WithContext("baseline", t.baseline).
		WithContext("waited", waited.String()).
		WithUserMessage("No reply appeared.")
	t.transition(PhaseTimedOut)
}

// pageLost ends the turn with whatever has streamed so far.
func (t *turn) pageLost(err error) {
	t.log.Error().Err(err).Msg("page became unavailable")
	t.err = pcerrors.Wrap(err, pcerrors.ErrCodePageUnavailable, "page became unavailable").
		WithUserMessage("Lost the browser page.")
	if t.candidate == nil {
		t.transition(PhaseTimedOut)
		return
	}
	t.complete()
}

func (t *turn) finish(ctx context.Context) (TurnResult, error) {
	res := TurnResult{
		TurnID:         t.id,
		Phase:          t.phase,
		Streamed:       t.streamed.String(),
		CeilingReached: t.ceiling,
		Err:            t.err,
	}

	switch {
	case t.phase == PhaseComplete && t.err == nil:
		ext, err := t.p.extractor.Extract(ctx, t.candidate)
		if ctx.Err() != nil || t.aborted.Load() {
			return t.abort(ctx, ctx.Err())
		}
		res.Extraction = ext
		res.Err = err
		t.publish(telemetry.EventTurnExtracted, map[string]any{
			"source":              ext.Source.String(),
			"looks_like_markdown": ext.LooksLikeMarkdown,
			"length":              len(ext.Text),
		})
		t.sink.OnFinal(ext)
	case res.Streamed != "":
		text := markdown.Normalize(res.Streamed)
		res.Extraction = ExtractionResult{
			Text:              text,
			Source:            SourcePlainText,
			LooksLikeMarkdown: markdown.LooksLikeMarkdown(text),
		}
		t.sink.OnFinal(res.Extraction)
	}

	res.Elapsed = t.p.now().Sub(t.start)
	outcome := outcomeOf(res)
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDuration.Observe(res.Elapsed.Seconds())

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		telemetry.AttrOutcome.String(outcome),
		telemetry.AttrPhase.String(res.Phase.String()),
		telemetry.AttrTextLength.Int(len(res.Extraction.Text)),
	)
	telemetry.RecordError(ctx, res.Err)

	t.publish(telemetry.EventTurnCompleted, map[string]any{
		"phase":      res.Phase.String(),
		"outcome":    outcome,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	})
	t.log.Info().
		Str("outcome", outcome).
		Dur("elapsed", res.Elapsed).
		Int("length", len(res.Extraction.Text)).
		Msg("turn complete")
	t.sink.OnTurnComplete(res)
	return res, nil
}

func (t *turn) abort(ctx context.Context, cause error) (TurnResult, error) {
	err := pcerrors.New(pcerrors.ErrCodeTurnAborted, "turn aborted")
	if cause != nil {
		err = pcerrors.Wrap(cause, pcerrors.ErrCodeTurnAborted, "turn aborted")
	}
	err.WithContext("turn_id", t.id)

	turnsTotal.WithLabelValues(outcomeAborted).Inc()
	telemetry.RecordError(ctx, err)
	t.publish(telemetry.EventTurnAborted, map[string]any{"phase": t.phase.String()})
	t.log.Info().Str("phase", t.phase.String()).Msg("turn aborted")

	return TurnResult{
		TurnID:   t.id,
		Phase:    t.phase,
		Streamed: t.streamed.String(),
		Elapsed:  t.p.now().Sub(t.start),
	}, err
}

func (t *turn) publish(typ telemetry.EventType, data map[string]any) {
	t.p.hub.Publish(telemetry.Event{Type: typ, TurnID: t.id, Data: data})
}

func outcomeOf(res TurnResult) string {
	switch {
	case pcerrors.IsCode(res.Err, pcerrors.ErrCodeNoCandidate):
		return outcomeNoCandidate
	case pcerrors.IsCode(res.Err, pcerrors.ErrCodePageUnavailable):
		return outcomePageLost
	case pcerrors.IsCode(res.Err, pcerrors.ErrCodeExtractEmpty):
		return outcomeEmpty
	case res.CeilingReached:
		return outcomeCeiling
	default:
		return outcomeComplete
	}
}
