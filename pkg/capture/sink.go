package capture

import "time"

//go:generate mockgen -package=capture -destination=mock_sink_test.go github.com/odvcencio/pagechat/pkg/capture Sink

// Sink receives a turn's output. Calls arrive on the poller's goroutine in
// order: zero or more OnChunk, then OnFinal after a completed reply, then
// exactly one OnTurnComplete unless the turn was aborted.
type Sink interface {
	// OnChunk receives newly streamed raw text.
	OnChunk(chunk string)
	// OnFinal receives the normalized Markdown that replaces the stream.
	OnFinal(result ExtractionResult)
	// OnTurnComplete signals the turn is over and input may resume.
	OnTurnComplete(result TurnResult)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Chunk    func(chunk string)
	Final    func(result ExtractionResult)
	Complete func(result TurnResult)
}

func (f SinkFuncs) OnChunk(chunk string) {
	if f.Chunk != nil {
		f.Chunk(chunk)
	}
}

func (f SinkFuncs) OnFinal(result ExtractionResult) {
	if f.Final != nil {
		f.Final(result)
	}
}

func (f SinkFuncs) OnTurnComplete(result TurnResult) {
	if f.Complete != nil {
		f.Complete(result)
	}
}

// TurnResult summarizes a finished turn.
type TurnResult struct {
	TurnID string
	// Phase is PhaseComplete or PhaseTimedOut.
	Phase      Phase
	Extraction ExtractionResult
	// Streamed is the concatenation of every emitted chunk.
	Streamed string
	// CeilingReached is set when the hard ceiling forced completion.
	CeilingReached bool
	Elapsed        time.Duration
	// Err carries a reported, non-fatal failure such as NO_CANDIDATE_FOUND
	// or EXTRACTION_EMPTY.
	Err error
}

// Text returns the best text the turn produced.
func (r TurnResult) Text() string {
	if r.Extraction.Text != "" {
		return r.Extraction.Text
	}
	return r.Streamed
}
