// Package capture detects when a streamed reply starts and finishes inside a
// live page, emits its growth incrementally, and selects the authoritative
// final Markdown once the reply settles.
package capture

import (
	"time"
	"unicode/utf8"
)

// Phase is a state of the completion detector.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseGrowing
	PhaseStabilizing
	PhaseComplete
	PhaseTimedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseGrowing:
		return "growing"
	case PhaseStabilizing:
		return "stabilizing"
	case PhaseComplete:
		return "complete"
	case PhaseTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can follow p.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseTimedOut
}

// StreamState tracks one reply while it streams. LastObservedLength never
// decreases while Completed is false, and Completed is set at most once.
type StreamState struct {
	LastObservedLength int
	StableTicks        int
	StartedAt          time.Time
	Completed          bool
}

// Observe records the reply's current length in runes and reports whether
// it grew. A shorter observation counts as an unchanged tick.
func (s *StreamState) Observe(length int) bool {
	if s.Completed {
		return false
	}
	if length > s.LastObservedLength {
		s.LastObservedLength = length
		s.StableTicks = 0
		return true
	}
	s.StableTicks++
	return false
}

// Complete marks the reply finished. It returns false if it already was.
func (s *StreamState) Complete() bool {
	if s.Completed {
		return false
	}
	s.Completed = true
	return true
}

// Differ emits the part of a growing text that has not been emitted yet.
// Offsets are counted in runes so a chunk never splits a character.
type Differ struct {
	seen int
}

// Next returns the suffix of text beyond everything already emitted. Text
// that shrank or was rewritten below the emitted length yields "".
func (d *Differ) Next(text string) string {
	n := utf8.RuneCountInString(text)
	if n <= d.seen {
		return ""
	}
	i, skip := 0, d.seen
	for skip > 0 {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		skip--
	}
	d.seen = n
	return text[i:]
}

// Seen returns how many runes have been emitted.
func (d *Differ) Seen() int {
	return d.seen
}
