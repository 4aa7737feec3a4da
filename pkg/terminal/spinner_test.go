package terminal

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewSpinnerWithOutput(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinnerWithOutput(&buf, "Loading")

	if spinner.message != "Loading" {
		t.Errorf("message = %q, want 'Loading'", spinner.message)
	}
	if len(spinner.frames) == 0 {
		t.Error("frames should be set")
	}
	if !spinner.showTime {
		t.Error("showTime should be true by default")
	}
}

func TestSpinnerOptions(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinnerWithOutput(&buf, "Loading").WithoutTime().SetFrames([]string{"-", "|"})

	if spinner.showTime {
		t.Error("showTime should be false after WithoutTime")
	}
	if len(spinner.frames) != 2 {
		t.Errorf("frames length = %d, want 2", len(spinner.frames))
	}
	spinner.SetFrames(nil)
	if len(spinner.frames) != 2 {
		t.Error("empty frames should be ignored")
	}
	spinner.SetMessage("Processing")
	if spinner.message != "Processing" {
		t.Errorf("message = %q, want 'Processing'", spinner.message)
	}
}

func TestSpinnerAnimatesAndClears(t *testing.T) {
	out := &syncBuffer{}
	spinner := NewSpinnerWithOutput(out, "waiting").WithoutTime().SetFrames([]string{"*"})
	spinner.interval = 5 * time.Millisecond

	spinner.Start()
	spinner.Start()
	time.Sleep(40 * time.Millisecond)
	if spinner.Elapsed() <= 0 {
		t.Error("Elapsed should be positive after Start")
	}
	spinner.Stop()
	spinner.Stop()

	got := out.String()
	if !strings.Contains(got, "* waiting") {
		t.Errorf("spinner output = %q", got)
	}
	if !strings.HasSuffix(got, "\r\033[K") {
		t.Errorf("spinner should clear its line on stop, got %q", got)
	}

	written := len(got)
	time.Sleep(20 * time.Millisecond)
	if len(out.String()) != written {
		t.Error("spinner kept writing after Stop")
	}
}

func TestSpinnerStopBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinnerWithOutput(&buf, "never")
	spinner.Stop()
	spinner.Start()
	if buf.Len() != 0 {
		t.Errorf("stopped spinner wrote %q", buf.String())
	}
	if spinner.Elapsed() != 0 {
		t.Error("Elapsed should be zero when never started")
	}
}
