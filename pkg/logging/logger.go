package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format selects the log encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Options configures NewLogger.
type Options struct {
	Component string
	Level     Level
	Format    Format
	// Out receives human-facing log output. Defaults to stderr so replies
	// streamed on stdout stay clean.
	Out io.Writer
	// File, when set, additionally appends JSON lines to this path.
	File string
}

// Logger is a zerolog logger with capture-specific event helpers.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// NewLogger creates a structured logger.
func NewLogger(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.Component != "" {
		ctx = ctx.Str("component", opts.Component)
	}
	return &Logger{Logger: ctx.Logger(), file: file}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// ParseLevel maps a configured level to zerolog. Empty means info.
func ParseLevel(level Level) (zerolog.Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(string(level)))) {
	case "":
		return zerolog.InfoLevel, nil
	case LevelDebug:
		return zerolog.DebugLevel, nil
	case LevelInfo:
		return zerolog.InfoLevel, nil
	case LevelWarn, "warning":
		return zerolog.WarnLevel, nil
	case LevelError:
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// WithComponent returns a child logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.With().Str("component", name).Logger(), file: l.file}
}

// WithTurn returns a child logger tagged with a turn identifier.
func (l *Logger) WithTurn(turnID string) *Logger {
	return &Logger{Logger: l.With().Str("turn_id", turnID).Logger(), file: l.file}
}

// Close closes the JSON lines file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// PhaseChanged logs a completion-detector state transition.
func (l *Logger) PhaseChanged(from, to string, length int) {
	l.Debug().Str("from", from).Str("to", to).Int("length", length).Msg("phase changed")
}

// ChunkEmitted logs an incremental text emission.
func (l *Logger) ChunkEmitted(size, total int) {
	l.Trace().Int("size", size).Int("total", total).Msg("chunk emitted")
}

// ExtractionSelected logs which extraction strategy produced the final text.
func (l *Logger) ExtractionSelected(source string, looksLikeMarkdown bool, length int) {
	l.Info().
		Str("source", source).
		Bool("looks_like_markdown", looksLikeMarkdown).
		Int("length", length).
		Msg("extraction selected")
}

// CopyInterceptFailed records a silent fall-through from the copy action.
func (l *Logger) CopyInterceptFailed(err error) {
	l.Debug().Err(err).Msg("copy intercept failed; falling back")
}

// TimeoutExceeded records the hard ceiling forcing completion.
func (l *Logger) TimeoutExceeded(err error, elapsed time.Duration, length int) {
	l.Warn().Err(err).Dur("elapsed", elapsed).Int("length", length).Msg("hard ceiling reached; completing with accumulated text")
}

// NoCandidate records that no new reply appeared in time.
func (l *Logger) NoCandidate(baseline int, waited time.Duration) {
	l.Warn().Int("baseline", baseline).Dur("waited", waited).Msg("no reply appeared")
}
