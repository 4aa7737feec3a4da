package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/odvcencio/pagechat/pkg/browser"
	"github.com/odvcencio/pagechat/pkg/browser/adapters/cdp"
	"github.com/odvcencio/pagechat/pkg/capture"
	"github.com/odvcencio/pagechat/pkg/chat"
	"github.com/odvcencio/pagechat/pkg/config"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
	"github.com/odvcencio/pagechat/pkg/logging"
	"github.com/odvcencio/pagechat/pkg/telemetry"
	"github.com/odvcencio/pagechat/pkg/terminal"
)

// asker is the part of chat.Conversation a session drives.
type asker interface {
	Ask(ctx context.Context, prompt string, sink capture.Sink) (capture.TurnResult, error)
	Abort()
	Busy() bool
}

func run(opts *startupOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	level := logging.Level(cfg.Logging.Level)
	if opts.verbose {
		level = logging.LevelDebug
	}
	log, err := logging.NewLogger(logging.Options{
		Component: "pagechat",
		Level:     level,
		Format:    logging.Format(cfg.Logging.Format),
		Out:       stderr,
		File:      cfg.Logging.File,
	})
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	defer log.Close()

	stopTracing, err := setupTracing(cfg.Tracing, stderr)
	if err != nil {
		return err
	}
	defer stopTracing()

	if cfg.Metrics.Listen != "" {
		stopMetrics := startMetricsServer(cfg.Metrics.Listen, log)
		defer stopMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime, err := cdp.NewRuntime(ctx, cdp.Config{
		ControlURL:       cfg.Browser.ControlURL,
		BinPath:          cfg.Browser.BinPath,
		StartURL:         cfg.Browser.StartURL,
		URLMatch:         cfg.Browser.URLMatch,
		Headless:         cfg.Browser.Headless,
		OperationTimeout: cfg.Browser.OperationTimeout,
	})
	if err != nil {
		return pcerrors.Wrap(err, pcerrors.ErrCodePageUnavailable, "starting browser").
			WithUserMessage("Could not reach a browser. Check browser.control_url or browser.bin_path.")
	}
	defer runtime.Close()

	page, err := runtime.Page(ctx)
	if err != nil {
		return pcerrors.Wrap(err, pcerrors.ErrCodePageUnavailable, "opening chat page").
			WithContext("url_match", cfg.Browser.URLMatch)
	}
	log.Debug().Str("url_match", cfg.Browser.URLMatch).Msg("chat page attached")

	hub := telemetry.NewHub()
	defer hub.Close()

	conv := chat.FromConfig(browser.Instrument(page), cfg, log, hub)

	writer := terminal.NewWithOutput(stdout, terminal.Options{
		Style:    cfg.UI.Style,
		WordWrap: cfg.UI.WordWrap,
	})
	if opts.verbose {
		events, _ := hub.Subscribe()
		go showEvents(events, terminal.NewWithOutput(stderr, terminal.Options{Style: "notty"}))
	}

	s := newSession(conv, writer, terminal.PresenterOptions{
		ReplaceStream: cfg.UI.ReplaceStream,
		Spinner:       cfg.UI.Spinner,
		Verbose:       opts.verbose,
	}, cancel)
	stopSignals := watchSignals(s.interrupts)
	defer stopSignals()

	if opts.prompt != "" {
		return s.askOnce(ctx, opts.prompt)
	}
	return s.repl(ctx, stdin)
}

func loadConfig(opts *startupOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.controlURL != "" {
		cfg.Browser.ControlURL = opts.controlURL
	}
	if opts.headlessSet {
		cfg.Browser.Headless = opts.headless
	}
	return cfg, cfg.Validate()
}

func setupTracing(cfg config.TracingConfig, stderr io.Writer) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	out := stderr
	var file *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		file = f
		out = f
	}

	tp, err := telemetry.NewTracerProvider("pagechat", version, out)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
		if file != nil {
			file.Close()
		}
	}, nil
}

// showEvents prints capture events until the hub closes.
func showEvents(events <-chan telemetry.Event, w *terminal.Writer) {
	for ev := range events {
		w.Dim("%s", formatEvent(ev))
	}
}

func formatEvent(ev telemetry.Event) string {
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(ev.Type))
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, ev.Data[k])
	}
	return sb.String()
}
