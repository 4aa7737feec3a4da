package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
)

// Config is the complete pagechat configuration.
type Config struct {
	Browser   BrowserConfig  `yaml:"browser"`
	Selectors SelectorConfig `yaml:"selectors"`
	Capture   CaptureConfig  `yaml:"capture"`
	Walker    WalkerConfig   `yaml:"walker"`
	UI        UIConfig       `yaml:"ui"`
	Logging   LoggingConfig  `yaml:"logging"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Tracing   TracingConfig  `yaml:"tracing"`
}

// BrowserConfig controls how the browser is reached.
type BrowserConfig struct {
	ControlURL       string        `yaml:"control_url"`
	BinPath          string        `yaml:"bin_path"`
	StartURL         string        `yaml:"start_url"`
	URLMatch         string        `yaml:"url_match"`
	Headless         bool          `yaml:"headless"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

// SelectorConfig locates the chat UI inside the page. Scoped selectors
// (reply_text, copy_button, complete_markers) are evaluated inside a reply
// container.
type SelectorConfig struct {
	ReplyContainer  string   `yaml:"reply_container"`
	ReplyText       string   `yaml:"reply_text"`
	CopyButton      string   `yaml:"copy_button"`
	CompleteMarkers []string `yaml:"complete_markers"`
	PromptInput     string   `yaml:"prompt_input"`
	SendButton      string   `yaml:"send_button"`
	CodeBlock       []string `yaml:"code_block"`
	CodeLabel       string   `yaml:"code_label"`
}

// CaptureConfig holds the completion detector timing and extraction knobs.
type CaptureConfig struct {
	PollInterval             time.Duration `yaml:"poll_interval"`
	StableTicks              int           `yaml:"stable_ticks"`
	InitialTimeout           time.Duration `yaml:"initial_timeout"`
	HardCeiling              time.Duration `yaml:"hard_ceiling"`
	CopyWait                 time.Duration `yaml:"copy_wait"`
	PreferWalkerForPlainCopy bool          `yaml:"prefer_walker_for_plain_copy"`
	PromptTimeout            time.Duration `yaml:"prompt_timeout"`
}

// WalkerConfig bounds the rich-text walker.
type WalkerConfig struct {
	Enabled  bool `yaml:"enabled"`
	MaxDepth int  `yaml:"max_depth"`
}

// UIConfig controls terminal presentation.
type UIConfig struct {
	WordWrap      int    `yaml:"word_wrap"`
	Style         string `yaml:"style"`
	ReplaceStream bool   `yaml:"replace_stream"`
	Spinner       bool   `yaml:"spinner"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// TracingConfig controls span export.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			StartURL:         "https://chatgpt.com/",
			URLMatch:         "chatgpt.com",
			OperationTimeout: 10 * time.Second,
		},
		Selectors: SelectorConfig{
			ReplyContainer: `[data-message-author-role="assistant"]`,
			ReplyText:      ".markdown",
			CopyButton:     `button[data-testid="copy-turn-action-button"]`,
			CompleteMarkers: []string{
				`button[data-testid="good-response-turn-action-button"]`,
				`button[data-testid="bad-response-turn-action-button"]`,
			},
			PromptInput: "#prompt-textarea",
			SendButton:  `button[data-testid="send-button"]`,
			CodeBlock:   []string{"code-block"},
			CodeLabel:   ".code-block__label, [data-code-label]",
		},
		Capture: CaptureConfig{
			PollInterval:             250 * time.Millisecond,
			StableTicks:              6,
			InitialTimeout:           60 * time.Second,
			HardCeiling:              10 * time.Minute,
			CopyWait:                 1500 * time.Millisecond,
			PreferWalkerForPlainCopy: true,
			PromptTimeout:            15 * time.Second,
		},
		Walker: WalkerConfig{
			Enabled:  true,
			MaxDepth: 200,
		},
		UI: UIConfig{
			WordWrap:      100,
			Style:         "auto",
			ReplaceStream: true,
			Spinner:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from default locations with proper precedence
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// ~/.pagechat/config.yaml
	if path := UserConfigPath(); path != "" {
		if err := loadAndMerge(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, pcerrors.Wrap(err, pcerrors.ErrCodeConfigLoad, "loading user config").
				WithContext("path", path)
		}
	}

	// ./.pagechat/config.yaml
	projectConfigPath := filepath.Join(".", ".pagechat", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, pcerrors.Wrap(err, pcerrors.ErrCodeConfigLoad, "loading project config").
			WithContext("path", projectConfigPath)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadAndMerge(cfg, expandHomeDir(path)); err != nil {
		return nil, pcerrors.Wrap(err, pcerrors.ErrCodeConfigLoad, "loading config").
			WithContext("path", path)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_CONTROL_URL")); v != "" {
		cfg.Browser.ControlURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_START_URL")); v != "" {
		cfg.Browser.StartURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_URL_MATCH")); v != "" {
		cfg.Browser.URLMatch = v
	}
	if val, ok := envBool("PAGECHAT_HEADLESS"); ok {
		cfg.Browser.Headless = val
	}
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Capture.PollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_STABLE_TICKS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Capture.StableTicks = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_COMPLETE_MARKERS")); v != "" {
		cfg.Selectors.CompleteMarkers = splitCommaList(v)
	}
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("PAGECHAT_METRICS_LISTEN")); v != "" {
		cfg.Metrics.Listen = v
	}
	if val, ok := envBool("PAGECHAT_TRACING"); ok {
		cfg.Tracing.Enabled = val
	}
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return pcerrors.New(pcerrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...)).
			WithContext("field", field)
	}

	if strings.TrimSpace(c.Browser.ControlURL) == "" && strings.TrimSpace(c.Browser.StartURL) == "" {
		return invalid("browser.start_url", "start_url is required when control_url is empty")
	}
	if c.Browser.OperationTimeout < 0 {
		return invalid("browser.operation_timeout", "must be zero or positive")
	}

	if strings.TrimSpace(c.Selectors.ReplyContainer) == "" {
		return invalid("selectors.reply_container", "reply_container selector is required")
	}

	if c.Capture.PollInterval <= 0 {
		return invalid("capture.poll_interval", "must be positive")
	}
	if c.Capture.PollInterval >= time.Second {
		return invalid("capture.poll_interval", "must be sub-second, got %s", c.Capture.PollInterval)
	}
	if c.Capture.StableTicks <= 0 {
		return invalid("capture.stable_ticks", "must be positive")
	}
	if c.Capture.InitialTimeout <= 0 {
		return invalid("capture.initial_timeout", "must be positive")
	}
	if c.Capture.HardCeiling <= 0 {
		return invalid("capture.hard_ceiling", "must be positive")
	}
	if c.Capture.HardCeiling <= c.Capture.PollInterval*time.Duration(c.Capture.StableTicks) {
		return invalid("capture.hard_ceiling", "must exceed poll_interval * stable_ticks")
	}
	if c.Capture.CopyWait < 0 {
		return invalid("capture.copy_wait", "must be zero or positive")
	}

	if c.Walker.MaxDepth <= 0 {
		return invalid("walker.max_depth", "must be positive")
	}

	if c.UI.WordWrap < 0 {
		return invalid("ui.word_wrap", "must be zero or positive")
	}
	switch c.UI.Style {
	case "", "auto", "dark", "light", "notty":
	default:
		return invalid("ui.style", "unknown style %q", c.UI.Style)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("logging.level", "unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return invalid("logging.format", "unknown format %q", c.Logging.Format)
	}
	return nil
}
