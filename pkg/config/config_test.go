package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/pagechat/pkg/config"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, 250*time.Millisecond, cfg.Capture.PollInterval)
	assert.Equal(t, 6, cfg.Capture.StableTicks)
	assert.Equal(t, 60*time.Second, cfg.Capture.InitialTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Capture.HardCeiling)
	assert.True(t, cfg.Capture.PreferWalkerForPlainCopy)
	assert.True(t, cfg.Walker.Enabled)
	assert.Equal(t, 200, cfg.Walker.MaxDepth)
	assert.NotEmpty(t, cfg.Selectors.ReplyContainer)
	assert.NotEmpty(t, cfg.Selectors.CompleteMarkers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadHierarchy(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".pagechat", "config.yaml"), `
browser:
  start_url: https://user.example.com/
capture:
  stable_ticks: 8
  poll_interval: 200ms
ui:
  spinner: false
`)
	writeFile(t, filepath.Join(project, ".pagechat", "config.yaml"), `
capture:
  stable_ticks: 4
selectors:
  complete_markers:
    - .regenerate
`)

	oldWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	require.NoError(t, os.Chdir(project))

	t.Setenv("PAGECHAT_LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://user.example.com/", cfg.Browser.StartURL)
	assert.Equal(t, 4, cfg.Capture.StableTicks, "project overrides user")
	assert.Equal(t, 200*time.Millisecond, cfg.Capture.PollInterval)
	assert.Equal(t, []string{".regenerate"}, cfg.Selectors.CompleteMarkers)
	assert.False(t, cfg.UI.Spinner)
	assert.True(t, cfg.UI.ReplaceStream, "unset booleans keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, `
browser:
  control_url: ws://127.0.0.1:9222/devtools/browser/abc
walker:
  max_depth: 50
`)

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.Browser.ControlURL)
	assert.Equal(t, 50, cfg.Walker.MaxDepth)
}

func TestLoadFromPathMissing(t *testing.T) {
	_, err := config.LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, pcerrors.IsCode(err, pcerrors.ErrCodeConfigLoad))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "capture:\n  stabel_ticks: 3\n")

	_, err := config.LoadFromPath(path)
	require.Error(t, err)
	assert.True(t, pcerrors.IsCode(err, pcerrors.ErrCodeConfigParse))
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, path, "")

	t.Setenv("PAGECHAT_CONTROL_URL", "ws://localhost:9222/devtools/browser/x")
	t.Setenv("PAGECHAT_HEADLESS", "yes")
	t.Setenv("PAGECHAT_POLL_INTERVAL", "100ms")
	t.Setenv("PAGECHAT_STABLE_TICKS", "3")
	t.Setenv("PAGECHAT_COMPLETE_MARKERS", " .a , ,.b ")
	t.Setenv("PAGECHAT_METRICS_LISTEN", "127.0.0.1:9100")
	t.Setenv("PAGECHAT_TRACING", "on")

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:9222/devtools/browser/x", cfg.Browser.ControlURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 100*time.Millisecond, cfg.Capture.PollInterval)
	assert.Equal(t, 3, cfg.Capture.StableTicks)
	assert.Equal(t, []string{".a", ".b"}, cfg.Selectors.CompleteMarkers)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Listen)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, path, "")

	t.Setenv("PAGECHAT_POLL_INTERVAL", "fast")
	t.Setenv("PAGECHAT_STABLE_TICKS", "-2")
	t.Setenv("PAGECHAT_HEADLESS", "maybe")

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.PollInterval)
	assert.Equal(t, 6, cfg.Capture.StableTicks)
	assert.False(t, cfg.Browser.Headless)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"no browser target", func(c *config.Config) { c.Browser.StartURL = "" }, "browser.start_url"},
		{"no reply selector", func(c *config.Config) { c.Selectors.ReplyContainer = " " }, "selectors.reply_container"},
		{"zero poll", func(c *config.Config) { c.Capture.PollInterval = 0 }, "capture.poll_interval"},
		{"slow poll", func(c *config.Config) { c.Capture.PollInterval = 2 * time.Second }, "capture.poll_interval"},
		{"zero ticks", func(c *config.Config) { c.Capture.StableTicks = 0 }, "capture.stable_ticks"},
		{"ceiling too low", func(c *config.Config) { c.Capture.HardCeiling = time.Second }, "capture.hard_ceiling"},
		{"depth", func(c *config.Config) { c.Walker.MaxDepth = 0 }, "walker.max_depth"},
		{"style", func(c *config.Config) { c.UI.Style = "neon" }, "ui.style"},
		{"level", func(c *config.Config) { c.Logging.Level = "chatty" }, "logging.level"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, pcerrors.IsCode(err, pcerrors.ErrCodeConfigInvalid))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
