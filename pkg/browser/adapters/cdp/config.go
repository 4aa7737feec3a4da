package cdp

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config controls how the adapter reaches Chrome and which tab it drives.
type Config struct {
	// ControlURL is a DevTools websocket URL of a running browser. When
	// empty a browser is launched.
	ControlURL string
	// BinPath overrides the launched browser binary.
	BinPath string
	// StartURL is opened when no existing tab matches URLMatch.
	StartURL string
	// URLMatch selects an existing tab by URL substring.
	URLMatch         string
	Headless         bool
	OperationTimeout time.Duration
	ClickTimeout     time.Duration
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		OperationTimeout: 10 * time.Second,
		ClickTimeout:     2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	defaults.ControlURL = strings.TrimSpace(c.ControlURL)
	defaults.BinPath = strings.TrimSpace(c.BinPath)
	defaults.StartURL = strings.TrimSpace(c.StartURL)
	defaults.URLMatch = strings.TrimSpace(c.URLMatch)
	defaults.Headless = c.Headless
	if c.OperationTimeout != 0 {
		defaults.OperationTimeout = c.OperationTimeout
	}
	if c.ClickTimeout != 0 {
		defaults.ClickTimeout = c.ClickTimeout
	}
	return defaults
}

// Validate checks whether the config is usable.
func (c Config) Validate() error {
	if c.ControlURL != "" {
		u, err := url.Parse(c.ControlURL)
		if err != nil {
			return errors.New("control_url is not a valid URL")
		}
		switch u.Scheme {
		case "ws", "wss", "http", "https":
		default:
			return errors.New("control_url must use ws, wss, http or https")
		}
	}
	if c.ControlURL == "" && c.StartURL == "" {
		return errors.New("start_url is required when launching a browser")
	}
	if c.OperationTimeout < 0 {
		return errors.New("operation_timeout must be zero or positive")
	}
	if c.ClickTimeout < 0 {
		return errors.New("click_timeout must be zero or positive")
	}
	return nil
}

// matches reports whether a tab URL belongs to the configured chat.
func (c Config) matches(tabURL string) bool {
	switch {
	case c.URLMatch != "":
		return strings.Contains(tabURL, c.URLMatch)
	case c.StartURL != "":
		return strings.HasPrefix(tabURL, c.StartURL)
	default:
		return true
	}
}
